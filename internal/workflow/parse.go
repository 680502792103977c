package workflow

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Parse decodes a workflow document from JSON and checks that every stage
// carries its required fields. It does not resolve `needs` references or
// detect cycles — that is the job of package taskgraph, which needs the
// full stage list to do it in one pass.
func Parse(r io.Reader) (*Document, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if syn, ok := err.(*json.SyntaxError); ok {
			return nil, &ParseError{Msg: fmt.Sprintf("malformed JSON at offset %d", syn.Offset), Err: err}
		}
		if _, ok := err.(*json.UnmarshalTypeError); ok {
			return nil, &SchemaError{Msg: fmt.Sprintf("invalid field type: %v", err)}
		}
		return nil, &ParseError{Msg: err.Error(), Err: err}
	}

	if doc.Stages == nil {
		return nil, &SchemaError{Field: "stages", Msg: "required field is missing"}
	}

	seen := make(map[string]struct{}, len(doc.Stages))
	for i, t := range doc.Stages {
		if t.Name == "" {
			return nil, &SchemaError{Field: fmt.Sprintf("stages[%d].name", i), Msg: "required field is missing"}
		}
		if t.Cmd == "" {
			return nil, &SchemaError{Field: fmt.Sprintf("stages[%d].cmd", i), Msg: "required field is missing"}
		}
		if _, dup := seen[t.Name]; dup {
			return nil, &SchemaError{Field: "stages", Msg: fmt.Sprintf("duplicate task name %q", t.Name)}
		}
		seen[t.Name] = struct{}{}
	}

	return &doc, nil
}

// ParseFile opens path and parses it as a workflow document.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}
