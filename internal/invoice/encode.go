package invoice

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var recordSchemaJSON []byte

// compileSchema compiles the embedded record schema, once per call; the
// package keeps no process-wide state.
func compileSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("invoice-record.json", bytes.NewReader(recordSchemaJSON)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("invoice-record.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// Validate checks one JSON-encoded record against the record schema
func Validate(data []byte) error {
	schema, err := compileSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshaling record: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("record does not match schema: %w", err)
	}
	return nil
}

// WriteJSON writes one record as an indented object, or several as an array.
// Absent fields are written as null.
func WriteJSON(w io.Writer, records ...Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	var err error
	if len(records) == 1 {
		err = enc.Encode(records[0])
	} else {
		if records == nil {
			records = []Record{}
		}
		err = enc.Encode(records)
	}
	if err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}

// ReadJSON reads records written by WriteJSON, validating each against the
// record schema.
func ReadJSON(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading json: %w", err)
	}
	data = bytes.TrimSpace(data)

	var raw []json.RawMessage
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("unmarshaling json: %w", err)
		}
	} else {
		raw = []json.RawMessage{data}
	}

	records := make([]Record, 0, len(raw))
	for i, msg := range raw {
		if err := Validate(msg); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		var rec Record
		if err := json.Unmarshal(msg, &rec); err != nil {
			return nil, fmt.Errorf("record %d: unmarshaling: %w", i, err)
		}
		if rec.Items == nil {
			rec.Items = []LineItem{}
		}
		records = append(records, rec)
	}
	return records, nil
}
