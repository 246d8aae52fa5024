package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema is a compiled JSON schema for model replies and OCR annotations.
type Schema struct {
	name     string
	compiled *jsonschema.Schema
}

// CompileSchema compiles a schema document built as a generic map.
func CompileSchema(name string, doc map[string]any) (*Schema, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %s: %w", name, err)
	}
	url := name + ".json"
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Schema{name: name, compiled: compiled}, nil
}

// Validate decodes data and checks it against the schema.
func (s *Schema) Validate(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode %s payload: %w", s.name, err)
	}
	if err := s.compiled.Validate(v); err != nil {
		return fmt.Errorf("%s payload does not match schema: %w", s.name, err)
	}
	return nil
}

var (
	invoiceSchema    = sync.OnceValues(func() (*Schema, error) { return CompileSchema(SchemaName, BuildInvoiceJSONSchema()) })
	annotationSchema = sync.OnceValues(func() (*Schema, error) { return CompileSchema("annotation", BuildAnnotationJSONSchema()) })
)

// ValidateInvoiceFields checks a field extraction reply against the strict four-field schema.
func ValidateInvoiceFields(data []byte) error {
	s, err := invoiceSchema()
	if err != nil {
		return err
	}
	return s.Validate(data)
}

// ValidateAnnotation checks an OCR document annotation against the general invoice schema.
func ValidateAnnotation(data []byte) error {
	s, err := annotationSchema()
	if err != nil {
		return err
	}
	return s.Validate(data)
}
