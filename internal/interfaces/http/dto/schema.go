package dto

import (
	"bytes"
	"embed"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const schemaBaseURL = "https://schemas.hull-connectors.dev/planhat/"

// Schema names
const (
	SchemaNotification = "notification.json"
	SchemaStatus       = "status.json"
)

// SchemaValidator validates raw request bodies against the embedded schemas
type SchemaValidator struct {
	schemas map[string]*jsonschema.Schema
}

// NewSchemaValidator compiles every embedded schema
func NewSchemaValidator() (*SchemaValidator, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("read schemas: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		raw, err := schemaFS.ReadFile("schemas/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", entry.Name(), err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("parse schema %s: %w", entry.Name(), err)
		}
		if err := compiler.AddResource(schemaBaseURL+entry.Name(), doc); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", entry.Name(), err)
		}
		names = append(names, entry.Name())
	}

	v := &SchemaValidator{schemas: make(map[string]*jsonschema.Schema, len(names))}
	for _, name := range names {
		sch, err := compiler.Compile(schemaBaseURL + name)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		v.schemas[name] = sch
	}
	return v, nil
}

// SchemaError lists the violations of one body
type SchemaError struct {
	Details []ValidationDetail
}

func (e *SchemaError) Error() string {
	if len(e.Details) == 0 {
		return "body does not match schema"
	}
	return fmt.Sprintf("body does not match schema: %s: %s", e.Details[0].Field, e.Details[0].Message)
}

// ErrInvalidJSON is returned for bodies that are not JSON
var ErrInvalidJSON = errors.New("body is not valid JSON")

// Validate checks body against the named schema. It returns ErrInvalidJSON or
// a *SchemaError.
func (v *SchemaValidator) Validate(name string, body []byte) error {
	sch, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}

	err = sch.Validate(inst)
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	return &SchemaError{Details: schemaDetails(verr)}
}

func schemaDetails(verr *jsonschema.ValidationError) []ValidationDetail {
	out := verr.BasicOutput()
	details := make([]ValidationDetail, 0, len(out.Errors))
	for _, unit := range out.Errors {
		if unit.Error == nil {
			continue
		}
		field := unit.InstanceLocation
		if field == "" {
			field = "/"
		}
		details = append(details, ValidationDetail{Field: field, Message: unit.Error.String()})
	}
	return details
}
