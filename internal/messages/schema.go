package messages

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var schemaFiles = map[Type]string{
	TypeSubmitResult: "schemas/submit_result.json",
	TypeSamples:      "schemas/samples.json",
	TypeRunResult:    "schemas/run_result.json",
	TypeLoginSuccess: "schemas/login_success.json",
}

var (
	schemaOnce sync.Once
	schemas    map[Type]*gojsonschema.Schema
	schemaErr  error
)

func loadSchemas() {
	schemas = make(map[Type]*gojsonschema.Schema, len(schemaFiles))
	for typ, path := range schemaFiles {
		raw, err := schemaFS.ReadFile(path)
		if err != nil {
			schemaErr = fmt.Errorf("failed to read schema %s: %w", path, err)
			return
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			schemaErr = fmt.Errorf("failed to compile schema %s: %w", path, err)
			return
		}
		schemas[typ] = schema
	}
}

// validateSchema checks raw against the embedded JSON Schema for typ.
func validateSchema(typ Type, raw []byte) error {
	schemaOnce.Do(loadSchemas)
	if schemaErr != nil {
		return schemaErr
	}
	schema, ok := schemas[typ]
	if !ok {
		return fmt.Errorf("unknown message type %q", typ)
	}
	if len(raw) == 0 {
		return fmt.Errorf("empty %s message body", typ)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("failed to validate %s message: %w", typ, err)
	}
	if !result.Valid() {
		var fields []string
		for _, desc := range result.Errors() {
			fields = append(fields, desc.String())
		}
		return fmt.Errorf("invalid %s message: %s", typ, strings.Join(fields, "; "))
	}
	return nil
}
