package viewmodel

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/covercompare/engine/internal/apperr"
)

//go:embed schema.json
var schemaSource []byte

const schemaResourceName = "covercompare-viewmodel.json"

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaResourceName, strings.NewReader(string(schemaSource))); err != nil {
			compileErr = fmt.Errorf("viewmodel: add schema resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaResourceName)
	})
	return compiled, compileErr
}

// Validate runs the JSON Schema guard over a ViewModel (spec.md §4.13). A
// schema failure is a SchemaInvalid apperr (schema_validation_error),
// distinct from an internal error. Assemble does not call Validate, and no
// handler calls it either.
func Validate(vm ViewModel) error {
	schema, err := compiledSchema()
	if err != nil {
		return apperr.Internal("viewmodel: compile schema", err)
	}

	raw, err := json.Marshal(vm)
	if err != nil {
		return apperr.Internal("viewmodel: marshal view model", err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return apperr.Internal("viewmodel: unmarshal view model for validation", err)
	}

	if err := schema.Validate(doc); err != nil {
		return apperr.SchemaInvalid("viewmodel: schema validation failed", err)
	}
	return nil
}
