package account

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// accountsSchema is the structural contract for the accounts file: a
// top-level array whose entries carry label/name/email at minimum.
const accountsSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["label", "name", "email"],
    "properties": {
      "label": {"type": "string"},
      "name": {"type": "string"},
      "email": {"type": "string"},
      "username": {"type": "string"},
      "accountId": {"type": "string"},
      "sessionId": {"type": "string"},
      "avatarUrl": {"type": "string"},
      "authenticated": {"type": "boolean"}
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(accountsSchema))
		if err != nil {
			schemaErr = fmt.Errorf("parsing accounts schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("accounts.json", doc); err != nil {
			schemaErr = fmt.Errorf("registering accounts schema: %w", err)
			return
		}
		schema, schemaErr = c.Compile("accounts.json")
	})
	return schema, schemaErr
}

// validateRaw checks the raw accounts file content against the schema.
// The returned error wraps ErrFormat so callers can treat any violation as
// corrupt state.
func validateRaw(data []byte) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return nil
}
