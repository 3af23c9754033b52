package library

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// librarySchema describes the minimum shape a library file must have before
// it is merged into. Unknown fields are allowed so older exports still load.
const librarySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["sessions"],
  "properties": {
    "library_version": {"type": "string"},
    "sessions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "title", "drills"],
        "properties": {
          "id": {"type": "integer"},
          "title": {"type": "string"},
          "duration_total_min": {"type": "integer", "minimum": 0},
          "equipment": {"type": "array", "items": {"type": "string"}},
          "drills": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["drill_id", "title"],
              "properties": {
                "drill_id": {"type": "string"},
                "title": {"type": "string"},
                "duration_min": {"type": "integer", "minimum": 0},
                "cumulative_min": {"type": "integer", "minimum": 0},
                "source_page_start": {"type": "integer", "minimum": 1},
                "images": {
                  "type": "array",
                  "items": {
                    "type": "object",
                    "required": ["path"],
                    "properties": {
                      "path": {"type": "string", "minLength": 1},
                      "page": {"type": "integer"},
                      "order": {"type": "integer"}
                    }
                  }
                }
              }
            }
          }
        }
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("library.schema.json", strings.NewReader(librarySchema)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile("library.schema.json")
	})
	return compiledSchema, schemaErr
}

// ValidateJSON checks raw library bytes against the library schema
func ValidateJSON(data []byte) error {
	schema, err := loadSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("unmarshal library: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("library does not match schema: %w", err)
	}
	return nil
}
