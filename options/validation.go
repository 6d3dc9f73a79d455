package options

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Document is the on-disk shape of a tool-options file: an optional default
// plus per-tool entries.
type Document struct {
	Default *ToolOptions `json:"default,omitempty"`
	Tools   Map          `json:"tools,omitempty"`
}

// JSON schema for tool-options documents. additionalProperties stays open on
// public/private option objects: unrecognized keys are the forward-compat
// escape hatch and round-trip through Extra.
const documentSchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "default": {"$ref": "#/definitions/toolOptions"},
    "tools": {
      "type": "object",
      "additionalProperties": {"$ref": "#/definitions/toolOptions"}
    }
  },
  "definitions": {
    "toolOptions": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "public_options": {
          "type": "object",
          "properties": {
            "method": {"type": "string"},
            "headers": {"type": "object", "additionalProperties": {"type": "string"}},
            "timeout": {"type": "integer", "minimum": 0}
          }
        },
        "private_options": {
          "type": "object",
          "properties": {
            "hiddenParameters": {"type": "array", "items": {"type": "string"}},
            "paramValues": {"type": "object", "additionalProperties": {"type": "string"}},
            "responseMatches": {
              "type": "array",
              "items": {
                "type": "object",
                "properties": {
                  "value": {"type": "string"},
                  "jsonPath": {"type": "string"},
                  "xPath": {"type": "string"}
                }
              }
            }
          }
        },
        "redactions": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["path"],
            "properties": {
              "path": {"type": "string", "minLength": 1},
              "type": {"type": "string"}
            }
          }
        },
        "response_redaction_paths": {
          "type": "object",
          "additionalProperties": {"type": "string"}
        }
      }
    }
  }
}`

var (
	compiledSchemaOnce sync.Once
	compiledSchema     *gojsonschema.Schema
	compiledSchemaErr  error
)

func documentValidator() (*gojsonschema.Schema, error) {
	compiledSchemaOnce.Do(func() {
		compiledSchema, compiledSchemaErr = gojsonschema.NewSchema(
			gojsonschema.NewStringLoader(documentSchema))
	})
	return compiledSchema, compiledSchemaErr
}

// ValidateDocument checks a raw tool-options document against the schema.
func ValidateDocument(doc []byte) error {
	schema, err := documentValidator()
	if err != nil {
		return fmt.Errorf("failed to compile tool-options schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("tool-options document is not valid JSON: %w", err)
	}
	if !result.Valid() {
		msg := ""
		for _, desc := range result.Errors() {
			if msg != "" {
				msg += "; "
			}
			msg += desc.String()
		}
		return fmt.Errorf("invalid tool-options document: %s", msg)
	}
	return nil
}

// ParseDocument validates and decodes a tool-options document.
func ParseDocument(doc []byte) (*Document, error) {
	if err := ValidateDocument(doc); err != nil {
		return nil, err
	}
	var parsed Document
	if err := json.Unmarshal(doc, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode tool-options document: %w", err)
	}
	return &parsed, nil
}

// LoadFile reads, validates and decodes a tool-options file.
func LoadFile(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tool-options file %s: %w", path, err)
	}
	return ParseDocument(raw)
}
