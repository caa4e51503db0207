// pkg/catalog/catalog.go
package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
)

// catalogSchema validates the static source catalog at startup. A catalog
// that fails here is a deployment fault, not a runtime condition.
const catalogSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["version", "sources"],
  "properties": {
    "version": {"type": "string"},
    "lastUpdated": {"type": "string"},
    "sources": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "enabled"],
        "properties": {
          "name": {"type": "string", "minLength": 1, "pattern": "^[a-z0-9-]+$"},
          "displayName": {"type": "string"},
          "description": {"type": "string"},
          "capabilities": {"type": "array", "items": {"type": "string"}},
          "requiresCredential": {"type": "boolean"},
          "enabled": {"type": "boolean"},
          "tags": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

// Load reads and validates the source catalog from path.
func Load(path string) (*SourceCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source catalog: %w", err)
	}
	return Parse(data)
}

// Parse validates raw catalog JSON against the schema and unmarshals it.
func Parse(data []byte) (*SourceCatalog, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(catalogSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("catalog schema validation failed: %w", err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("invalid source catalog: %v", result.Errors())
	}

	var cat SourceCatalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse source catalog: %w", err)
	}
	return &cat, nil
}
