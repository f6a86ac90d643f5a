// internal/flows/dish-search/schema.go
package dishsearch

import (
	"encoding/json"
	"fmt"
	"strings"

	"dishscout/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

// resultSchema describes the wire shape of a completed dish-search result.
// The payload is rejected before the controller ever exposes it.
var resultSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"restaurants"},
	"properties": map[string]interface{}{
		"dish":     map[string]interface{}{"type": "string"},
		"location": map[string]interface{}{"type": "string"},
		"restaurants": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type":     "object",
				"required": []interface{}{"name"},
				"properties": map[string]interface{}{
					"name":     map[string]interface{}{"type": "string"},
					"rating":   map[string]interface{}{"type": "number"},
					"address":  map[string]interface{}{"type": "string"},
					"map_link": map[string]interface{}{"type": "string"},
					"analysis": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"quality":        map[string]interface{}{"type": "string"},
							"description":    map[string]interface{}{"type": "string"},
							"key_points":     map[string]interface{}{"type": "array"},
							"recommendation": map[string]interface{}{"type": "string"},
						},
					},
				},
			},
		},
	},
}

// DecodeResult validates a raw COMPLETED payload against the result schema
// and decodes it. A malformed payload is reported the same way as any other
// broken poll response.
func DecodeResult(raw json.RawMessage) (*Result, error) {
	if len(raw) == 0 {
		return nil, errors.NewResultMalformedError("empty result payload")
	}

	schemaLoader := gojsonschema.NewGoLoader(resultSchema)
	documentLoader := gojsonschema.NewBytesLoader(raw)

	validation, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, errors.NewResultMalformedError(err.Error())
	}
	if !validation.Valid() {
		descs := make([]string, len(validation.Errors()))
		for i, desc := range validation.Errors() {
			descs[i] = desc.String()
		}
		return nil, errors.NewResultMalformedError(fmt.Sprintf("result schema violations: %s", strings.Join(descs, "; ")))
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, errors.NewResultMalformedError(err.Error())
	}
	return &result, nil
}
