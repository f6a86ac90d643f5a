// internal/flows/venue-link/schema.go
package venuelink

import (
	"encoding/json"
	"fmt"
	"strings"

	"dishscout/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

var dishSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"name"},
	"properties": map[string]interface{}{
		"name":             map[string]interface{}{"type": "string"},
		"description":      map[string]interface{}{"type": "string"},
		"recommended_with": map[string]interface{}{"type": "string"},
		"key_points": map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "string"},
		},
	},
}

// resultSchema describes the wire shape of a completed venue-link result.
var resultSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"restaurant_name", "analysis"},
	"properties": map[string]interface{}{
		"success":         map[string]interface{}{"type": "boolean"},
		"restaurant_name": map[string]interface{}{"type": "string"},
		"reviews": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"text":  map[string]interface{}{"type": "string"},
					"stars": map[string]interface{}{"type": "number"},
				},
			},
		},
		"analysis": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"top_dishes": map[string]interface{}{
					"type":  "array",
					"items": dishSchema,
				},
				"best_dish": dishSchema,
				"summary":   map[string]interface{}{"type": "string"},
			},
		},
	},
}

// DecodeResult validates a raw COMPLETED payload against the result schema
// and decodes it.
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
