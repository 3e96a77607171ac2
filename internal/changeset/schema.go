package changeset

// Schema returns the JSON schema for a changeset payload as a plain map
// so it can be fed to gojsonschema and inspected by tests.
func Schema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"required":             []any{"changes"},
		"additionalProperties": false,
		"properties": map[string]any{
			"changes": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type":                 "object",
					"required":             []any{"path"},
					"additionalProperties": false,
					"properties": map[string]any{
						"path": map[string]any{
							"type":      "string",
							"minLength": 1,
						},
						"diff": map[string]any{
							"type": "string",
						},
						"content": map[string]any{
							"type": "string",
						},
					},
					"oneOf": []any{
						map[string]any{"required": []any{"diff"}},
						map[string]any{"required": []any{"content"}},
					},
				},
			},
		},
	}
}
