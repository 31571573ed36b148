package providers

import "strings"

// CleanSchemaForProvider recursively strips JSON Schema keywords a given
// provider's tool-calling API rejects, returning a copy safe to send.
// Gemini (reached through the OpenAI-compatible surface) is the strictest:
// it 400s on "additionalProperties" and "$schema" anywhere in the tree.
func CleanSchemaForProvider(provider string, schema map[string]interface{}) map[string]interface{} {
	if schema == nil {
		return nil
	}
	if !strings.Contains(strings.ToLower(provider), "gemini") {
		return schema
	}
	return stripGeminiUnsupportedKeys(schema)
}

func stripGeminiUnsupportedKeys(node map[string]interface{}) map[string]interface{} {
	cleaned := make(map[string]interface{}, len(node))
	for k, v := range node {
		switch k {
		case "additionalProperties", "$schema":
			continue
		}
		cleaned[k] = cleanSchemaValue(v)
	}
	return cleaned
}

func cleanSchemaValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return stripGeminiUnsupportedKeys(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = cleanSchemaValue(item)
		}
		return out
	default:
		return v
	}
}

// CleanToolSchemas converts ToolDefinitions to the OpenAI-compatible wire
// format, cleaning each tool's parameter schema for the target provider.
func CleanToolSchemas(provider string, tools []ToolDefinition) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(tools))
	for _, t := range tools {
		out = append(out, map[string]interface{}{
			"type": "function",
			"function": map[string]interface{}{
				"name":        t.Function.Name,
				"description": t.Function.Description,
				"parameters":  CleanSchemaForProvider(provider, t.Function.Parameters),
			},
		})
	}
	return out
}
