package synthesis

// Strict structured-output schemas for the model calls. OpenAI strict mode
// requires every property listed in required and additionalProperties=false,
// so optional fields are sent as empty strings and dropped in code.

func insightListSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"insights": map[string]any{
				"type":  "array",
				"items": insightSchema(),
			},
		},
		"required":             []string{"insights"},
		"additionalProperties": false,
	}
}

func insightSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"quote":      map[string]any{"type": "string"},
			"speaker":    map[string]any{"type": "string"},
			"theme":      map[string]any{"type": "string"},
			"sentiment":  enumSchema("Positive", "Negative", "Neutral"),
			"confidence": map[string]any{"type": "number"},
			"context":    map[string]any{"type": "string"},
			"timestamp":  map[string]any{"type": "string"},
		},
		"required":             []string{"quote", "speaker", "theme", "sentiment", "confidence", "context", "timestamp"},
		"additionalProperties": false,
	}
}

func themeSummarySchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary": map[string]any{"type": "string"},
		},
		"required":             []string{"summary"},
		"additionalProperties": false,
	}
}

func executiveSummarySchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"research_question": map[string]any{"type": "string"},
			"key_finding":       map[string]any{"type": "string"},
			"key_insight":       map[string]any{"type": "string"},
			"recommendation":    map[string]any{"type": "string"},
		},
		"required":             []string{"research_question", "key_finding", "key_insight", "recommendation"},
		"additionalProperties": false,
	}
}

func enumSchema(values ...string) map[string]any {
	return map[string]any{"type": "string", "enum": values}
}
