package parsing

import "strings"

type BiasParser struct{}

func (BiasParser) Parse(response string) (Parsed, error) {
	if strings.TrimSpace(response) == "" {
		return Parsed{}, ErrEmptyResponse
	}

	if payload, err := extractJSON(response); err == nil {
		if score, ok := jsonUnitScore(payload, "bias_score"); ok {
			direction := strings.ToLower(text(payload, "bias_direction"))
			if direction == "" {
				direction = directionFromText(strings.ToLower(response))
			}
			result := map[string]any{
				"bias_score":     score,
				"bias_direction": direction,
			}
			if indicators := stringList(payload, "indicators"); len(indicators) > 0 {
				result["indicators"] = indicators
			}
			return Parsed{Payload: result, Structured: true}, nil
		}
	}

	score, ok := firstScore(response)
	if !ok {
		return Parsed{}, ErrNoScore
	}
	return Parsed{Payload: map[string]any{
		"bias_score":     unitScore(score),
		"bias_direction": directionFromText(strings.ToLower(response)),
		"explanation":    excerpt(response, 500),
	}}, nil
}

func directionFromText(lowered string) string {
	switch {
	case containsAny(lowered, "left-leaning", "left leaning", "liberal", "progressive"):
		return "left"
	case containsAny(lowered, "right-leaning", "right leaning", "conservative"):
		return "right"
	case containsAny(lowered, "center", "centre", "balanced", "neutral"):
		return "center"
	default:
		return "unknown"
	}
}
