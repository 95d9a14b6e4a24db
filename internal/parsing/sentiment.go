package parsing

import "strings"

type SentimentParser struct{}

func (SentimentParser) Parse(response string) (Parsed, error) {
	if strings.TrimSpace(response) == "" {
		return Parsed{}, ErrEmptyResponse
	}

	if payload, err := extractJSON(response); err == nil {
		if score, ok := number(payload, "sentiment_score"); ok {
			// Only the score is adjusted; label and explanation are kept verbatim.
			score = clamp(score, -1, 1)
			label, ok := payload["sentiment_label"].(string)
			if !ok || strings.TrimSpace(label) == "" {
				label = labelForScore(score)
			}
			explanation, _ := payload["explanation"].(string)
			return Parsed{
				Payload: map[string]any{
					"sentiment_score": score,
					"sentiment_label": label,
					"explanation":     explanation,
				},
				Structured: true,
			}, nil
		}
	}

	lowered := strings.ToLower(response)
	score, found := firstNumber(response)
	label := ""
	switch {
	case containsAny(lowered, "positive", "optimistic"):
		label = "positive"
	case containsAny(lowered, "negative", "pessimistic"):
		label = "negative"
	case containsAny(lowered, "neutral"):
		label = "neutral"
	}
	if !found {
		switch label {
		case "positive":
			score = 0.5
		case "negative":
			score = -0.5
		case "neutral":
			score = 0
		default:
			return Parsed{}, ErrNoScore
		}
	}
	score = clamp(score, -1, 1)
	if label == "" {
		label = labelForScore(score)
	}

	return Parsed{Payload: map[string]any{
		"sentiment_score": score,
		"sentiment_label": label,
		"explanation":     excerpt(response, 500),
	}}, nil
}

func labelForScore(score float64) string {
	switch {
	case score > 0.1:
		return "positive"
	case score < -0.1:
		return "negative"
	default:
		return "neutral"
	}
}
