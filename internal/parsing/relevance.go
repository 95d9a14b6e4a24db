package parsing

import "strings"

type RelevanceParser struct{}

func (RelevanceParser) Parse(response string) (Parsed, error) {
	if strings.TrimSpace(response) == "" {
		return Parsed{}, ErrEmptyResponse
	}

	if payload, err := extractJSON(response); err == nil {
		if score, ok := jsonUnitScore(payload, "relevance_score"); ok {
			return Parsed{
				Payload: map[string]any{
					"relevance_score": score,
					"reasoning":       text(payload, "reasoning"),
				},
				Structured: true,
			}, nil
		}
	}

	score, ok := firstScore(response)
	if !ok {
		return Parsed{}, ErrNoScore
	}
	return Parsed{Payload: map[string]any{
		"relevance_score": unitScore(score),
		"reasoning":       excerpt(response, 500),
	}}, nil
}
