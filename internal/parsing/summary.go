package parsing

import "strings"

type SummaryParser struct{}

// Parse never fails on a non-empty response: when no JSON summary is present
// the whole response is the summary.
func (SummaryParser) Parse(response string) (Parsed, error) {
	if strings.TrimSpace(response) == "" {
		return Parsed{}, ErrEmptyResponse
	}

	if payload, err := extractJSON(response); err == nil {
		if summary := text(payload, "summary"); summary != "" {
			result := map[string]any{"summary": summary}
			if points := stringList(payload, "key_points"); len(points) > 0 {
				result["key_points"] = points
			}
			return Parsed{Payload: result, Structured: true}, nil
		}
	}

	summary := strings.TrimSpace(response)
	if strings.HasPrefix(summary, "```") {
		summary = stripCodeFence(summary)
	}
	lowered := strings.ToLower(summary)
	if strings.HasPrefix(lowered, "summary:") {
		summary = strings.TrimSpace(summary[len("summary:"):])
	}
	if summary == "" {
		return Parsed{}, ErrEmptyResponse
	}
	return Parsed{Payload: map[string]any{"summary": summary}}, nil
}
