package parsing

import (
	"regexp"
	"strings"
)

const maxTopics = 10

type TopicsParser struct{}

func (TopicsParser) Parse(response string) (Parsed, error) {
	if strings.TrimSpace(response) == "" {
		return Parsed{}, ErrEmptyResponse
	}

	// A JSON answer without topics is a refusal or a malformed object, never a
	// list to split.
	if payload, err := extractJSON(response); err == nil {
		topics := dedupe(stringList(payload, "topics"))
		if len(topics) == 0 {
			return Parsed{}, ErrNoTopics
		}
		result := map[string]any{"topics": topics}
		if categories := dedupe(stringList(payload, "categories")); len(categories) > 0 {
			result["categories"] = categories
		}
		if keywords := dedupe(stringList(payload, "keywords")); len(keywords) > 0 {
			result["keywords"] = keywords
		}
		return Parsed{Payload: result, Structured: true}, nil
	}

	topics := dedupe(splitList(response))
	if len(topics) == 0 {
		return Parsed{}, ErrEmptyResponse
	}
	return Parsed{Payload: map[string]any{"topics": topics}}, nil
}

var listMarker = regexp.MustCompile(`^\s*(?:[-*•]+|\d+[.)])\s*`)

// splitList reads bullet lists, numbered lists, one item per line or comma
// separated values.
func splitList(value string) []string {
	lines := strings.Split(value, "\n")
	if len(lines) == 1 {
		lines = strings.Split(value, ",")
	}
	items := make([]string, 0, len(lines))
	for _, line := range lines {
		line = listMarker.ReplaceAllString(line, "")
		if _, after, ok := strings.Cut(line, ":"); ok && strings.Contains(strings.ToLower(line), "topic") {
			line = after
		}
		for _, part := range strings.Split(line, ",") {
			part = strings.Trim(strings.TrimSpace(part), `."'`)
			if part != "" {
				items = append(items, part)
			}
		}
	}
	return items
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		key := strings.ToLower(item)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, item)
		if len(result) == maxTopics {
			break
		}
	}
	return result
}
