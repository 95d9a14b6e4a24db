// Package parsing turns raw model responses into analysis payloads. Every
// analysis type has its own strategy: structured JSON first, then a text
// heuristic when the response is not JSON.
package parsing

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/delarge95/ai-news-aggregator/internal/domain"
)

var (
	ErrEmptyResponse = errors.New("empty model response")
	ErrNotJSON       = errors.New("model output is not valid JSON")
	ErrNoScore       = errors.New("no numeric score in model response")
	ErrNoTopics      = errors.New("no topics in model response")
)

// Parsed is the payload extracted from one response. Structured is false when
// the heuristic fallback produced it.
type Parsed struct {
	Payload    map[string]any
	Structured bool
}

type Parser interface {
	Parse(text string) (Parsed, error)
}

var parsers = map[domain.AnalysisType]Parser{
	domain.AnalysisSentiment: SentimentParser{},
	domain.AnalysisTopics:    TopicsParser{},
	domain.AnalysisSummary:   SummaryParser{},
	domain.AnalysisRelevance: RelevanceParser{},
	domain.AnalysisBias:      BiasParser{},
}

// ForType returns the parser strategy of an analysis type.
func ForType(kind domain.AnalysisType) (Parser, error) {
	parser, ok := parsers[kind]
	if !ok {
		return nil, fmt.Errorf("no parser for analysis type %q", kind)
	}
	return parser, nil
}

// extractJSON returns the JSON object embedded in a response, tolerating
// markdown fences and prose around the object.
func extractJSON(text string) (map[string]any, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmptyResponse
	}
	if strings.HasPrefix(trimmed, "```") {
		trimmed = stripCodeFence(trimmed)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
		return decoded, nil
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(trimmed[start:end+1]), &decoded); err == nil {
			return decoded, nil
		}
	}
	return nil, ErrNotJSON
}

func stripCodeFence(text string) string {
	trimmed := strings.TrimPrefix(strings.TrimSpace(text), "```")
	trimmed = strings.TrimPrefix(trimmed, "json")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

var numberPattern = regexp.MustCompile(`[-+]?\d*\.?\d+`)

// firstNumber returns the first decimal number in text.
func firstNumber(text string) (float64, bool) {
	match := numberPattern.FindString(text)
	if match == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

var fractionPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:/|out of)\s*(10|100)\b`)

// firstScore is firstNumber with "7/10" and "70 out of 100" forms reduced
// to a 0..1 fraction.
func firstScore(text string) (float64, bool) {
	if match := fractionPattern.FindStringSubmatch(text); match != nil {
		value, errValue := strconv.ParseFloat(match[1], 64)
		scale, errScale := strconv.ParseFloat(match[2], 64)
		if errValue == nil && errScale == nil && scale > 0 {
			return value / scale, true
		}
	}
	return firstNumber(text)
}

// number reads a numeric JSON field, accepting numbers encoded as strings.
func number(payload map[string]any, key string) (float64, bool) {
	switch typed := payload[key].(type) {
	case float64:
		return typed, true
	case json.Number:
		value, err := typed.Float64()
		return value, err == nil
	case string:
		value, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		return value, err == nil
	default:
		return 0, false
	}
}

func text(payload map[string]any, key string) string {
	value, _ := payload[key].(string)
	return strings.TrimSpace(value)
}

func stringList(payload map[string]any, key string) []string {
	raw, ok := payload[key].([]any)
	if !ok {
		if single := text(payload, key); single != "" {
			return splitList(single)
		}
		return nil
	}
	items := make([]string, 0, len(raw))
	for _, item := range raw {
		if value, ok := item.(string); ok && strings.TrimSpace(value) != "" {
			items = append(items, strings.TrimSpace(value))
		}
	}
	return items
}

func clamp(value, low, high float64) float64 {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}

// jsonUnitScore reads a 0..1 score from a JSON field. Numbers are clamped as
// they are; only a string with an explicit "%" is read as a percentage.
func jsonUnitScore(payload map[string]any, key string) (float64, bool) {
	if raw, ok := payload[key].(string); ok {
		if trimmed := strings.TrimSpace(raw); strings.HasSuffix(trimmed, "%") {
			value, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(trimmed, "%")), 64)
			if err != nil {
				return 0, false
			}
			return clamp(value/100, 0, 1), true
		}
	}
	value, ok := number(payload, key)
	if !ok {
		return 0, false
	}
	return clamp(value, 0, 1), true
}

// unitScore is the free-text rule: 0..1 passes through and 1..100 is read
// as a percentage.
func unitScore(value float64) float64 {
	if value > 1 && value <= 100 {
		value /= 100
	}
	return clamp(value, 0, 1)
}

func containsAny(lowered string, words ...string) bool {
	for _, word := range words {
		if strings.Contains(lowered, word) {
			return true
		}
	}
	return false
}

func excerpt(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	if len(value) <= limit {
		return value
	}
	return strings.TrimSpace(value[:limit])
}
