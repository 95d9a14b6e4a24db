package quality

import (
	"math"
	"strings"

	"github.com/delarge95/ai-news-aggregator/internal/domain"
)

// ScoreConfidence approximates how trustworthy one model response is from its
// shape alone: length, refusal phrases, whether it parsed as JSON and a
// per-type bonus. The value is a heuristic, not a model probability.
func ScoreConfidence(kind domain.AnalysisType, response string, structured bool) float64 {
	text := NormalizeText(response)
	score := 0.5

	switch length := len(text); {
	case length < 20:
		score -= 0.2
	case length >= 200:
		score += 0.2
	case length >= 50:
		score += 0.1
	}

	if containsRefusal(text) {
		score -= 0.3
	}
	if structured {
		score += 0.15
	}
	score += typeBonus[kind]

	return round2(clamp01(score))
}

var typeBonus = map[domain.AnalysisType]float64{
	domain.AnalysisSentiment: 0.1,
	domain.AnalysisTopics:    0.05,
	domain.AnalysisSummary:   0.1,
	domain.AnalysisRelevance: 0.05,
	domain.AnalysisBias:      0,
}

var refusalPhrases = []string{
	"i cannot",
	"i can't",
	"i can not",
	"i'm unable",
	"i am unable",
	"unable to analyze",
	"as an ai",
	"i'm sorry",
	"i apologize",
	"not able to provide",
}

func containsRefusal(text string) bool {
	lowered := strings.ToLower(text)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

// NormalizeText collapses runs of whitespace into single spaces.
func NormalizeText(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// TruncateAtWord cuts value to at most maxLen bytes, preferring the last space
// in the second half of the window. Multi-byte runes are never split.
func TruncateAtWord(value string, maxLen int) string {
	if len(value) <= maxLen || maxLen <= 0 {
		return value
	}
	cut := maxLen
	for cut > 0 && !isRuneStart(value[cut]) {
		cut--
	}
	truncated := value[:cut]
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > maxLen/2 {
		truncated = truncated[:lastSpace]
	}
	return strings.TrimSpace(truncated)
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

func clamp01(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
