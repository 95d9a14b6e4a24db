package quality

import (
	"strings"
	"testing"

	"github.com/delarge95/ai-news-aggregator/internal/domain"
)

func TestScoreConfidenceRewardsStructuredLongResponses(t *testing.T) {
	response := `{"summary":"` + strings.Repeat("Central bank holds rates steady. ", 8) + `"}`

	score := ScoreConfidence(domain.AnalysisSummary, response, true)
	if score != 0.95 {
		t.Fatalf("expected 0.95, got %.2f", score)
	}
}

func TestScoreConfidencePenalizesRefusal(t *testing.T) {
	refusal := "I'm sorry, but as an AI I cannot determine the political bias of this text."
	plain := "The article leans slightly toward the government position on taxation."

	refused := ScoreConfidence(domain.AnalysisBias, refusal, false)
	normal := ScoreConfidence(domain.AnalysisBias, plain, false)
	if refused >= normal {
		t.Fatalf("expected refusal %.2f below normal %.2f", refused, normal)
	}
	if refused != 0.3 {
		t.Fatalf("expected 0.3 for refusal, got %.2f", refused)
	}
}

func TestScoreConfidenceIsBoundedAndDeterministic(t *testing.T) {
	for _, kind := range domain.AnalysisOrder {
		first := ScoreConfidence(kind, "ok", false)
		second := ScoreConfidence(kind, "ok", false)
		if first != second {
			t.Fatalf("expected deterministic score for %s", kind)
		}
		if first < 0 || first > 1 {
			t.Fatalf("score out of range for %s: %.2f", kind, first)
		}
	}
}

func TestTruncateAtWord(t *testing.T) {
	value := "Markets rallied after the announcement of new stimulus"
	if got := TruncateAtWord(value, 30); got != "Markets rallied after the" {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := TruncateAtWord("short", 30); got != "short" {
		t.Fatalf("expected untouched value, got %q", got)
	}
	if got := TruncateAtWord("ééééé", 3); got != "é" {
		t.Fatalf("expected rune-safe cut, got %q", got)
	}
}
