package ai

import "strings"

// TaskKind is the routing key of a generation task. Analysis types are used
// directly as task kinds.
type TaskKind string

const TaskSummary TaskKind = "summary"

type ModelProfile struct {
	PrimaryModel  string
	FallbackModel string
}

type ModelRouterConfig struct {
	Primary  string
	Fallback string

	// Summaries produce the longest output and may use their own pair.
	SummaryPrimary  string
	SummaryFallback string
}

type ModelRouter struct {
	config ModelRouterConfig
}

func NewModelRouter(config ModelRouterConfig) *ModelRouter {
	if strings.TrimSpace(config.Primary) == "" {
		config.Primary = "openai/gpt-4.1-mini"
	}
	if strings.TrimSpace(config.Fallback) == "" {
		config.Fallback = "openai/gpt-4.1-nano"
	}
	if strings.TrimSpace(config.SummaryPrimary) == "" {
		config.SummaryPrimary = config.Primary
	}
	if strings.TrimSpace(config.SummaryFallback) == "" {
		config.SummaryFallback = config.Fallback
	}
	return &ModelRouter{config: config}
}

func (r *ModelRouter) Select(task TaskKind) ModelProfile {
	if task == TaskSummary {
		return ModelProfile{
			PrimaryModel:  r.config.SummaryPrimary,
			FallbackModel: r.config.SummaryFallback,
		}
	}
	return ModelProfile{
		PrimaryModel:  r.config.Primary,
		FallbackModel: r.config.Fallback,
	}
}
