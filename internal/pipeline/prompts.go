package pipeline

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/delarge95/ai-news-aggregator/internal/domain"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var promptTemplates = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

const systemInstructions = "You are a news analysis assistant. Return only valid JSON. Do not use markdown code fences."

type promptData struct {
	Title   string
	Source  string
	Content string
}

func renderPrompt(kind domain.AnalysisType, data promptData) (string, error) {
	name := string(kind) + ".tmpl"
	buffer := bytes.NewBuffer(nil)
	if err := promptTemplates.ExecuteTemplate(buffer, name, data); err != nil {
		return "", fmt.Errorf("execute template %s: %w", name, err)
	}
	return buffer.String(), nil
}
