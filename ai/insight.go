package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"datapilot/domain/analysis"
)

const systemContext = "You are a senior data analyst. Be concrete and concise."

// sampleRows is how many rows are shown to the model
const sampleRows = 5

// Completer produces a completion for a system + user prompt
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// DatasetContext is what the insight prompt knows about the data
type DatasetContext struct {
	Columns  []string
	Rows     []analysis.Row
	Profiles []string
}

// InsightGenerator answers questions about a dataset through a language model
type InsightGenerator struct {
	completer Completer
	prompts   *PromptManager
}

// NewInsightGenerator creates a generator backed by completer
func NewInsightGenerator(completer Completer) *InsightGenerator {
	return &InsightGenerator{completer: completer, prompts: NewPromptManager()}
}

// Answer renders the insight prompt and returns the model's Markdown answer
func (g *InsightGenerator) Answer(ctx context.Context, roleName, question string, data DatasetContext) (string, error) {
	prompt, err := g.prompts.RenderPrompt("insight", map[string]string{
		"ROLE":      roleName,
		"COLUMNS":   strings.Join(data.Columns, ", "),
		"ROW_COUNT": fmt.Sprint(len(data.Rows)),
		"PROFILE":   profileLines(data.Profiles),
		"SAMPLE":    sampleJSON(data.Rows),
		"QUESTION":  question,
	})
	if err != nil {
		return "", fmt.Errorf("failed to load/render prompt: %w", err)
	}
	return g.completer.Complete(ctx, systemContext, prompt)
}

func profileLines(profiles []string) string {
	if len(profiles) == 0 {
		return ""
	}
	return "- " + strings.Join(profiles, "\n- ")
}

func sampleJSON(rows []analysis.Row) string {
	if len(rows) > sampleRows {
		rows = rows[:sampleRows]
	}
	b, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(b)
}

// TemplatedAnswer is the offline answer used when no model is configured
func TemplatedAnswer(roleName, question string, data DatasetContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on your %s data (%d rows, %d columns), here is what stands out for **%q**:\n\n",
		strings.ToLower(roleName), len(data.Rows), len(data.Columns), question)
	if len(data.Profiles) == 0 {
		b.WriteString("- No numeric columns were found; try one-hot encoding or a data validation pass first.\n")
	}
	for _, p := range data.Profiles {
		fmt.Fprintf(&b, "- %s\n", p)
	}
	b.WriteString("\nRun a role task such as summary statistics or correlation analysis for a closer look.")
	return b.String()
}
