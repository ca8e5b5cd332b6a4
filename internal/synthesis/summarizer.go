package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/loomnote/synthesis-backend/internal/domain"
	"github.com/loomnote/synthesis-backend/internal/platform/logger"
	"github.com/loomnote/synthesis-backend/internal/platform/openai"
)

// Summarizer is the prose-generation seam. Clustering, priority assignment
// and report structure never depend on it, so everything around it stays
// deterministic and unit-testable.
type Summarizer interface {
	SummarizeTheme(ctx context.Context, name string, insights []domain.Insight) (string, error)
	ExecutiveSummary(ctx context.Context, themes []domain.ThemeCluster) (domain.ExecutiveSummary, error)
}

const themeSystemPrompt = `You are a senior UX researcher. Summarize the theme that connects the quoted insights in two or three sentences, covering what users experience and why it matters.`

const executiveSystemPrompt = `You are a senior UX researcher writing an executive summary for stakeholders. Be specific and action-oriented; quantify findings when the data allows.`

type modelSummarizer struct {
	log *logger.Logger
	ai  openai.Client
}

func NewModelSummarizer(log *logger.Logger, ai openai.Client) Summarizer {
	return &modelSummarizer{
		log: log.With("service", "ThemeSummarizer"),
		ai:  ai,
	}
}

func (m *modelSummarizer) SummarizeTheme(ctx context.Context, name string, insights []domain.Insight) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Theme: %s\n\nInsights:\n", name)
	for _, ins := range insights {
		fmt.Fprintf(&b, "- %q (sentiment: %s, confidence: %.2f)\n", ins.Quote, ins.Sentiment, ins.Confidence)
	}

	obj, err := m.ai.GenerateJSON(ctx, themeSystemPrompt, b.String(), "theme_summary", themeSummarySchema())
	if err != nil {
		return "", err
	}
	summary, _ := obj["summary"].(string)
	if strings.TrimSpace(summary) == "" {
		return "", fmt.Errorf("empty theme summary")
	}
	return strings.TrimSpace(summary), nil
}

func (m *modelSummarizer) ExecutiveSummary(ctx context.Context, themes []domain.ThemeCluster) (domain.ExecutiveSummary, error) {
	var b strings.Builder
	b.WriteString("Theme overview:\n")
	for _, t := range themes {
		fmt.Fprintf(&b, "- %s (%s priority, %d mentions): %s\n", t.ThemeName, t.Priority, t.Frequency, t.Summary)
		for i, ins := range t.Insights {
			if i >= 3 {
				break
			}
			fmt.Fprintf(&b, "  - %q\n", ins.Quote)
		}
	}

	obj, err := m.ai.GenerateJSON(ctx, executiveSystemPrompt, b.String(), "executive_summary", executiveSummarySchema())
	if err != nil {
		return domain.ExecutiveSummary{}, err
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return domain.ExecutiveSummary{}, err
	}
	var out domain.ExecutiveSummary
	if err := json.Unmarshal(raw, &out); err != nil {
		return domain.ExecutiveSummary{}, err
	}
	if strings.TrimSpace(out.KeyFinding) == "" {
		return domain.ExecutiveSummary{}, fmt.Errorf("empty executive summary")
	}
	return out, nil
}

// fallbackThemeSummary builds a templated summary from the cluster's top
// quotes when the model is unavailable.
func fallbackThemeSummary(name string, insights []domain.Insight) string {
	negatives := 0
	for _, ins := range insights {
		if ins.Sentiment == domain.SentimentNegative {
			negatives++
		}
	}
	top := topQuotes(insights, 2)
	summary := fmt.Sprintf("%q surfaced in %d insight(s), %d of them negative.", name, len(insights), negatives)
	if len(top) > 0 {
		summary += fmt.Sprintf(" Representative quote: %q.", top[0])
	}
	return summary
}

func fallbackExecutiveSummary(themes []domain.ThemeCluster) domain.ExecutiveSummary {
	total := 0
	for _, t := range themes {
		total += t.Frequency
	}
	lead := "the research sessions"
	if len(themes) > 0 {
		lead = fmt.Sprintf("%q", themes[0].ThemeName)
	}
	return domain.ExecutiveSummary{
		ResearchQuestion: "What do the collected research sessions reveal about user needs and friction?",
		KeyFinding:       fmt.Sprintf("%d insights across %d themes, led by %s.", total, len(themes), lead),
		KeyInsight:       "The dominant themes concentrate most of the observed friction and should anchor follow-up work.",
		Recommendation:   "Prioritize the high-priority themes and validate fixes with a follow-up study.",
	}
}

func topQuotes(insights []domain.Insight, n int) []string {
	best := make([]domain.Insight, len(insights))
	copy(best, insights)
	// Highest confidence first; stable so ties keep input order.
	sort.SliceStable(best, func(i, j int) bool { return best[i].Confidence > best[j].Confidence })
	if n > len(best) {
		n = len(best)
	}
	out := make([]string, 0, n)
	for _, ins := range best[:n] {
		out = append(out, ins.Quote)
	}
	return out
}
