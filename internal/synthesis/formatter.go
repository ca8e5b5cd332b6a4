package synthesis

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/loomnote/synthesis-backend/internal/domain"
)

const maxSupportingQuotes = 3

// Format assembles the final report from clustered themes. Pure and
// deterministic: no I/O, no model calls, same input yields the same report.
func Format(themes []domain.ThemeCluster, exec domain.ExecutiveSummary) *domain.Report {
	report := &domain.Report{
		ExecutiveSummary: exec,
		Themes:           themes,
		KeyInsights:      make([]domain.KeyInsight, 0, len(themes)),
		Recommendations:  make([]domain.Recommendation, 0, len(themes)),
	}

	for _, t := range themes {
		if t.Priority.Rank() < domain.PriorityMedium.Rank() {
			continue
		}
		report.KeyInsights = append(report.KeyInsights, keyInsightCard(t))
		report.Recommendations = append(report.Recommendations, recommendationFor(t))
	}
	return report
}

func keyInsightCard(t domain.ThemeCluster) domain.KeyInsight {
	quotes := make([]domain.SupportingQuote, 0, maxSupportingQuotes)
	for _, ins := range topInsights(t.Insights, maxSupportingQuotes) {
		quotes = append(quotes, domain.SupportingQuote{
			Quote:   ins.Quote,
			Speaker: ins.Speaker,
		})
	}

	finding := t.Summary
	if finding == "" && len(t.Insights) > 0 {
		finding = fmt.Sprintf("%d participants raised %s.", t.Frequency, t.ThemeName)
	}

	return domain.KeyInsight{
		Title:            t.ThemeName,
		MainFinding:      finding,
		Priority:         t.Priority,
		SupportingQuotes: quotes,
	}
}

func recommendationFor(t domain.ThemeCluster) domain.Recommendation {
	details := make([]string, 0, maxSupportingQuotes)
	for _, ins := range topInsights(t.Insights, maxSupportingQuotes) {
		if ctx := strings.TrimSpace(ins.Context); ctx != "" {
			details = append(details, ctx)
		}
	}
	return domain.Recommendation{
		Title:       "Address " + t.ThemeName,
		Description: fmt.Sprintf("Mentioned %d times with %s priority. %s", t.Frequency, strings.ToLower(string(t.Priority)), t.Summary),
		Details:     details,
	}
}

// topInsights returns up to n members ordered by descending confidence,
// ties keeping input order.
func topInsights(insights []domain.Insight, n int) []domain.Insight {
	best := make([]domain.Insight, len(insights))
	copy(best, insights)
	sort.SliceStable(best, func(i, j int) bool { return best[i].Confidence > best[j].Confidence })
	if len(best) > n {
		best = best[:n]
	}
	return best
}

// RenderJSON serializes a report for download endpoints.
func RenderJSON(r *domain.Report) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// RenderMarkdown produces the two human-readable report documents: a short
// executive summary and the full annotated findings.
func RenderMarkdown(r *domain.Report) (summary string, detailed string) {
	var s strings.Builder
	s.WriteString("# Executive Summary\n\n")
	fmt.Fprintf(&s, "**Research question:** %s\n\n", r.ExecutiveSummary.ResearchQuestion)
	fmt.Fprintf(&s, "**Key finding:** %s\n\n", r.ExecutiveSummary.KeyFinding)
	fmt.Fprintf(&s, "**Key insight:** %s\n\n", r.ExecutiveSummary.KeyInsight)
	fmt.Fprintf(&s, "**Recommendation:** %s\n", r.ExecutiveSummary.Recommendation)

	var d strings.Builder
	d.WriteString("# Detailed Findings\n")
	for _, t := range r.Themes {
		fmt.Fprintf(&d, "\n## %s\n\n", t.ThemeName)
		fmt.Fprintf(&d, "*Priority: %s · Mentions: %d*\n\n", t.Priority, t.Frequency)
		if t.Summary != "" {
			d.WriteString(t.Summary + "\n\n")
		}
		for _, ins := range t.Insights {
			fmt.Fprintf(&d, "> %s\n", ins.Quote)
			attribution := make([]string, 0, 2)
			if ins.Speaker != "" {
				attribution = append(attribution, ins.Speaker)
			}
			if ins.Timestamp != "" {
				attribution = append(attribution, ins.Timestamp)
			}
			if len(attribution) > 0 {
				fmt.Fprintf(&d, ">\n> %s\n", strings.Join(attribution, ", "))
			}
			d.WriteString("\n")
		}
	}

	if len(r.Recommendations) > 0 {
		d.WriteString("\n## Recommendations\n")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(&d, "\n### %s\n\n%s\n", rec.Title, rec.Description)
			for _, item := range rec.Details {
				fmt.Fprintf(&d, "- %s\n", item)
			}
		}
	}

	return s.String(), d.String()
}
