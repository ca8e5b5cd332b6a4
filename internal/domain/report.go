package domain

// Priority ranks a theme's relative importance.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Rank returns a sortable weight, higher meaning more important.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// ThemeCluster is a named grouping of insights sharing a topic. Clusters are
// disjoint and collectively exhaustive over a session's insights.
type ThemeCluster struct {
	ThemeName string    `json:"theme_name"`
	Insights  []Insight `json:"insights"`
	Frequency int       `json:"frequency"`
	Priority  Priority  `json:"priority"`
	Summary   string    `json:"summary"`
}

// ExecutiveSummary is the session-level digest placed at the top of a report.
type ExecutiveSummary struct {
	ResearchQuestion string `json:"research_question"`
	KeyFinding       string `json:"key_finding"`
	KeyInsight       string `json:"key_insight"`
	Recommendation   string `json:"recommendation"`
}

// SupportingQuote attributes a verbatim excerpt inside a key insight.
type SupportingQuote struct {
	Quote   string `json:"quote"`
	Speaker string `json:"speaker,omitempty"`
}

// KeyInsight is one presentation-ready card derived from a priority theme.
type KeyInsight struct {
	Title            string            `json:"title"`
	MainFinding      string            `json:"main_finding"`
	Priority         Priority          `json:"priority"`
	SupportingQuotes []SupportingQuote `json:"supporting_quotes"`
}

// Recommendation is one actionable follow-up derived from a theme.
type Recommendation struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Details     []string `json:"details"`
}

// Report is the final structured deliverable for a session. Owned by the
// session once assembled; immutable thereafter.
type Report struct {
	ExecutiveSummary ExecutiveSummary `json:"executive_summary"`
	Themes           []ThemeCluster   `json:"themes"`
	KeyInsights      []KeyInsight     `json:"key_insights"`
	Recommendations  []Recommendation `json:"recommendations"`
}

// TotalInsights counts insights across all theme clusters.
func (r *Report) TotalInsights() int {
	n := 0
	for _, t := range r.Themes {
		n += len(t.Insights)
	}
	return n
}
