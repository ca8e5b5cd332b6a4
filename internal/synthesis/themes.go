package synthesis

import (
	"context"
	"sort"
	"strings"

	"github.com/loomnote/synthesis-backend/internal/domain"
	"github.com/loomnote/synthesis-backend/internal/platform/envutil"
	"github.com/loomnote/synthesis-backend/internal/platform/logger"
)

// PriorityPolicy ranks a cluster from its member insights. A business rule,
// not an architectural contract, so it is injectable; the only requirement
// is determinism for identical input.
type PriorityPolicy func(insights []domain.Insight) domain.Priority

// DefaultPriorityPolicy promotes a theme to High when it recurs at least
// highFrequency times or carries a confident negative signal; pairs and
// moderately confident singletons land on Medium.
func DefaultPriorityPolicy() PriorityPolicy {
	highFrequency := envutil.Int("THEME_HIGH_FREQUENCY", 3)
	negConfidence := envutil.Float("THEME_NEGATIVE_CONFIDENCE", 0.85)
	moderate := envutil.Float("THEME_MODERATE_CONFIDENCE", 0.6)

	return func(insights []domain.Insight) domain.Priority {
		if len(insights) >= highFrequency {
			return domain.PriorityHigh
		}
		for _, ins := range insights {
			if ins.Sentiment == domain.SentimentNegative && ins.Confidence >= negConfidence {
				return domain.PriorityHigh
			}
		}
		if len(insights) == 2 || avgConfidence(insights) >= moderate {
			return domain.PriorityMedium
		}
		return domain.PriorityLow
	}
}

// Synthesizer clusters insights into named themes and produces the
// session-level executive summary.
type Synthesizer struct {
	log        *logger.Logger
	summarizer Summarizer
	policy     PriorityPolicy
}

func NewSynthesizer(log *logger.Logger, summarizer Summarizer) *Synthesizer {
	return &Synthesizer{
		log:        log.With("service", "ThemeSynthesizer"),
		summarizer: summarizer,
		policy:     DefaultPriorityPolicy(),
	}
}

// WithPolicy swaps the priority rule, mainly for tests and tuning.
func (s *Synthesizer) WithPolicy(p PriorityPolicy) *Synthesizer {
	s.policy = p
	return s
}

// Synthesize partitions insights into disjoint, exhaustive clusters keyed on
// the normalized theme label, then orders them by descending frequency,
// descending average confidence, first-seen. Summaries come from the
// summarizer seam; a summarizer failure degrades to a templated summary
// instead of failing the session.
func (s *Synthesizer) Synthesize(ctx context.Context, insights []domain.Insight) ([]domain.ThemeCluster, domain.ExecutiveSummary, []string) {
	groups := make(map[string][]domain.Insight)
	displayName := make(map[string]string)
	firstSeen := make(map[string]int)

	for i, ins := range insights {
		key := strings.ToLower(strings.TrimSpace(ins.Theme))
		if key == "" {
			key = "general"
		}
		if _, ok := groups[key]; !ok {
			name := strings.TrimSpace(ins.Theme)
			if name == "" {
				name = "General"
			}
			displayName[key] = name
			firstSeen[key] = i
		}
		groups[key] = append(groups[key], ins)
	}

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.SliceStable(keys, func(a, b int) bool {
		ka, kb := keys[a], keys[b]
		if len(groups[ka]) != len(groups[kb]) {
			return len(groups[ka]) > len(groups[kb])
		}
		ca, cb := avgConfidence(groups[ka]), avgConfidence(groups[kb])
		if ca != cb {
			return ca > cb
		}
		return firstSeen[ka] < firstSeen[kb]
	})

	var warnings []string
	clusters := make([]domain.ThemeCluster, 0, len(keys))
	for _, key := range keys {
		members := groups[key]
		name := displayName[key]

		summary, err := s.summarizer.SummarizeTheme(ctx, name, members)
		if err != nil {
			s.log.Warn("Theme summary fell back to template", "theme", name, "error", err)
			warnings = append(warnings, "theme summary for "+name+" used fallback: "+err.Error())
			summary = fallbackThemeSummary(name, members)
		}

		clusters = append(clusters, domain.ThemeCluster{
			ThemeName: name,
			Insights:  members,
			Frequency: len(members),
			Priority:  s.policy(members),
			Summary:   summary,
		})
	}

	exec, err := s.summarizer.ExecutiveSummary(ctx, clusters)
	if err != nil {
		s.log.Warn("Executive summary fell back to template", "error", err)
		warnings = append(warnings, "executive summary used fallback: "+err.Error())
		exec = fallbackExecutiveSummary(clusters)
	}

	s.log.Info("Theme synthesis complete", "themes", len(clusters), "insights", len(insights))
	return clusters, exec, warnings
}

func avgConfidence(insights []domain.Insight) float64 {
	if len(insights) == 0 {
		return 0
	}
	sum := 0.0
	for _, ins := range insights {
		sum += ins.Confidence
	}
	return sum / float64(len(insights))
}
