package synthesis

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomnote/synthesis-backend/internal/domain"
)

// stubSummarizer returns canned prose without touching the model.
type stubSummarizer struct {
	themeErr error
	execErr  error
}

func (s *stubSummarizer) SummarizeTheme(_ context.Context, name string, insights []domain.Insight) (string, error) {
	if s.themeErr != nil {
		return "", s.themeErr
	}
	return fmt.Sprintf("%s came up %d times.", name, len(insights)), nil
}

func (s *stubSummarizer) ExecutiveSummary(_ context.Context, themes []domain.ThemeCluster) (domain.ExecutiveSummary, error) {
	if s.execErr != nil {
		return domain.ExecutiveSummary{}, s.execErr
	}
	return domain.ExecutiveSummary{
		ResearchQuestion: "What blocks users?",
		KeyFinding:       fmt.Sprintf("%d themes identified.", len(themes)),
		KeyInsight:       "Navigation dominates.",
		Recommendation:   "Fix navigation first.",
	}, nil
}

func insightFor(theme, quote string, sentiment domain.Sentiment, confidence float64) domain.Insight {
	return domain.Insight{
		Quote:      quote,
		Theme:      theme,
		Sentiment:  sentiment,
		Confidence: confidence,
	}
}

func interviewInsights() []domain.Insight {
	return []domain.Insight{
		insightFor("Navigation Issues", "I could not find the settings", domain.SentimentNegative, 0.9),
		insightFor("Onboarding", "The tutorial skipped too fast", domain.SentimentNegative, 0.7),
		insightFor("navigation issues", "The menu structure confused me", domain.SentimentNegative, 0.8),
		insightFor("Performance", "It felt a bit slow once", domain.SentimentNeutral, 0.4),
		insightFor("Navigation Issues", "I gave up looking for export", domain.SentimentNegative, 0.85),
		insightFor("Onboarding", "I did not know where to start", domain.SentimentNeutral, 0.6),
		insightFor("NAVIGATION ISSUES", "Breadcrumbs would have helped", domain.SentimentNeutral, 0.5),
		insightFor("Navigation Issues", "Back button lost my work", domain.SentimentNegative, 0.95),
	}
}

func TestSynthesizePartitionIsDisjointAndExhaustive(t *testing.T) {
	s := NewSynthesizer(testLogger(t), &stubSummarizer{})
	insights := interviewInsights()

	clusters, _, warnings := s.Synthesize(context.Background(), insights)
	assert.Empty(t, warnings)

	total := 0
	seen := make(map[string]bool)
	for _, c := range clusters {
		assert.False(t, seen[c.ThemeName], "duplicate cluster %s", c.ThemeName)
		seen[c.ThemeName] = true
		assert.Equal(t, len(c.Insights), c.Frequency)
		total += c.Frequency
	}
	assert.Equal(t, len(insights), total)
}

func TestSynthesizeMergesThemeCasingsUnderFirstSeenName(t *testing.T) {
	s := NewSynthesizer(testLogger(t), &stubSummarizer{})

	clusters, _, _ := s.Synthesize(context.Background(), interviewInsights())
	require.Len(t, clusters, 3)
	assert.Equal(t, "Navigation Issues", clusters[0].ThemeName)
	assert.Equal(t, 5, clusters[0].Frequency)
}

func TestSynthesizeOrderingAndPriorities(t *testing.T) {
	s := NewSynthesizer(testLogger(t), &stubSummarizer{})

	clusters, _, _ := s.Synthesize(context.Background(), interviewInsights())
	require.Len(t, clusters, 3)

	assert.Equal(t, "Navigation Issues", clusters[0].ThemeName)
	assert.Equal(t, domain.PriorityHigh, clusters[0].Priority)

	assert.Equal(t, "Onboarding", clusters[1].ThemeName)
	assert.Equal(t, domain.PriorityMedium, clusters[1].Priority)

	assert.Equal(t, "Performance", clusters[2].ThemeName)
	assert.Equal(t, domain.PriorityLow, clusters[2].Priority)
}

func TestSynthesizeFrequencyTieBrokenByAverageConfidence(t *testing.T) {
	s := NewSynthesizer(testLogger(t), &stubSummarizer{})

	insights := []domain.Insight{
		insightFor("Onboarding", "q1", domain.SentimentNeutral, 0.5),
		insightFor("Navigation Issues", "q2", domain.SentimentNegative, 0.9),
		insightFor("Onboarding", "q3", domain.SentimentNeutral, 0.5),
		insightFor("Performance", "q4", domain.SentimentNeutral, 0.6),
		insightFor("Navigation Issues", "q5", domain.SentimentNegative, 0.9),
		insightFor("Onboarding", "q6", domain.SentimentNeutral, 0.5),
		insightFor("Performance", "q7", domain.SentimentNeutral, 0.6),
		insightFor("Navigation Issues", "q8", domain.SentimentNegative, 0.9),
		insightFor("Performance", "q9", domain.SentimentNeutral, 0.6),
		insightFor("Onboarding", "q10", domain.SentimentNeutral, 0.5),
		insightFor("Navigation Issues", "q11", domain.SentimentNegative, 0.9),
	}

	clusters, _, _ := s.Synthesize(context.Background(), insights)
	require.Len(t, clusters, 3)

	// Navigation and Onboarding both appear 4 times; higher average
	// confidence puts Navigation first.
	assert.Equal(t, "Navigation Issues", clusters[0].ThemeName)
	assert.Equal(t, 4, clusters[0].Frequency)
	assert.Equal(t, "Onboarding", clusters[1].ThemeName)
	assert.Equal(t, 4, clusters[1].Frequency)
	assert.Equal(t, "Performance", clusters[2].ThemeName)
	assert.Equal(t, 3, clusters[2].Frequency)
}

func TestSynthesizeIsDeterministic(t *testing.T) {
	s := NewSynthesizer(testLogger(t), &stubSummarizer{})
	insights := interviewInsights()

	first, execA, _ := s.Synthesize(context.Background(), insights)
	second, execB, _ := s.Synthesize(context.Background(), insights)
	assert.Equal(t, first, second)
	assert.Equal(t, execA, execB)
}

func TestSynthesizeEmptyThemeFallsBackToGeneral(t *testing.T) {
	s := NewSynthesizer(testLogger(t), &stubSummarizer{})
	clusters, _, _ := s.Synthesize(context.Background(), []domain.Insight{
		insightFor("  ", "orphan quote", domain.SentimentNeutral, 0.5),
	})
	require.Len(t, clusters, 1)
	assert.Equal(t, "General", clusters[0].ThemeName)
}

func TestSynthesizeSummarizerFailureDegradesToTemplate(t *testing.T) {
	s := NewSynthesizer(testLogger(t), &stubSummarizer{
		themeErr: errors.New("model unavailable"),
		execErr:  errors.New("model unavailable"),
	})

	clusters, exec, warnings := s.Synthesize(context.Background(), interviewInsights())
	require.Len(t, clusters, 3)
	for _, c := range clusters {
		assert.NotEmpty(t, c.Summary)
	}
	assert.NotEmpty(t, exec.KeyFinding)
	assert.NotEmpty(t, warnings)
}

func TestDefaultPriorityPolicyConfidentNegativeSingleton(t *testing.T) {
	policy := DefaultPriorityPolicy()
	p := policy([]domain.Insight{
		insightFor("Data Loss", "It deleted my project", domain.SentimentNegative, 0.95),
	})
	assert.Equal(t, domain.PriorityHigh, p)
}

func TestDefaultPriorityPolicyLowSingleton(t *testing.T) {
	policy := DefaultPriorityPolicy()
	p := policy([]domain.Insight{
		insightFor("Minor Nit", "The icon looked dated", domain.SentimentNeutral, 0.3),
	})
	assert.Equal(t, domain.PriorityLow, p)
}

func TestWithPolicyOverridesRanking(t *testing.T) {
	s := NewSynthesizer(testLogger(t), &stubSummarizer{}).WithPolicy(func([]domain.Insight) domain.Priority {
		return domain.PriorityHigh
	})
	clusters, _, _ := s.Synthesize(context.Background(), interviewInsights())
	for _, c := range clusters {
		assert.Equal(t, domain.PriorityHigh, c.Priority)
	}
}
