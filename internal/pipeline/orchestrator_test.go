package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomnote/synthesis-backend/internal/domain"
	"github.com/loomnote/synthesis-backend/internal/ingest"
	"github.com/loomnote/synthesis-backend/internal/ingest/extract"
	"github.com/loomnote/synthesis-backend/internal/platform/logger"
	"github.com/loomnote/synthesis-backend/internal/store"
	"github.com/loomnote/synthesis-backend/internal/synthesis"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("production")
	require.NoError(t, err)
	return log
}

// scriptedClient returns one canned insight per analysis call. The gate
// channel, when set, holds every call until it is closed.
type scriptedClient struct {
	gate     chan struct{}
	insights []any
	err      error
}

func (c *scriptedClient) GenerateJSON(ctx context.Context, _ string, _ string, _ string, _ map[string]any) (map[string]any, error) {
	if c.gate != nil {
		select {
		case <-c.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.err != nil {
		return nil, c.err
	}
	return map[string]any{"insights": c.insights}, nil
}

func (c *scriptedClient) GenerateText(context.Context, string, string) (string, error) {
	return "", errors.New("not scripted")
}

type cannedSummarizer struct{}

func (cannedSummarizer) SummarizeTheme(_ context.Context, name string, insights []domain.Insight) (string, error) {
	return name + " summary", nil
}

func (cannedSummarizer) ExecutiveSummary(context.Context, []domain.ThemeCluster) (domain.ExecutiveSummary, error) {
	return domain.ExecutiveSummary{
		ResearchQuestion: "What blocks users?",
		KeyFinding:       "Navigation friction dominates.",
		KeyInsight:       "Core actions are buried.",
		Recommendation:   "Flatten the hierarchy.",
	}, nil
}

func newTestOrchestrator(t *testing.T, client *scriptedClient) *Orchestrator {
	t.Helper()
	log := testLogger(t)
	sessions := store.NewMemoryStore(log, time.Hour)
	ingestor := ingest.NewIngestor(log, extract.DefaultRegistry())
	analyzer := synthesis.NewAnalyzer(log, client)
	synthesizer := synthesis.NewSynthesizer(log, cannedSummarizer{})
	return NewOrchestrator(log, sessions, ingestor, analyzer, synthesizer)
}

func defaultInsights() []any {
	return []any{map[string]any{
		"quote":      "I could not find the settings",
		"speaker":    "P1",
		"theme":      "Navigation Issues",
		"sentiment":  "Negative",
		"confidence": 0.9,
		"context":    "settings task",
		"timestamp":  "",
	}}
}

func txtFile(name string) extract.File {
	return extract.File{Name: name, Content: []byte("P1: I could not find the settings anywhere in the app.")}
}

func waitForTerminal(t *testing.T, o *Orchestrator, id string) *domain.Session {
	t.Helper()
	var final *domain.Session
	require.Eventually(t, func() bool {
		s, err := o.Status(context.Background(), id)
		if err != nil {
			return false
		}
		if s.Status.Terminal() {
			final = s
			return true
		}
		return false
	}, 10*time.Second, 20*time.Millisecond)
	return final
}

func TestPipelineCompletesAndPublishesReport(t *testing.T) {
	o := newTestOrchestrator(t, &scriptedClient{insights: defaultInsights()})

	submitted, err := o.Submit(context.Background(), []extract.File{txtFile("s1.txt")})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, submitted.Status)
	assert.Equal(t, 1, submitted.FileCount)

	final := waitForTerminal(t, o, submitted.ID)
	require.Equal(t, domain.StatusCompleted, final.Status)
	assert.Equal(t, domain.PhaseDone, final.Phase)
	assert.Equal(t, 1, final.FilesProcessed)
	assert.Equal(t, 1, final.InsightsExtracted)
	assert.Equal(t, 1, final.ThemesIdentified)
	require.NotNil(t, final.Report)
	assert.Equal(t, "Navigation Issues", final.Report.Themes[0].ThemeName)

	results, err := o.Results(context.Background(), submitted.ID)
	require.NoError(t, err)
	assert.NotNil(t, results.Report)
}

func TestPipelineSkipsUnreadableFilesButCompletes(t *testing.T) {
	o := newTestOrchestrator(t, &scriptedClient{insights: defaultInsights()})

	files := []extract.File{
		txtFile("good.txt"),
		{Name: "diagram.png", Content: []byte("not text")},
	}
	submitted, err := o.Submit(context.Background(), files)
	require.NoError(t, err)

	final := waitForTerminal(t, o, submitted.ID)
	require.Equal(t, domain.StatusCompleted, final.Status)
	assert.Equal(t, 1, final.FilesProcessed)
	require.NotEmpty(t, final.Warnings)
	assert.Contains(t, final.Warnings[0], "diagram.png")
}

func TestPipelineFailsWhenNoFileIsProcessable(t *testing.T) {
	o := newTestOrchestrator(t, &scriptedClient{insights: defaultInsights()})

	submitted, err := o.Submit(context.Background(), []extract.File{
		{Name: "diagram.png", Content: []byte("not text")},
	})
	require.NoError(t, err)

	final := waitForTerminal(t, o, submitted.ID)
	require.Equal(t, domain.StatusFailed, final.Status)
	assert.Contains(t, final.ErrorMessage, "no files")
	assert.Nil(t, final.Report)
}

func TestPipelineFailsWhenNoInsightsExtracted(t *testing.T) {
	o := newTestOrchestrator(t, &scriptedClient{insights: []any{}})

	submitted, err := o.Submit(context.Background(), []extract.File{txtFile("s1.txt")})
	require.NoError(t, err)

	final := waitForTerminal(t, o, submitted.ID)
	require.Equal(t, domain.StatusFailed, final.Status)
	assert.Contains(t, final.ErrorMessage, "no insights")
}

func TestPipelineRejectsEmptySubmission(t *testing.T) {
	o := newTestOrchestrator(t, &scriptedClient{})
	_, err := o.Submit(context.Background(), nil)
	assert.Error(t, err)
}

func TestResultsBeforeCompletionIsNotReady(t *testing.T) {
	gate := make(chan struct{})
	o := newTestOrchestrator(t, &scriptedClient{gate: gate, insights: defaultInsights()})

	submitted, err := o.Submit(context.Background(), []extract.File{txtFile("s1.txt")})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s, err := o.Status(context.Background(), submitted.ID)
		return err == nil && s.Status == domain.StatusProcessing
	}, 5*time.Second, 10*time.Millisecond)

	_, err = o.Results(context.Background(), submitted.ID)
	assert.True(t, errors.Is(err, ErrNotReady))

	close(gate)
	final := waitForTerminal(t, o, submitted.ID)
	assert.Equal(t, domain.StatusCompleted, final.Status)
}

func TestPipelineTimeoutForcesFailedState(t *testing.T) {
	t.Setenv("PIPELINE_TIMEOUT_SECONDS", "1")

	// The gate is never opened, so every model call hangs until the
	// pipeline deadline cancels it.
	gate := make(chan struct{})
	o := newTestOrchestrator(t, &scriptedClient{gate: gate, insights: defaultInsights()})

	submitted, err := o.Submit(context.Background(), []extract.File{txtFile("s1.txt")})
	require.NoError(t, err)

	final := waitForTerminal(t, o, submitted.ID)
	require.Equal(t, domain.StatusFailed, final.Status)
	assert.Contains(t, final.ErrorMessage, "timed out")
	assert.Nil(t, final.Report)
}

func TestResultsUnknownSession(t *testing.T) {
	o := newTestOrchestrator(t, &scriptedClient{})
	_, err := o.Results(context.Background(), "nope")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestResultsOnFailedSessionIsNotReady(t *testing.T) {
	o := newTestOrchestrator(t, &scriptedClient{insights: []any{}})

	submitted, err := o.Submit(context.Background(), []extract.File{txtFile("s1.txt")})
	require.NoError(t, err)
	final := waitForTerminal(t, o, submitted.ID)
	require.Equal(t, domain.StatusFailed, final.Status)

	// Failure details come back through Status, never through Results.
	_, err = o.Results(context.Background(), submitted.ID)
	assert.True(t, errors.Is(err, ErrNotReady))
	assert.NotEmpty(t, final.ErrorMessage)
}
