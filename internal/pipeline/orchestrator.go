package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/loomnote/synthesis-backend/internal/domain"
	"github.com/loomnote/synthesis-backend/internal/ingest"
	"github.com/loomnote/synthesis-backend/internal/ingest/extract"
	"github.com/loomnote/synthesis-backend/internal/platform/envutil"
	"github.com/loomnote/synthesis-backend/internal/platform/logger"
	"github.com/loomnote/synthesis-backend/internal/store"
	"github.com/loomnote/synthesis-backend/internal/synthesis"
)

// ErrNotReady means the session exists but has not completed yet, so there
// is no report to return.
var ErrNotReady = errors.New("pipeline: session has no results yet")

// Orchestrator owns the session lifecycle: it accepts uploads, runs the
// stages in order, and records progress in the session store after every
// stage boundary.
type Orchestrator struct {
	log         *logger.Logger
	store       store.SessionStore
	ingestor    *ingest.Ingestor
	analyzer    *synthesis.Analyzer
	synthesizer *synthesis.Synthesizer
	timeout     time.Duration
}

func NewOrchestrator(
	log *logger.Logger,
	st store.SessionStore,
	ingestor *ingest.Ingestor,
	analyzer *synthesis.Analyzer,
	synthesizer *synthesis.Synthesizer,
) *Orchestrator {
	return &Orchestrator{
		log:         log.With("service", "Orchestrator"),
		store:       st,
		ingestor:    ingestor,
		analyzer:    analyzer,
		synthesizer: synthesizer,
		timeout:     envutil.Seconds("PIPELINE_TIMEOUT_SECONDS", 600*time.Second),
	}
}

// Submit registers a new session and starts processing in the background.
// It returns as soon as the pending session is persisted; progress is
// observable through Status.
func (o *Orchestrator) Submit(ctx context.Context, files []extract.File) (*domain.Session, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("pipeline: no files submitted")
	}

	now := time.Now().UTC()
	s := &domain.Session{
		ID:        uuid.NewString(),
		Status:    domain.StatusPending,
		Phase:     domain.PhaseInitialization,
		CreatedAt: now,
		UpdatedAt: now,
		FileCount: len(files),
	}
	if err := o.store.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("pipeline: create session: %w", err)
	}

	o.log.Info("Session submitted", "session_id", s.ID, "files", len(files))
	go o.run(s.ID, files)
	return s, nil
}

// Status returns the current session snapshot.
func (o *Orchestrator) Status(ctx context.Context, id string) (*domain.Session, error) {
	return o.store.Get(ctx, id)
}

// Results returns the completed session including its report. Any session
// not yet completed, failed ones included, yields ErrNotReady; failure
// details are read through Status.
func (o *Orchestrator) Results(ctx context.Context, id string) (*domain.Session, error) {
	s, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Status != domain.StatusCompleted || s.Report == nil {
		return nil, fmt.Errorf("%w: session %s is %s", ErrNotReady, id, s.Status)
	}
	return s, nil
}

// run drives a session through every stage. It always leaves the session in
// a terminal state, including on panic and on timeout.
func (o *Orchestrator) run(id string, files []extract.File) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			o.log.Error("Pipeline worker panicked", "session_id", id, "panic", r)
			o.fail(id, fmt.Sprintf("internal processing error: %v", r))
		}
	}()

	if err := o.update(ctx, id, func(s *domain.Session) error {
		s.Status = domain.StatusProcessing
		s.Phase = domain.PhaseIngestion
		return nil
	}); err != nil {
		o.log.Error("Failed to mark session processing", "session_id", id, "error", err)
		return
	}

	chunks, warnings, processed := o.ingestAll(ctx, id, files)
	if processed == 0 {
		o.fail(id, "no files could be processed")
		return
	}

	if err := o.update(ctx, id, func(s *domain.Session) error {
		s.Phase = domain.PhaseInsightAnalysis
		s.FilesProcessed = processed
		s.Warnings = append(s.Warnings, warnings...)
		return nil
	}); err != nil {
		return
	}

	insights, analysisWarnings := o.analyzer.AnalyzeAll(ctx, chunks)
	if ctx.Err() != nil {
		o.fail(id, "processing timed out")
		return
	}
	if len(insights) == 0 {
		o.fail(id, "no insights could be extracted from the submitted documents")
		return
	}

	if err := o.update(ctx, id, func(s *domain.Session) error {
		s.Phase = domain.PhaseThemeSynthesis
		s.InsightsExtracted = len(insights)
		s.Warnings = append(s.Warnings, analysisWarnings...)
		return nil
	}); err != nil {
		return
	}

	themes, exec, synthWarnings := o.synthesizer.Synthesize(ctx, insights)
	if ctx.Err() != nil {
		o.fail(id, "processing timed out")
		return
	}

	if err := o.update(ctx, id, func(s *domain.Session) error {
		s.Phase = domain.PhaseFormatting
		s.ThemesIdentified = len(themes)
		s.Warnings = append(s.Warnings, synthWarnings...)
		return nil
	}); err != nil {
		return
	}

	report := synthesis.Format(themes, exec)

	// Report and completed status land in one write so no observer ever
	// sees a completed session without its report.
	if err := o.update(ctx, id, func(s *domain.Session) error {
		s.Status = domain.StatusCompleted
		s.Phase = domain.PhaseDone
		s.Report = report
		return nil
	}); err != nil {
		return
	}
	o.log.Info("Session completed",
		"session_id", id,
		"insights", len(insights),
		"themes", len(themes),
	)
}

// ingestAll extracts and chunks each file, recording per-file failures as
// warnings instead of aborting the session.
func (o *Orchestrator) ingestAll(ctx context.Context, id string, files []extract.File) (chunks []domain.Chunk, warnings []string, processed int) {
	for _, f := range files {
		fc, err := o.ingestor.Ingest(ctx, f)
		if err != nil {
			o.log.Warn("File skipped", "session_id", id, "file", f.Name, "error", err)
			warnings = append(warnings, fmt.Sprintf("file %s skipped: %v", f.Name, err))
			continue
		}
		chunks = append(chunks, fc...)
		processed++
	}
	return chunks, warnings, processed
}

func (o *Orchestrator) update(ctx context.Context, id string, mutate store.Mutator) error {
	if _, err := o.store.Update(ctx, id, mutate); err != nil {
		o.log.Error("Session update failed", "session_id", id, "error", err)
		// A deadline hit mid-stage would otherwise strand the session in
		// processing forever.
		if ctx.Err() != nil {
			o.fail(id, "processing timed out")
		}
		return err
	}
	return nil
}

// fail marks a session failed with a fresh context so the terminal write
// succeeds even after the pipeline deadline expired.
func (o *Orchestrator) fail(id, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := o.store.Update(ctx, id, func(s *domain.Session) error {
		s.Status = domain.StatusFailed
		s.ErrorMessage = message
		return nil
	})
	if err != nil && !errors.Is(err, store.ErrIllegalTransition) {
		o.log.Error("Failed to mark session failed", "session_id", id, "error", err)
	}
}
