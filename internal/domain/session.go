package domain

import (
	"time"
)

// Status is the lifecycle state of a synthesis session. Transitions are
// one-directional: pending -> processing -> completed|failed.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next is a legal lifecycle
// step. Terminal states accept nothing; a session never returns to pending.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusFailed
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// Phase names the pipeline stage a processing session is currently in.
// Purely informational; clients poll it for progress display.
type Phase string

const (
	PhaseInitialization  Phase = "initialization"
	PhaseIngestion       Phase = "document_ingestion"
	PhaseInsightAnalysis Phase = "insight_analysis"
	PhaseThemeSynthesis  Phase = "theme_synthesis"
	PhaseFormatting      Phase = "output_formatting"
	PhaseDone            Phase = "completed"
)

// Session tracks one end-to-end processing request. It is created by the
// orchestrator at submission time and mutated only by the orchestrator.
type Session struct {
	ID        string    `json:"session_id"`
	Status    Status    `json:"status"`
	Phase     Phase     `json:"current_phase"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	FileCount         int `json:"file_count"`
	FilesProcessed    int `json:"files_processed"`
	InsightsExtracted int `json:"insights_extracted"`
	ThemesIdentified  int `json:"themes_identified"`

	// Warnings collect per-file and per-chunk recoverable failures.
	Warnings []string `json:"warnings,omitempty"`

	// ErrorMessage is set only when Status is failed.
	ErrorMessage string `json:"error_message,omitempty"`

	// Report is set on the single transition into completed and is immutable
	// thereafter.
	Report *Report `json:"report,omitempty"`
}
