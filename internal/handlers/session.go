package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/loomnote/synthesis-backend/internal/ingest"
	"github.com/loomnote/synthesis-backend/internal/ingest/extract"
	"github.com/loomnote/synthesis-backend/internal/pipeline"
	"github.com/loomnote/synthesis-backend/internal/platform/apierr"
	"github.com/loomnote/synthesis-backend/internal/platform/logger"
	"github.com/loomnote/synthesis-backend/internal/store"
	"github.com/loomnote/synthesis-backend/internal/synthesis"
)

type SessionHandler struct {
	log          *logger.Logger
	orchestrator *pipeline.Orchestrator
	maxBytes     int64
}

func NewSessionHandler(log *logger.Logger, orchestrator *pipeline.Orchestrator) *SessionHandler {
	return &SessionHandler{
		log:          log.With("handler", "SessionHandler"),
		orchestrator: orchestrator,
		maxBytes:     ingest.MaxFileBytes(),
	}
}

// Submit accepts a multipart upload under the "files" field, registers a
// session, and returns 202 immediately. Processing runs in the background.
func (h *SessionHandler) Submit(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		RespondError(c, apierr.BadRequest("invalid_request", fmt.Errorf("multipart form required: %w", err)))
		return
	}
	uploads := form.File["files"]
	if len(uploads) == 0 {
		RespondError(c, apierr.BadRequest("no_files", errors.New("at least one file is required")))
		return
	}

	files := make([]extract.File, 0, len(uploads))
	for _, fh := range uploads {
		// Oversized uploads are never buffered; the pipeline records them
		// as per-file failures from the declared size alone.
		if fh.Size > h.maxBytes {
			files = append(files, extract.File{Name: fh.Filename, Size: fh.Size})
			continue
		}
		src, err := fh.Open()
		if err != nil {
			RespondError(c, apierr.BadRequest("unreadable_file", fmt.Errorf("open %s: %w", fh.Filename, err)))
			return
		}
		content, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			RespondError(c, apierr.BadRequest("unreadable_file", fmt.Errorf("read %s: %w", fh.Filename, err)))
			return
		}
		files = append(files, extract.File{Name: fh.Filename, Content: content})
	}

	session, err := h.orchestrator.Submit(c.Request.Context(), files)
	if err != nil {
		h.log.Error("Session submission failed", "error", err)
		RespondError(c, err)
		return
	}
	RespondAccepted(c, session)
}

// Status returns the live session snapshot for polling clients.
func (h *SessionHandler) Status(c *gin.Context) {
	id := c.Param("id")
	session, err := h.orchestrator.Status(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			RespondError(c, apierr.NotFound("session_not_found", fmt.Errorf("session %s not found", id)))
			return
		}
		RespondError(c, err)
		return
	}
	RespondOK(c, session)
}

// Results returns the completed session with its report. A session still in
// flight yields 409 so clients keep polling Status.
func (h *SessionHandler) Results(c *gin.Context) {
	id := c.Param("id")
	session, err := h.orchestrator.Results(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			RespondError(c, apierr.NotFound("session_not_found", fmt.Errorf("session %s not found", id)))
		case errors.Is(err, pipeline.ErrNotReady):
			RespondError(c, apierr.Conflict("not_ready", errors.New("session is still processing")))
		default:
			RespondError(c, err)
		}
		return
	}
	RespondOK(c, session)
}

// Report streams the assembled report in the requested format. Supported
// formats are json (default) and markdown.
func (h *SessionHandler) Report(c *gin.Context) {
	id := c.Param("id")
	session, err := h.orchestrator.Results(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			RespondError(c, apierr.NotFound("session_not_found", fmt.Errorf("session %s not found", id)))
		case errors.Is(err, pipeline.ErrNotReady):
			RespondError(c, apierr.Conflict("not_ready", errors.New("session is still processing")))
		default:
			RespondError(c, err)
		}
		return
	}
	switch c.DefaultQuery("format", "json") {
	case "markdown":
		summary, detailed := synthesis.RenderMarkdown(session.Report)
		c.String(http.StatusOK, summary+"\n\n---\n\n"+detailed)
	default:
		RespondOK(c, session.Report)
	}
}
