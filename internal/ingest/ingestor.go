package ingest

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/loomnote/synthesis-backend/internal/domain"
	"github.com/loomnote/synthesis-backend/internal/ingest/extract"
	"github.com/loomnote/synthesis-backend/internal/platform/envutil"
	"github.com/loomnote/synthesis-backend/internal/platform/logger"
)

// ErrFileTooLarge is raised before any extraction is attempted.
var ErrFileTooLarge = errors.New("file exceeds size limit")

const (
	defaultMaxFileBytes = 10 << 20 // 10 MiB
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
)

// MaxFileBytes is the per-file upload limit. Exposed so the request layer
// can reject oversized uploads before buffering them.
func MaxFileBytes() int64 {
	return envutil.Int64("MAX_FILE_BYTES", defaultMaxFileBytes)
}

// Ingestor extracts plain text from uploaded research documents and splits
// it into ordered, overlapping chunks.
type Ingestor struct {
	log      *logger.Logger
	registry *extract.Registry
	maxBytes int64
	cfg      ChunkConfig
}

func NewIngestor(log *logger.Logger, registry *extract.Registry) *Ingestor {
	if registry == nil {
		registry = extract.DefaultRegistry()
	}
	return &Ingestor{
		log:      log.With("service", "DocumentIngestor"),
		registry: registry,
		maxBytes: MaxFileBytes(),
		cfg: ChunkConfig{
			Size:    envutil.Int("CHUNK_SIZE", defaultChunkSize),
			Overlap: envutil.Int("CHUNK_OVERLAP", defaultChunkOverlap),
		},
	}
}

// Ingest turns one file into chunks. The returned errors wrap the input
// taxonomy sentinels (ErrFileTooLarge, extract.ErrUnsupportedFormat,
// extract.ErrExtraction) so the orchestrator can aggregate per-file
// failures without failing the whole session.
func (g *Ingestor) Ingest(ctx context.Context, f extract.File) ([]domain.Chunk, error) {
	size := f.Size
	if int64(len(f.Content)) > size {
		size = int64(len(f.Content))
	}
	if size > g.maxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes (limit %d)", ErrFileTooLarge, f.Name, size, g.maxBytes)
	}

	text, err := g.registry.Extract(ctx, f)
	if err != nil {
		return nil, err
	}

	text = Preprocess(text)
	if text == "" {
		return nil, fmt.Errorf("%w: %s is empty after preprocessing", extract.ErrExtraction, f.Name)
	}

	chunks, err := ChunkDocument(f.Name, text, g.cfg)
	if err != nil {
		return nil, err
	}

	g.log.Info("Ingested document",
		"source_document", f.Name,
		"bytes", len(f.Content),
		"chunks", len(chunks),
	)
	return chunks, nil
}

var (
	speakerLineRe = regexp.MustCompile(`(?m)^([A-Za-z0-9][A-Za-z0-9 .'-]*):\s*`)
	// Letters and digits in any script survive; transcripts are not ASCII.
	stripRe = regexp.MustCompile(`[^\p{L}\p{N}_\s.,!?;:\-'"()\[\]]`)
)

// Preprocess cleans extracted transcript text: invalid UTF-8 replaced,
// decoration characters stripped, speaker labels normalized to "Name: ",
// and whitespace collapsed.
func Preprocess(text string) string {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, " ")
	}
	text = speakerLineRe.ReplaceAllString(text, "$1: ")
	text = stripRe.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}
