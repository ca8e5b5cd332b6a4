package ingest

import (
	"errors"
	"fmt"
	"iter"

	"github.com/loomnote/synthesis-backend/internal/domain"
)

// ErrInvalidConfiguration covers non-positive sizes and overlaps that are
// not strictly smaller than the chunk size.
var ErrInvalidConfiguration = errors.New("invalid chunk configuration")

// ChunkConfig bounds a single model-call payload. Units are runes so
// multi-byte transcripts never split mid-character.
type ChunkConfig struct {
	Size    int
	Overlap int
}

func (c ChunkConfig) validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("%w: chunk size %d must be positive", ErrInvalidConfiguration, c.Size)
	}
	if c.Overlap <= 0 {
		return fmt.Errorf("%w: overlap %d must be positive", ErrInvalidConfiguration, c.Overlap)
	}
	if c.Overlap >= c.Size {
		return fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", ErrInvalidConfiguration, c.Overlap, c.Size)
	}
	return nil
}

// Split yields successive windows of text, each starting Size-Overlap runes
// after the previous window's start. The sequence is restartable: ranging
// over it again replays the same windows. Text shorter than one chunk yields
// exactly that text.
func Split(text string, cfg ChunkConfig) (iter.Seq[string], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	runes := []rune(text)
	step := cfg.Size - cfg.Overlap

	return func(yield func(string) bool) {
		if len(runes) <= cfg.Size {
			yield(string(runes))
			return
		}
		for start := 0; start < len(runes); start += step {
			end := start + cfg.Size
			if end > len(runes) {
				end = len(runes)
			}
			if !yield(string(runes[start:end])) {
				return
			}
			if end == len(runes) {
				return
			}
		}
	}, nil
}

// ChunkDocument materializes Split output as ordered chunks attributed to
// one source document.
func ChunkDocument(source, text string, cfg ChunkConfig) ([]domain.Chunk, error) {
	seq, err := Split(text, cfg)
	if err != nil {
		return nil, err
	}
	var chunks []domain.Chunk
	i := 0
	for piece := range seq {
		chunks = append(chunks, domain.Chunk{
			Text:           piece,
			SourceDocument: source,
			SequenceIndex:  i,
		})
		i++
	}
	return chunks, nil
}
