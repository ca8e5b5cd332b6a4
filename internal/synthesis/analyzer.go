package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/loomnote/synthesis-backend/internal/domain"
	"github.com/loomnote/synthesis-backend/internal/platform/envutil"
	"github.com/loomnote/synthesis-backend/internal/platform/logger"
	"github.com/loomnote/synthesis-backend/internal/platform/openai"
)

const insightSystemPrompt = `You are an expert UX researcher. Extract key insights from interview transcript excerpts: pain points, goals, behavioral patterns, feature requests, and emotional reactions. Every quote must be verbatim from the excerpt. Return an empty list when the excerpt holds nothing significant.`

// Analyzer sends each chunk to the model and parses structured insight
// records out of the response. Stateless apart from injected capabilities.
type Analyzer struct {
	log     *logger.Logger
	ai      openai.Client
	limiter *rate.Limiter
	workers int
}

func NewAnalyzer(log *logger.Logger, ai openai.Client) *Analyzer {
	rps := envutil.Float("MODEL_REQUESTS_PER_SECOND", 2)
	burst := envutil.Int("MODEL_BURST", 4)
	workers := envutil.Int("ANALYZER_CONCURRENCY", 4)
	if workers < 1 {
		workers = 1
	}
	return &Analyzer{
		log:     log.With("service", "InsightAnalyzer"),
		ai:      ai,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		workers: workers,
	}
}

// insightRecord is the wire shape of one extracted insight.
type insightRecord struct {
	Quote      string  `json:"quote"`
	Speaker    string  `json:"speaker"`
	Theme      string  `json:"theme"`
	Sentiment  string  `json:"sentiment"`
	Confidence float64 `json:"confidence"`
	Context    string  `json:"context"`
	Timestamp  string  `json:"timestamp"`
}

// AnalyzeChunk issues one model completion for a single chunk. Records that
// fail validation are dropped and logged; a provider failure after retries
// surfaces as an error for the caller to record.
func (a *Analyzer) AnalyzeChunk(ctx context.Context, chunk domain.Chunk) ([]domain.Insight, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	user := fmt.Sprintf("Transcript excerpt from %q:\n\n%s", chunk.SourceDocument, chunk.Text)
	obj, err := a.ai.GenerateJSON(ctx, insightSystemPrompt, user, "insight_extraction", insightListSchema())
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(obj["insights"])
	if err != nil {
		return nil, err
	}
	var records []insightRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode insight records: %w", err)
	}

	insights := make([]domain.Insight, 0, len(records))
	for _, r := range records {
		if strings.TrimSpace(r.Quote) == "" || strings.TrimSpace(r.Theme) == "" {
			a.log.Warn("Dropping invalid insight record",
				"source_document", chunk.SourceDocument,
				"sequence_index", chunk.SequenceIndex,
			)
			continue
		}
		insights = append(insights, domain.Insight{
			Quote:      strings.TrimSpace(r.Quote),
			Speaker:    strings.TrimSpace(r.Speaker),
			Theme:      strings.TrimSpace(r.Theme),
			Sentiment:  domain.CoerceSentiment(r.Sentiment),
			Confidence: domain.ClampConfidence(r.Confidence),
			Context:    strings.TrimSpace(r.Context),
			Timestamp:  strings.TrimSpace(r.Timestamp),
		})
	}
	return insights, nil
}

// AnalyzeAll fans chunk analysis out across a bounded worker group and joins
// before returning, so synthesis never starts on a partial set. Chunk
// failures become warnings, not errors; the insight order is deterministic
// in (source document, sequence) regardless of completion order.
func (a *Analyzer) AnalyzeAll(ctx context.Context, chunks []domain.Chunk) ([]domain.Insight, []string) {
	perChunk := make([][]domain.Insight, len(chunks))

	var mu sync.Mutex
	var warnings []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, chunk := range chunks {
		g.Go(func() error {
			insights, err := a.AnalyzeChunk(gctx, chunk)
			if err != nil {
				a.log.Warn("Chunk analysis failed",
					"source_document", chunk.SourceDocument,
					"sequence_index", chunk.SequenceIndex,
					"error", err,
				)
				mu.Lock()
				warnings = append(warnings, fmt.Sprintf("chunk %d of %s: %v", chunk.SequenceIndex, chunk.SourceDocument, err))
				mu.Unlock()
				return nil
			}
			perChunk[i] = insights
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(warnings, func(i, j int) bool { return warnings[i] < warnings[j] })

	var all []domain.Insight
	for _, insights := range perChunk {
		all = append(all, insights...)
	}

	unique := dedupeInsights(all)
	a.log.Info("Insight analysis complete",
		"chunks", len(chunks),
		"insights", len(unique),
		"dropped_duplicates", len(all)-len(unique),
		"failed_chunks", len(warnings),
	)
	return unique, warnings
}

// dedupeInsights removes near-duplicate quotes surfaced by overlapping
// chunks, keyed on the normalized quote prefix.
func dedupeInsights(insights []domain.Insight) []domain.Insight {
	seen := make(map[string]struct{}, len(insights))
	out := make([]domain.Insight, 0, len(insights))
	for _, ins := range insights {
		key := strings.ToLower(strings.TrimSpace(ins.Quote))
		if len(key) > 50 {
			key = key[:50]
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ins)
	}
	return out
}
