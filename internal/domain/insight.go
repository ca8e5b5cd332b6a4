package domain

import "strings"

// Chunk is a bounded slice of extracted document text sized for a single
// model call. Chunks are transient; they never outlive the pipeline run.
type Chunk struct {
	Text           string `json:"text"`
	SourceDocument string `json:"source_document"`
	SequenceIndex  int    `json:"sequence_index"`
}

// Sentiment is the three-way polarity attached to an insight.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNegative Sentiment = "Negative"
	SentimentNeutral  Sentiment = "Neutral"
)

// CoerceSentiment maps arbitrary model output onto the enum. Anything the
// model invents outside the three known values becomes Neutral.
func CoerceSentiment(raw string) Sentiment {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "positive":
		return SentimentPositive
	case "negative":
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// ClampConfidence forces a model-reported confidence into [0,1].
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Insight is one atomic extracted observation from a chunk. Immutable once
// created.
type Insight struct {
	Quote      string    `json:"quote"`
	Speaker    string    `json:"speaker,omitempty"`
	Theme      string    `json:"theme"`
	Sentiment  Sentiment `json:"sentiment"`
	Confidence float64   `json:"confidence"`
	Context    string    `json:"context"`
	Timestamp  string    `json:"timestamp,omitempty"`
}
