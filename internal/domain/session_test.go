package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestCoerceSentiment(t *testing.T) {
	assert.Equal(t, SentimentPositive, CoerceSentiment("positive"))
	assert.Equal(t, SentimentPositive, CoerceSentiment("  POSITIVE "))
	assert.Equal(t, SentimentNegative, CoerceSentiment("Negative"))
	assert.Equal(t, SentimentNeutral, CoerceSentiment("neutral"))
	assert.Equal(t, SentimentNeutral, CoerceSentiment("mixed"))
	assert.Equal(t, SentimentNeutral, CoerceSentiment(""))
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0.0, ClampConfidence(-3))
	assert.Equal(t, 0.42, ClampConfidence(0.42))
	assert.Equal(t, 1.0, ClampConfidence(17))
}

func TestPriorityRankOrdering(t *testing.T) {
	assert.Greater(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Greater(t, PriorityMedium.Rank(), PriorityLow.Rank())
	assert.Greater(t, PriorityLow.Rank(), Priority("bogus").Rank())
}
