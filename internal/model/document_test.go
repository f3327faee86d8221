package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentStatus_CanTransitionTo(t *testing.T) {
	allowed := map[DocumentStatus][]DocumentStatus{
		StatusPending:    {StatusProcessing},
		StatusProcessing: {StatusCompleted, StatusFailed},
		StatusCompleted:  {},
		StatusFailed:     {},
	}
	all := []DocumentStatus{StatusPending, StatusProcessing, StatusCompleted, StatusFailed}

	for from, nexts := range allowed {
		ok := map[DocumentStatus]bool{}
		for _, n := range nexts {
			ok[n] = true
		}
		for _, to := range all {
			assert.Equal(t, ok[to], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestDocumentStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestChunkEmbeddingRoundTrip(t *testing.T) {
	var c Chunk
	c.SetEmbedding([]float32{0.25, -1, 0})
	assert.Equal(t, []float32{0.25, -1, 0}, c.EmbeddingVector())

	c.SetEmbedding(nil)
	assert.Empty(t, c.EmbeddingVector())

	var empty Chunk
	assert.Nil(t, empty.EmbeddingVector())
}
