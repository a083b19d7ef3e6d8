package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrokesReceived(t *testing.T) {
	// A 20 handicap gets a second stroke on the two hardest holes only.
	for rank := 1; rank <= 18; rank++ {
		want := 1
		if rank <= 2 {
			want = 2
		}
		assert.Equal(t, want, StrokesReceived(20, rank), "rank %d", rank)
	}

	// Scratch player strokes nowhere, an 18 strokes everywhere.
	for rank := 1; rank <= 18; rank++ {
		assert.Equal(t, 0, StrokesReceived(0, rank))
		assert.Equal(t, 1, StrokesReceived(18, rank))
	}

	// Single digit handicap strokes on the hardest holes only.
	assert.Equal(t, 1, StrokesReceived(7, 7))
	assert.Equal(t, 0, StrokesReceived(7, 8))

	// Negative handicaps are clamped rather than rejected.
	assert.Equal(t, 0, StrokesReceived(-2, 1))
}

func TestNetScore(t *testing.T) {
	gross := 5
	net := NetScore(&gross, 20, 1)
	assert.NotNil(t, net)
	assert.Equal(t, 3, *net)

	net = NetScore(&gross, 0, 18)
	assert.Equal(t, 5, *net)

	assert.Nil(t, NetScore(nil, 20, 1))
}
