package file

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSizeMBFromBytes(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  float64
	}{
		{"one MiB", 1 << 20, 1.00},
		{"ten MiB", 10 << 20, 10.00},
		{"half MiB", 512 << 10, 0.50},
		{"rounds up", 1<<20 + 6000, 1.01},
		{"tiny", 100, 0.00},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, SizeMBFromBytes(tt.bytes), 1e-9)
		})
	}
}

func TestStatus_CanTransition(t *testing.T) {
	assert.True(t, StatusPending.CanTransition(StatusCompleted))
	assert.True(t, StatusPending.CanTransition(StatusFailed))
	assert.True(t, StatusCompleted.CanTransition(StatusDeleting))
	assert.True(t, StatusDeleting.CanTransition(StatusFailed))

	assert.False(t, StatusCompleted.CanTransition(StatusPending))
	assert.False(t, StatusCompleted.CanTransition(StatusFailed))
	assert.False(t, StatusFailed.CanTransition(StatusCompleted))
	assert.False(t, StatusDeleting.CanTransition(StatusCompleted))
}

func TestSourcesOf(t *testing.T) {
	assert.Equal(t, []Status{StatusPending}, SourcesOf(StatusCompleted))
	assert.Equal(t, []Status{StatusCompleted}, SourcesOf(StatusDeleting))
	assert.Equal(t, []Status{StatusPending, StatusDeleting}, SourcesOf(StatusFailed))
	assert.Empty(t, SourcesOf(StatusPending))
}
