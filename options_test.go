package fk

import (
	"testing"

	"github.com/gogpu/fk/internal/parallel"
)

func TestStreamOptions(t *testing.T) {
	tests := []struct {
		name string
		opts []StreamOption
		want streamOptions
	}{
		{"defaults", nil, streamOptions{workers: 0, maxThreads: parallel.MaxThreadsPerBlock, queueDepth: 16}},
		{"workers", []StreamOption{WithWorkers(3)}, streamOptions{workers: 3, maxThreads: parallel.MaxThreadsPerBlock, queueDepth: 16}},
		{"limits", []StreamOption{WithMaxThreadsPerBlock(64), WithQueueDepth(2)}, streamOptions{maxThreads: 64, queueDepth: 2}},
		{"non-positive limits ignored", []StreamOption{WithMaxThreadsPerBlock(0), WithQueueDepth(-1)}, streamOptions{maxThreads: parallel.MaxThreadsPerBlock, queueDepth: 16}},
		{"last wins", []StreamOption{WithWorkers(2), WithWorkers(5)}, streamOptions{workers: 5, maxThreads: parallel.MaxThreadsPerBlock, queueDepth: 16}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := defaultStreamOptions()
			for _, opt := range tt.opts {
				opt(&got)
			}
			if got != tt.want {
				t.Errorf("options = %+v, want %+v", got, tt.want)
			}
		})
	}
}
