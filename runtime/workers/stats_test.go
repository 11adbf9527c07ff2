package workers

import (
	"bytes"
	"chat-hub/domain"
	"chat-hub/mocks"
	"context"
	"fmt"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// syncBuffer lets the worker goroutine and the test share the log output.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStatsWorker_Reports_Coordinator_And_Process_Stats(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	coordinator := mocks.NewMockICoordinator(ctrl)
	out := &syncBuffer{}
	log := slog.New(slog.NewTextHandler(out, nil))

	coordinator.EXPECT().
		Stats(gomock.Any()).
		Return(domain.Stats{Connections: 3, Users: 2, Groups: 1, Channels: 2, Histories: 4}, nil).
		MinTimes(1)

	worker := NewStatsWorker(log, coordinator, 20*time.Millisecond)
	worker.sample = func() (ProcessStats, error) {
		return ProcessStats{RSS: 1024, CPUPercent: 1.5, Status: "R"}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := worker.Run(ctx)

	req.ErrorIs(err, context.DeadlineExceeded)
	req.Contains(out.String(), "connections=3")
	req.Contains(out.String(), "users=2")
	req.Contains(out.String(), "rss_bytes=1024")
}

func TestStatsWorker_Skips_Report_When_Coordinator_Is_Unavailable(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	coordinator := mocks.NewMockICoordinator(ctrl)
	out := &syncBuffer{}
	log := slog.New(slog.NewTextHandler(out, nil))

	coordinator.EXPECT().
		Stats(gomock.Any()).
		Return(domain.Stats{}, fmt.Errorf("busy")).
		AnyTimes()

	worker := NewStatsWorker(log, coordinator, 10*time.Millisecond)
	worker.sample = func() (ProcessStats, error) { return ProcessStats{}, nil }

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_ = worker.Run(ctx)

	req.NotContains(out.String(), "Chat stats")
	req.Contains(out.String(), "busy")
}

func TestStatsWorker_Default_Interval(t *testing.T) {
	req := require.New(t)
	worker := NewStatsWorker(slog.Default(), nil, 0)

	req.Equal(DefaultMetricInterval, worker.interval)
}
