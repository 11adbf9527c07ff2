package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestChannelCapacityWorker_Warns_On_Saturated_Channel(t *testing.T) {
	req := require.New(t)
	out := &syncBuffer{}
	log := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// Given a full queue, a quiet queue and something that is not a channel
	full := make(chan int, 4)
	for i := range 4 {
		full <- i
	}
	quiet := make(chan int, 4)
	worker := NewChannelCapacityWorker(log, []NamedChannel{
		{Name: "commands", Channel: full},
		{Name: "idle", Channel: quiet},
		{Name: "bogus", Channel: 42},
	}, 10*time.Millisecond)

	// When the worker samples a few times
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := worker.Run(ctx)

	// Then only the full queue is flagged
	req.NoError(err)
	logs := out.String()
	req.Contains(logs, `msg="Channel close to saturation" name=commands length=4 capacity=4`)
	req.Contains(logs, `msg="Channel capacity" name=idle length=0 capacity=4`)
	req.Contains(logs, `msg="Provided object is not a channel" name=bogus`)
	req.Len(full, 4)
}
