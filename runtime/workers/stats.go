package workers

import (
	"chat-hub/domain"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

const DefaultMetricInterval = 30 * time.Second

type statsSource interface {
	Stats(ctx context.Context) (domain.Stats, error)
}

// ProcessStats is what the OS tells us about ourselves.
type ProcessStats struct {
	RSS        uint64
	CPUPercent float64
	Status     string
}

// StatsWorker periodically logs the coordinator state along with process RSS and CPU.
type StatsWorker struct {
	log      *slog.Logger
	source   statsSource
	interval time.Duration
	sample   func() (ProcessStats, error)
}

func NewStatsWorker(log *slog.Logger, source statsSource, interval time.Duration) *StatsWorker {
	if interval <= 0 {
		interval = DefaultMetricInterval
	}
	return &StatsWorker{log: log, source: source, interval: interval}
}

func (w *StatsWorker) Run(ctx context.Context) error {
	w.log.Info("Starting stats worker", "interval", w.interval)
	if w.sample == nil {
		p, err := process.NewProcess(int32(os.Getpid()))
		if err != nil {
			return err
		}
		w.sample = func() (ProcessStats, error) { return selfStats(p) }
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.report(ctx)
		}
	}
}

func (w *StatsWorker) report(ctx context.Context) {
	queryCtx, cancel := context.WithTimeout(ctx, w.interval)
	defer cancel()

	stats, err := w.source.Stats(queryCtx)
	if err != nil {
		w.log.Warn("Coordinator didn't answer stats query", "error", err)
		return
	}
	proc, err := w.sample()
	if err != nil {
		w.log.Error("Failed to collect self stats", "error", err)
	}
	w.log.Info("Chat stats",
		"connections", stats.Connections,
		"users", stats.Users,
		"groups", stats.Groups,
		"channels", stats.Channels,
		"histories", stats.Histories,
		"rss_bytes", proc.RSS,
		"cpu_percent", proc.CPUPercent,
		"status", proc.Status,
	)
}

func selfStats(p *process.Process) (ProcessStats, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return ProcessStats{}, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return ProcessStats{}, err
	}
	status, err := p.Status()
	if err != nil {
		return ProcessStats{}, err
	}
	return ProcessStats{RSS: memInfo.RSS, CPUPercent: cpuPercent, Status: status}, nil
}
