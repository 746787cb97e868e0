package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/Ktiseos-Nyx/plural-chat/observability"
	"github.com/shirou/gopsutil/process"
)

// ProcessStatsWorker samples memory and cpu of the running process into
// the metrics gauges.
type ProcessStatsWorker struct {
	log      *slog.Logger
	metrics  *observability.Metrics
	interval time.Duration
	pid      int32
}

func NewProcessStatsWorker(log *slog.Logger, metrics *observability.Metrics, interval time.Duration) *ProcessStatsWorker {
	return &ProcessStatsWorker{log: log, metrics: metrics, interval: interval, pid: int32(os.Getpid())}
}

func (w *ProcessStatsWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(w.pid)
	if err != nil {
		return err
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping process stats")
			return nil
		case <-ticker.C:
			w.sample(p)
		}
	}
}

func (w *ProcessStatsWorker) sample(p *process.Process) {
	mem, err := p.MemoryInfo()
	if err != nil {
		w.log.Error("Error while finding process memory", "err", err)
		return
	}
	cpu, err := p.CPUPercent()
	if err != nil {
		w.log.Error("Error while finding process cpu usage", "err", err)
		return
	}
	w.metrics.ProcessStats(mem.RSS, cpu)
}
