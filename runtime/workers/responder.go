package workers

import (
	"context"
	"log/slog"

	"github.com/Ktiseos-Nyx/plural-chat/contract"
	"github.com/Ktiseos-Nyx/plural-chat/domain"
)

// ResponderWorker consumes trigger jobs one at a time. Several of them share
// the same queue to form the responder pool.
type ResponderWorker struct {
	log       *slog.Logger
	jobs      <-chan domain.TriggerJob
	responder contract.Responder
}

func NewResponderWorker(log *slog.Logger, jobs <-chan domain.TriggerJob, responder contract.Responder) *ResponderWorker {
	return &ResponderWorker{log: log, jobs: jobs, responder: responder}
}

func (w *ResponderWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping responder")
			return nil
		case job, ok := <-w.jobs:
			if !ok {
				return nil
			}
			w.log.Debug("Responding", "persona", job.Persona.ID, "channel", job.Message.ChannelID)
			w.responder.Respond(ctx, job)
		}
	}
}
