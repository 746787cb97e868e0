package workers

import (
	"context"
	"log/slog"

	"github.com/Ktiseos-Nyx/plural-chat/contract"
	"github.com/Ktiseos-Nyx/plural-chat/domain"
)

// HistoryFanout hands persisted messages to in-process history consumers
// (search index, timelines), in commit order.
//
// Best effort: a failing sink is logged and skipped, nothing is retried.
// It is never on the delivery path of a live session.
type HistoryFanout struct {
	log      *slog.Logger
	messages chan domain.Message
	sinks    []contract.MessageSink
}

func NewHistoryFanout(log *slog.Logger, buffer int) *HistoryFanout {
	return &HistoryFanout{log: log, messages: make(chan domain.Message, buffer)}
}

func (w *HistoryFanout) Add(sinks ...contract.MessageSink) *HistoryFanout {
	w.sinks = append(w.sinks, sinks...)
	return w
}

// Publish never blocks: a full buffer loses the message for history only.
func (w *HistoryFanout) Publish(msg domain.Message) {
	select {
	case w.messages <- msg:
	default:
		w.log.Warn("History buffer full, message not indexed", "id", msg.ID)
	}
}

func (w *HistoryFanout) Run(ctx context.Context) error {
	for {
		select {
		case msg := <-w.messages:
			w.Fanout(ctx, msg)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping history fanout")
			return nil
		}
	}
}

// Fanout One sink for each message
func (w *HistoryFanout) Fanout(ctx context.Context, msg domain.Message) {
	for _, sink := range w.sinks {
		if err := sink.Consume(ctx, msg); err != nil {
			w.log.Error("History sink failed", "sink", sinkName(sink), "id", msg.ID, "error", err)
		}
	}
}

func sinkName(sink contract.MessageSink) string {
	if w, ok := sink.(contract.Worker); ok {
		return contract.GetWorkerName(w)
	}
	return "sink"
}
