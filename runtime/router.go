// Package runtime routes inbound chat events: command interception, identity
// resolution, ordered persistence per channel, fan-out to live sessions and
// responder triggering. It holds no business rule of its own.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Ktiseos-Nyx/plural-chat/command"
	"github.com/Ktiseos-Nyx/plural-chat/contract"
	"github.com/Ktiseos-Nyx/plural-chat/domain"
	"github.com/Ktiseos-Nyx/plural-chat/errors"
	"github.com/Ktiseos-Nyx/plural-chat/mention"
	"github.com/Ktiseos-Nyx/plural-chat/observability"
	"github.com/Ktiseos-Nyx/plural-chat/proxy"
	"github.com/Ktiseos-Nyx/plural-chat/repositories"
	"github.com/Ktiseos-Nyx/plural-chat/runtime/workers"
	"github.com/google/uuid"
)

// Origin identifies the session an inbound event came from.
type Origin struct {
	AccountID domain.AccountID
	SessionID string
}

// Commands intercepts slash commands. handled is false when raw is not
// command syntax.
type Commands interface {
	Dispatch(ctx context.Context, accountID domain.AccountID, raw string, channelID domain.ChannelID) (reply command.Reply, handled bool)
}

type RouterConfig struct {
	Scope            Scope
	MaxContentLength int
	Responders       int
	TriggerQueue     int
	HistoryBuffer    int
	RestartInterval  time.Duration
}

type RouterDeps struct {
	Commands   Commands
	Matcher    *proxy.Matcher
	Scanner    *mention.Scanner
	Registry   *Registry
	Sequencer  *Sequencer
	Messages   repositories.IMessageRepository
	Personas   repositories.IPersonaRepository
	Channels   repositories.IChannelRepository
	History    []contract.MessageSink
	Supervised []contract.Worker
}

type Router struct {
	log       *slog.Logger
	metrics   *observability.Metrics
	config    RouterConfig
	deps      RouterDeps
	history   *workers.HistoryFanout
	triggers  chan domain.TriggerJob
	responder contract.Responder

	mu         sync.Mutex
	supervisor *workers.Supervisor
	now        func() time.Time
}

func NewRouter(config RouterConfig, deps RouterDeps, log *slog.Logger, metrics *observability.Metrics) *Router {
	return &Router{
		log:      log,
		metrics:  metrics,
		config:   config,
		deps:     deps,
		history:  workers.NewHistoryFanout(log, max(config.HistoryBuffer, 1)).Add(deps.History...),
		triggers: make(chan domain.TriggerJob, max(config.TriggerQueue, 1)),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithResponder sets who answers trigger jobs. Without one, jobs are dropped.
func (r *Router) WithResponder(responder contract.Responder) *Router {
	r.responder = responder
	return r
}

// Handle processes one inbound event end to end.
// A validation failure is answered to the origin session only and nothing is
// stored. A persistence failure sends a retryable delivery_failure to the
// origin session only and nothing is broadcast.
func (r *Router) Handle(ctx context.Context, origin Origin, evt domain.InboundEvent) error {
	channelID := evt.Channel()
	if err := evt.Validate(r.config.MaxContentLength); err != nil {
		return r.reject(ctx, origin, channelID, fmt.Errorf("%w: %v", errors.ErrInvalidEvent, err))
	}

	if reply, ok := r.deps.Commands.Dispatch(ctx, origin.AccountID, evt.Content, channelID); ok {
		r.answer(ctx, origin, channelID, reply)
		return nil
	}

	// The lane is entered before any lookup: the position of a message in
	// its channel is fixed when Handle starts, not when the lookups finish.
	// msg and personas are only read once Do returned nil.
	var (
		msg      domain.Message
		personas []domain.Persona
	)
	err := r.deps.Sequencer.Do(ctx, channelID, func(ctx context.Context) error {
		var err error
		if personas, err = r.deps.Personas.PersonasFor(ctx, origin.AccountID); err != nil {
			return errors.Persistence(err)
		}
		if msg, err = r.resolve(ctx, origin.AccountID, evt, personas); err != nil {
			return err
		}
		return r.persist(ctx, msg)
	})
	if err != nil {
		if errors.IsValidation(err) {
			return r.reject(ctx, origin, channelID, err)
		}
		return r.fail(ctx, origin, channelID, err)
	}
	r.metrics.MessageHandled("persisted")

	// Only human-authored messages are scanned: replies never chain.
	if persona, ok := r.deps.Scanner.Scan(msg.ResolvedContent, personas); ok {
		r.trigger(domain.TriggerJob{AccountID: origin.AccountID, Persona: persona, Message: msg})
	}
	return nil
}

// PublishAutomated commits a responder reply through the lane of its
// channel, exactly like a human message but without a mention scan.
func (r *Router) PublishAutomated(ctx context.Context, accountID domain.AccountID, msg domain.Message) error {
	if strings.TrimSpace(msg.ResolvedContent) == "" {
		return errors.ErrEmptyContent
	}
	if msg.SenderAccountID == "" {
		msg.SenderAccountID = accountID
	}
	err := r.deps.Sequencer.Do(ctx, msg.ChannelID, func(ctx context.Context) error {
		return r.persist(ctx, msg)
	})
	if err != nil {
		r.log.Error("Unable to commit automated reply", "account_id", accountID, "channel", msg.ChannelID, "error", err)
		return err
	}
	r.metrics.MessageHandled("automated")
	return nil
}

// answer sends a command reply as a system message. Replies to malformed
// arguments stay with the session that typed them.
func (r *Router) answer(ctx context.Context, origin Origin, channelID domain.ChannelID, reply command.Reply) {
	notice := domain.SystemEvent(origin.AccountID, channelID, reply.Text)
	if reply.Private {
		if err := r.deps.Registry.Deliver(ctx, origin.AccountID, origin.SessionID, notice); err != nil {
			r.log.Debug("Command reply not delivered", "session_id", origin.SessionID, "error", err)
		}
	} else {
		r.deps.Registry.Broadcast(ctx, ScopeAccount, origin.AccountID, notice)
	}
	r.metrics.MessageHandled("command")
}

func (r *Router) resolve(ctx context.Context, accountID domain.AccountID, evt domain.InboundEvent, personas []domain.Persona) (domain.Message, error) {
	resolution := r.deps.Matcher.Resolve(evt.Content, personas)
	senderPersonaID := resolution.PersonaID
	if senderPersonaID == nil && evt.SenderPersonaID != nil {
		if _, ok := domain.FindPersona(personas, *evt.SenderPersonaID); !ok {
			return domain.Message{}, fmt.Errorf("%w: %s", errors.ErrPersonaNotOwned, *evt.SenderPersonaID)
		}
		id := *evt.SenderPersonaID
		senderPersonaID = &id
	}
	if strings.TrimSpace(resolution.Content) == "" {
		return domain.Message{}, errors.ErrEmptyContent
	}

	channelID := evt.Channel()
	if err := r.checkChannel(ctx, channelID); err != nil {
		return domain.Message{}, err
	}

	return domain.Message{
		ID:              uuid.New(),
		ChannelID:       channelID,
		SenderAccountID: accountID,
		SenderPersonaID: senderPersonaID,
		RawContent:      evt.Content,
		ResolvedContent: resolution.Content,
		Timestamp:       r.now(),
	}, nil
}

// checkChannel lets the default lane through without a lookup.
func (r *Router) checkChannel(ctx context.Context, channelID domain.ChannelID) error {
	if channelID == domain.NoChannel {
		return nil
	}
	channel, err := r.deps.Channels.Channel(ctx, channelID)
	if err != nil {
		if errors.IsValidation(err) {
			return err
		}
		return errors.Persistence(err)
	}
	if channel.Archived {
		return fmt.Errorf("%w: %s", errors.ErrArchivedChannel, channel.Name)
	}
	return nil
}

// persist stores then broadcasts. It must run inside the lane of
// msg.ChannelID.
func (r *Router) persist(ctx context.Context, msg domain.Message) error {
	if err := r.deps.Messages.SaveMessage(ctx, msg); err != nil {
		if errors.IsValidation(err) {
			return err
		}
		return errors.Persistence(err)
	}
	report := r.deps.Registry.Broadcast(ctx, r.config.Scope, msg.SenderAccountID, domain.MessageEvent(msg))
	if len(report.Failed) > 0 {
		r.log.Warn("Partial broadcast", "id", msg.ID, "delivered", report.Delivered, "failed", len(report.Failed))
	}
	r.history.Publish(msg)
	return nil
}

func (r *Router) trigger(job domain.TriggerJob) {
	if r.responder == nil {
		r.log.Debug("No responder configured, trigger ignored", "persona", job.Persona.ID)
		return
	}
	select {
	case r.triggers <- job:
		r.log.Debug("Trigger queued", "persona", job.Persona.ID, "channel", job.Message.ChannelID)
	default:
		r.log.Warn("Trigger queue full, dropping job", "persona", job.Persona.ID, "channel", job.Message.ChannelID)
		r.metrics.TriggerDropped()
	}
}

func (r *Router) reject(ctx context.Context, origin Origin, channelID domain.ChannelID, err error) error {
	r.log.Warn("Event rejected", "account_id", origin.AccountID, "session_id", origin.SessionID, "error", err)
	r.metrics.MessageHandled("rejected")
	notice := domain.SystemEvent(origin.AccountID, channelID, "❌ "+r.rejection(err))
	if deliverErr := r.deps.Registry.Deliver(ctx, origin.AccountID, origin.SessionID, notice); deliverErr != nil {
		r.log.Debug("Rejection not delivered", "session_id", origin.SessionID, "error", deliverErr)
	}
	return err
}

func (r *Router) fail(ctx context.Context, origin Origin, channelID domain.ChannelID, err error) error {
	r.log.Error("Event not persisted", "account_id", origin.AccountID, "session_id", origin.SessionID, "error", err)
	r.metrics.MessageHandled("failed")
	notice := domain.FailureEvent(origin.AccountID, channelID, "⚠️ Message could not be saved. Please try again.", true)
	if deliverErr := r.deps.Registry.Deliver(ctx, origin.AccountID, origin.SessionID, notice); deliverErr != nil {
		r.log.Debug("Failure notice not delivered", "session_id", origin.SessionID, "error", deliverErr)
	}
	return err
}

func (r *Router) rejection(err error) string {
	switch {
	case errors.Is(err, errors.ErrUnknownChannel):
		return "Unknown channel."
	case errors.Is(err, errors.ErrArchivedChannel):
		return "This channel is archived."
	case errors.Is(err, errors.ErrPersonaNotOwned):
		return "You can only post as one of your own members."
	case errors.Is(err, errors.ErrEmptyContent):
		return "Message is empty."
	case errors.Is(err, errors.ErrInvalidEvent):
		return fmt.Sprintf("Message must be between 1 and %d characters.", r.config.MaxContentLength)
	}
	return "Message rejected."
}

// Start runs the responder pool, the history fanout and any extra
// supervised worker until ctx ends or Stop is called.
func (r *Router) Start(ctx context.Context) {
	supervisor := workers.NewSupervisor(r.log, r.config.RestartInterval)
	supervisor.Add(r.history)
	if r.responder != nil {
		for i := 0; i < max(r.config.Responders, 1); i++ {
			supervisor.Add(workers.NewResponderWorker(r.log, r.triggers, r.responder))
		}
	}
	supervisor.Add(r.deps.Supervised...)

	r.mu.Lock()
	r.supervisor = supervisor
	r.mu.Unlock()

	r.log.Info("Starting router and all supervised workers")
	supervisor.Run(ctx)
}

// Stop drains the channel lanes then stops the supervised workers.
func (r *Router) Stop() {
	r.deps.Sequencer.Close()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.supervisor != nil {
		r.supervisor.Stop()
	}
}
