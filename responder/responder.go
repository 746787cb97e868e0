// Package responder turns trigger jobs into in-character replies from an
// automated persona.
package responder

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/Ktiseos-Nyx/plural-chat/contract"
	"github.com/Ktiseos-Nyx/plural-chat/domain"
	"github.com/Ktiseos-Nyx/plural-chat/errors"
	"github.com/Ktiseos-Nyx/plural-chat/observability"
	"github.com/google/uuid"
)

// Publisher persists and broadcasts a reply through the same lane as
// human messages.
type Publisher interface {
	PublishAutomated(ctx context.Context, accountID domain.AccountID, msg domain.Message) error
}

// History returns the recent messages of a channel, most recent first.
type History interface {
	RecentMessages(ctx context.Context, channelID domain.ChannelID, limit int) ([]domain.Message, error)
}

type Config struct {
	Timeout      time.Duration
	HistoryLimit int
}

type Responder struct {
	provider  contract.ResponseProvider
	messages  History
	publisher Publisher
	config    Config
	log       *slog.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

func NewResponder(
	provider contract.ResponseProvider,
	messages History,
	publisher Publisher,
	config Config,
	log *slog.Logger,
	metrics *observability.Metrics,
) *Responder {
	return &Responder{
		provider:  provider,
		messages:  messages,
		publisher: publisher,
		config:    config,
		log:       log,
		metrics:   metrics,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Respond generates and publishes one reply. It never returns an error:
// provider failures become the fallback line and publish failures are logged.
func (r *Responder) Respond(ctx context.Context, job domain.TriggerJob) {
	persona := job.Persona
	history := r.history(ctx, job.Message)

	text, err := r.generate(ctx, persona, job.Message, history)
	if ctx.Err() != nil {
		// Shutting down: nothing is published, not even the fallback
		r.log.Debug("Reply abandoned", "persona", persona.ID, "channel", job.Message.ChannelID, "error", ctx.Err())
		return
	}
	if err != nil {
		provider := ""
		if persona.Automated != nil {
			provider = persona.Automated.Provider
		}
		r.log.Warn("Provider failed, using fallback",
			"persona", persona.ID, "provider", provider, "error", err)
		r.metrics.ProviderFellBack(provider)
		text = Fallback(persona)
	}

	personaID := persona.ID
	reply := domain.Message{
		ID:              uuid.New(),
		ChannelID:       job.Message.ChannelID,
		SenderAccountID: job.AccountID,
		SenderPersonaID: &personaID,
		RawContent:      text,
		ResolvedContent: text,
		Timestamp:       r.now(),
	}
	if err := r.publisher.PublishAutomated(ctx, job.AccountID, reply); err != nil {
		r.log.Error("Unable to publish automated reply", "persona", persona.ID, "error", err)
	}
}

// generate bounds the provider call even when the provider ignores ctx.
// The parent's own cancellation is returned as is, not as a timeout.
func (r *Responder) generate(parent context.Context, persona domain.Persona, message domain.Message, history []domain.Message) (string, error) {
	ctx, cancel := context.WithTimeout(parent, r.config.Timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := r.provider.Generate(ctx, persona, message, history)
		done <- result{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		if err := parent.Err(); err != nil {
			return "", err
		}
		return "", errors.ErrProviderTimeout
	case res := <-done:
		if res.err != nil {
			return "", res.err
		}
		if strings.TrimSpace(res.text) == "" {
			return "", errors.ErrEmptyResponse
		}
		return strings.TrimSpace(res.text), nil
	}
}

// history returns the window before the trigger, oldest first. A read
// failure only costs context, never the reply.
func (r *Responder) history(ctx context.Context, message domain.Message) []domain.Message {
	if r.config.HistoryLimit <= 0 {
		return nil
	}
	recent, err := r.messages.RecentMessages(ctx, message.ChannelID, r.config.HistoryLimit)
	if err != nil {
		r.log.Warn("Unable to load history", "channel", message.ChannelID, "error", err)
		return nil
	}
	slices.Reverse(recent)
	return recent
}
