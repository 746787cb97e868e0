// Package sink holds the per-connection handles the registry delivers to.
package sink

import (
	"context"
	"fmt"
	"sync"

	"github.com/Ktiseos-Nyx/plural-chat/domain"
	"github.com/Ktiseos-Nyx/plural-chat/errors"
)

// SessionSink buffers outbound events for one live connection.
// The transport drains Events; Consume is called by the registry.
type SessionSink struct {
	events    chan domain.OutboundEvent
	done      chan struct{}
	closeOnce sync.Once
}

func NewSessionSink(bufferSize int) *SessionSink {
	return &SessionSink{
		events: make(chan domain.OutboundEvent, max(bufferSize, 1)),
		done:   make(chan struct{}),
	}
}

// Consume waits for room in the buffer until ctx ends.
func (s *SessionSink) Consume(ctx context.Context, evt domain.OutboundEvent) error {
	select {
	case <-s.done:
		return errors.ErrSessionClosed
	default:
	}
	select {
	case s.events <- evt:
		return nil
	case <-s.done:
		return errors.ErrSessionClosed
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", errors.ErrSinkTimeout, ctx.Err())
	}
}

func (s *SessionSink) Events() <-chan domain.OutboundEvent { return s.events }

// Done is closed once the session is closed.
func (s *SessionSink) Done() <-chan struct{} { return s.done }

// Close is idempotent. Buffered events are left for the transport to drop.
func (s *SessionSink) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}
