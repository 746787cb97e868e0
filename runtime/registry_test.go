package runtime

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Ktiseos-Nyx/plural-chat/domain"
	"github.com/Ktiseos-Nyx/plural-chat/errors"
	"github.com/Ktiseos-Nyx/plural-chat/observability"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []domain.OutboundEvent
	err    error
	block  bool
}

func (s *recordingSink) Consume(ctx context.Context, evt domain.OutboundEvent) error {
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
	return nil
}

func (s *recordingSink) received() []domain.OutboundEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.OutboundEvent(nil), s.events...)
}

func newTestRegistry(metrics *observability.Metrics) *Registry {
	return NewRegistry(50*time.Millisecond, logs.GetLoggerFromLevel(slog.LevelDebug), metrics)
}

func TestRegistry_Attach_Detach_LeavesNoEmptySet(t *testing.T) {
	req := require.New(t)
	metrics := observability.NewMetrics()
	registry := newTestRegistry(metrics)
	account := domain.AccountID("A")

	// Given two sessions of the same account
	registry.Attach(account, "h1", &recordingSink{})
	registry.Attach(account, "h2", &recordingSink{})
	req.Equal([]string{"h1", "h2"}, registry.SessionsFor(account))
	req.Equal(2.0, testutil.ToFloat64(metrics.Sessions))

	// When both are detached
	registry.Detach(account, "h1")
	req.Equal([]string{"h2"}, registry.SessionsFor(account))
	registry.Detach(account, "h2")

	// Then the account entry is gone
	req.Empty(registry.accounts)
	req.Empty(registry.sessions)
	req.Nil(registry.SessionsFor(account))
	req.Equal(0.0, testutil.ToFloat64(metrics.Sessions))
}

func TestRegistry_Detach_UnknownOrForeignSession(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry(nil)
	registry.Attach("A", "h1", &recordingSink{})

	// A session can only be detached by its own account
	registry.Detach("B", "h1")
	registry.Detach("A", "nope")

	req.Equal([]string{"h1"}, registry.SessionsFor("A"))
}

func TestRegistry_Attach_SameSessionMovesAccount(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry(nil)

	registry.Attach("A", "h1", &recordingSink{})
	registry.Attach("B", "h1", &recordingSink{})

	req.Nil(registry.SessionsFor("A"))
	req.Equal([]string{"h1"}, registry.SessionsFor("B"))
	req.NotContains(registry.accounts, domain.AccountID("A"))
}

func TestRegistry_Broadcast_EachSessionOnceDespiteFailures(t *testing.T) {
	req := require.New(t)
	metrics := observability.NewMetrics()
	registry := newTestRegistry(metrics)

	healthy := []*recordingSink{{}, {}, {}}
	for _, s := range healthy {
		registry.Attach("A", uuid.NewString(), s)
	}
	// Given one closed handle and one that never answers
	registry.Attach("A", "dead", &recordingSink{err: errors.ErrSessionClosed})
	registry.Attach("A", "stuck", &recordingSink{block: true})
	// And another account that must not receive anything
	other := &recordingSink{}
	registry.Attach("B", "b1", other)

	evt := domain.OutboundEvent{Type: domain.EventMessage, ID: "m1", Content: "hello"}

	// When a message is broadcast to the account
	start := time.Now()
	report := registry.Broadcast(context.Background(), ScopeAccount, "A", evt)

	// Then every healthy session got exactly one copy
	req.Less(time.Since(start), time.Second)
	for _, s := range healthy {
		req.Equal([]domain.OutboundEvent{evt}, s.received())
	}
	req.Empty(other.received())
	req.Equal(5, report.Attempted)
	req.Equal(3, report.Delivered)
	req.Len(report.Failed, 2)
	req.ErrorIs(report.Failed["dead"], errors.ErrSessionClosed)
	req.ErrorIs(report.Failed["stuck"], errors.ErrSinkTimeout)
	req.Equal(1.0, testutil.ToFloat64(metrics.DeliveryFailures.WithLabelValues("closed")))
	req.Equal(1.0, testutil.ToFloat64(metrics.DeliveryFailures.WithLabelValues("timeout")))
}

func TestRegistry_Broadcast_ScopeAll(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry(nil)
	a, b := &recordingSink{}, &recordingSink{}
	registry.Attach("A", "a1", a)
	registry.Attach("B", "b1", b)

	report := registry.Broadcast(context.Background(), ScopeAll, "A", domain.OutboundEvent{ID: "m1"})

	req.Equal(2, report.Delivered)
	req.Len(a.received(), 1)
	req.Len(b.received(), 1)
}

func TestRegistry_Broadcast_NoSession(t *testing.T) {
	report := newTestRegistry(nil).Broadcast(context.Background(), ScopeAccount, "ghost", domain.OutboundEvent{})
	require.Equal(t, DeliveryReport{}, report)
}

func TestRegistry_Deliver(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry(nil)
	h1, h2 := &recordingSink{}, &recordingSink{}
	registry.Attach("A", "h1", h1)
	registry.Attach("A", "h2", h2)

	// Only the targeted session receives the event
	req.NoError(registry.Deliver(context.Background(), "A", "h1", domain.OutboundEvent{ID: "x"}))
	req.Len(h1.received(), 1)
	req.Empty(h2.received())

	// Sessions of another account are not reachable
	req.ErrorIs(registry.Deliver(context.Background(), "B", "h1", domain.OutboundEvent{}), errors.ErrUnknownSession)
	req.ErrorIs(registry.Deliver(context.Background(), "A", "nope", domain.OutboundEvent{}), errors.ErrUnknownSession)
}

func TestParseScope(t *testing.T) {
	req := require.New(t)

	scope, err := ParseScope("all")
	req.NoError(err)
	req.Equal(ScopeAll, scope)

	scope, err = ParseScope("")
	req.NoError(err)
	req.Equal(ScopeAccount, scope)

	_, err = ParseScope("room")
	req.True(errors.IsValidation(err))
}

func TestRegistry_ConcurrentAttachBroadcast(t *testing.T) {
	registry := newTestRegistry(nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		id := uuid.NewString()
		go func() {
			defer wg.Done()
			registry.Attach("A", id, &recordingSink{})
			registry.Detach("A", id)
		}()
		go func() {
			defer wg.Done()
			registry.Broadcast(context.Background(), ScopeAccount, "A", domain.OutboundEvent{})
		}()
	}
	wg.Wait()
	require.Empty(t, registry.accounts)
}
