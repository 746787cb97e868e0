package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Ktiseos-Nyx/plural-chat/contract"
	"github.com/Ktiseos-Nyx/plural-chat/domain"
	"github.com/Ktiseos-Nyx/plural-chat/errors"
	"github.com/Ktiseos-Nyx/plural-chat/observability"
)

type Set map[string]struct{}

// Scope selects who receives a broadcast.
type Scope int

const (
	// ScopeAccount reaches every session of the sending account.
	ScopeAccount Scope = iota
	// ScopeAll reaches every attached session.
	ScopeAll
)

func ParseScope(s string) (Scope, error) {
	switch s {
	case "", "account":
		return ScopeAccount, nil
	case "all":
		return ScopeAll, nil
	}
	return ScopeAccount, fmt.Errorf("%w: unknown broadcast scope %q", errors.ErrInvalidArguments, s)
}

// DeliveryReport sums up one broadcast. Failed is keyed by session id.
type DeliveryReport struct {
	Attempted int
	Delivered int
	Failed    map[string]error
}

type session struct {
	accountID domain.AccountID
	sink      contract.EventSink
}

type Registry struct {
	mu       sync.RWMutex
	sessions map[string]session       // map session -> sink
	accounts map[domain.AccountID]Set // map account to sessions
	timeout  time.Duration
	log      *slog.Logger
	metrics  *observability.Metrics
}

func NewRegistry(sinkTimeout time.Duration, log *slog.Logger, metrics *observability.Metrics) *Registry {
	return &Registry{
		sessions: make(map[string]session),
		accounts: make(map[domain.AccountID]Set),
		timeout:  sinkTimeout,
		log:      log,
		metrics:  metrics,
	}
}

// Attach registers a live session handle for an account.
// Attaching an existing session id replaces its sink.
func (r *Registry) Attach(accountID domain.AccountID, sessionID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if previous, ok := r.sessions[sessionID]; ok {
		r.removeLocked(previous.accountID, sessionID)
	} else {
		r.metrics.SessionAttached()
	}
	r.sessions[sessionID] = session{accountID: accountID, sink: sink}

	if _, ok := r.accounts[accountID]; !ok {
		r.accounts[accountID] = make(Set)
	}
	r.accounts[accountID][sessionID] = struct{}{}
}

// Detach removes a session. The account entry goes away with its last
// session so no empty set is ever left behind.
func (r *Registry) Detach(accountID domain.AccountID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok || s.accountID != accountID {
		return
	}
	delete(r.sessions, sessionID)
	r.removeLocked(accountID, sessionID)
	r.metrics.SessionDetached()
}

func (r *Registry) removeLocked(accountID domain.AccountID, sessionID string) {
	if members, ok := r.accounts[accountID]; ok {
		delete(members, sessionID)
		if len(members) == 0 {
			delete(r.accounts, accountID)
		}
	}
}

// SessionsFor returns the session ids of an account, sorted.
func (r *Registry) SessionsFor(accountID domain.AccountID) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.accounts[accountID]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Broadcast hands evt to every targeted session concurrently and waits for
// all of them. A failing or slow handle never blocks the others; failures
// are logged, counted and reported, never returned.
func (r *Registry) Broadcast(ctx context.Context, scope Scope, accountID domain.AccountID, evt domain.OutboundEvent) DeliveryReport {
	targets := r.targets(scope, accountID)
	report := DeliveryReport{Attempted: len(targets)}
	if len(targets) == 0 {
		return report
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for id, sink := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.consume(ctx, id, sink, evt)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if report.Failed == nil {
					report.Failed = make(map[string]error)
				}
				report.Failed[id] = err
				return
			}
			report.Delivered++
		}()
	}
	wg.Wait()
	return report
}

// Deliver sends evt to one session of accountID only.
func (r *Registry) Deliver(ctx context.Context, accountID domain.AccountID, sessionID string, evt domain.OutboundEvent) error {
	r.mu.RLock()
	s, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok || s.accountID != accountID {
		return fmt.Errorf("%w: %s", errors.ErrUnknownSession, sessionID)
	}
	return r.consume(ctx, sessionID, s.sink, evt)
}

func (r *Registry) targets(scope Scope, accountID domain.AccountID) map[string]contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	targets := make(map[string]contract.EventSink)
	if scope == ScopeAll {
		for id, s := range r.sessions {
			targets[id] = s.sink
		}
		return targets
	}
	for id := range r.accounts[accountID] {
		targets[id] = r.sessions[id].sink
	}
	return targets
}

func (r *Registry) consume(ctx context.Context, sessionID string, sink contract.EventSink, evt domain.OutboundEvent) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err := sink.Consume(ctx, evt)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", errors.ErrSinkTimeout, err)
	}
	reason := "error"
	switch {
	case errors.Is(err, errors.ErrSinkTimeout):
		reason = "timeout"
	case errors.Is(err, errors.ErrSessionClosed):
		reason = "closed"
	}
	r.log.Warn("Delivery failed", "session_id", sessionID, "event", evt.Type, "reason", reason, "error", err)
	r.metrics.DeliveryFailed(reason)
	return err
}
