package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Ktiseos-Nyx/plural-chat/domain"
	"github.com/Ktiseos-Nyx/plural-chat/errors"
)

const laneBuffer = 64

type job struct {
	ctx  context.Context
	fn   func(ctx context.Context) error
	done chan error
}

// lane is the queue of one channel. waiting counts callers parked on a full
// queue; while it is non-zero newcomers park behind them.
type lane struct {
	jobs    chan job
	waiting int
}

// Sequencer runs jobs of the same channel one after another, in the order
// they were enqueued. Different channels run concurrently: the lock only
// guards the lane table, never a blocking send.
type Sequencer struct {
	mu      sync.RWMutex
	lanes   map[domain.ChannelID]*lane
	closed  bool
	closing chan struct{}
	senders sync.WaitGroup
	wg      sync.WaitGroup
	log     *slog.Logger
}

func NewSequencer(log *slog.Logger) *Sequencer {
	return &Sequencer{
		lanes:   make(map[domain.ChannelID]*lane),
		closing: make(chan struct{}),
		log:     log,
	}
}

// Do enqueues fn on the lane of channelID and waits for its result.
// fn runs detached from ctx cancellation: once enqueued it always completes.
// If ctx ends while waiting, Do returns ctx.Err() and the job still runs.
func (s *Sequencer) Do(ctx context.Context, channelID domain.ChannelID, fn func(ctx context.Context) error) error {
	j := job{ctx: context.WithoutCancel(ctx), fn: fn, done: make(chan error, 1)}
	if err := s.enqueue(ctx, channelID, j); err != nil {
		return err
	}
	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sequencer) enqueue(ctx context.Context, channelID domain.ChannelID, j job) error {
	l, queued, err := s.claim(channelID, j)
	if err != nil || queued {
		return err
	}
	defer s.release(l)

	// The lane is full: wait outside the lock so other channels keep going
	select {
	case l.jobs <- j:
		return nil
	case <-s.closing:
		return errors.ErrSequencerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// claim opens the lane of channelID on first use and queues j right away
// when the lane has room and nobody is already waiting, so callers keep
// their arrival order. Otherwise the caller is registered as an in-flight
// sender and must send itself.
func (s *Sequencer) claim(channelID domain.ChannelID, j job) (*lane, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, errors.ErrSequencerClosed
	}
	l, ok := s.lanes[channelID]
	if !ok {
		l = &lane{jobs: make(chan job, laneBuffer)}
		s.lanes[channelID] = l
		s.wg.Add(1)
		go s.run(channelID, l.jobs)
	}
	if l.waiting == 0 {
		select {
		case l.jobs <- j:
			return l, true, nil
		default:
		}
	}
	l.waiting++
	s.senders.Add(1)
	return l, false, nil
}

func (s *Sequencer) release(l *lane) {
	s.mu.Lock()
	l.waiting--
	s.mu.Unlock()
	s.senders.Done()
}

func (s *Sequencer) run(channelID domain.ChannelID, jobs chan job) {
	defer s.wg.Done()
	for j := range jobs {
		j.done <- s.execute(channelID, j)
	}
}

func (s *Sequencer) execute(channelID domain.ChannelID, j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Lane job panicked", "channel", channelID, "panic", fmt.Sprint(r))
			err = errors.ErrWorkerPanic
		}
	}()
	return j.fn(j.ctx)
}

// Close refuses new jobs, lets every lane drain what it already holds and
// waits for the lane goroutines to exit. Senders blocked on a full lane are
// released with ErrSequencerClosed.
func (s *Sequencer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.closing)
	s.mu.Unlock()

	s.senders.Wait()

	s.mu.Lock()
	for _, l := range s.lanes {
		close(l.jobs)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Lanes is the number of channels that have a running lane.
func (s *Sequencer) Lanes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lanes)
}
