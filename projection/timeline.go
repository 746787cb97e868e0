// Package projection builds local timelines from persisted messages.
// Handles ordering, deduplication, and bounded retention.
// Does not emit events or interact with sessions directly.
package projection

import (
	"context"
	"slices"
	"sync"

	"github.com/Ktiseos-Nyx/plural-chat/domain"
	"github.com/google/uuid"
)

// HistoryReader is the slow path used to seed a channel on first read.
type HistoryReader interface {
	RecentMessages(ctx context.Context, channelID domain.ChannelID, limit int) ([]domain.Message, error)
}

type channelTimeline struct {
	seeded   bool
	messages []domain.Message // oldest first
}

// Timeline keeps the last messages of every channel in memory so responders
// can build their context without reading the store each time.
type Timeline struct {
	mu       sync.RWMutex
	capacity int
	fallback HistoryReader
	channels map[domain.ChannelID]*channelTimeline
}

func NewTimeline(capacity int, fallback HistoryReader) *Timeline {
	return &Timeline{
		capacity: max(capacity, 1),
		fallback: fallback,
		channels: make(map[domain.ChannelID]*channelTimeline),
	}
}

// Consume records a persisted message.
func (t *Timeline) Consume(_ context.Context, msg domain.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	ct := t.channelLocked(msg.ChannelID)
	ct.messages = t.merge(ct.messages, []domain.Message{msg})
	return nil
}

// RecentMessages returns at most limit messages, most recent first, like the
// store does. A channel never read before is seeded from the fallback.
func (t *Timeline) RecentMessages(ctx context.Context, channelID domain.ChannelID, limit int) ([]domain.Message, error) {
	t.mu.RLock()
	ct, ok := t.channels[channelID]
	seeded := ok && ct.seeded
	t.mu.RUnlock()

	if !seeded && t.fallback != nil {
		stored, err := t.fallback.RecentMessages(ctx, channelID, t.capacity)
		if err != nil {
			return nil, err
		}
		slices.Reverse(stored)
		t.mu.Lock()
		ct = t.channelLocked(channelID)
		ct.messages = t.merge(stored, ct.messages)
		ct.seeded = true
		t.mu.Unlock()
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	ct, ok = t.channels[channelID]
	if !ok {
		return nil, nil
	}
	n := min(limit, len(ct.messages))
	out := make([]domain.Message, 0, n)
	for i := len(ct.messages) - 1; i >= len(ct.messages)-n; i-- {
		out = append(out, ct.messages[i])
	}
	return out, nil
}

func (t *Timeline) channelLocked(channelID domain.ChannelID) *channelTimeline {
	ct, ok := t.channels[channelID]
	if !ok {
		ct = &channelTimeline{seeded: t.fallback == nil}
		t.channels[channelID] = ct
	}
	return ct
}

// merge keeps timestamp order, drops duplicated ids and trims to capacity.
func (t *Timeline) merge(older, newer []domain.Message) []domain.Message {
	seen := make(map[uuid.UUID]struct{}, len(older)+len(newer))
	merged := make([]domain.Message, 0, len(older)+len(newer))
	for _, m := range append(slices.Clone(older), newer...) {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		merged = append(merged, m)
	}
	slices.SortStableFunc(merged, func(a, b domain.Message) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	if len(merged) > t.capacity {
		merged = merged[len(merged)-t.capacity:]
	}
	return merged
}
