// Package proxy resolves which persona an account is speaking as, from the
// proxy tags wrapped around a message.
package proxy

import (
	"strings"
	"sync"

	"github.com/Ktiseos-Nyx/plural-chat/domain"
)

// Resolution is the outcome of matching one message.
// PersonaID is nil when no tag matched, Content is then the original text.
type Resolution struct {
	PersonaID *domain.PersonaID
	Content   string
}

type rule struct {
	prefix string
	suffix string
}

type compiled struct {
	version uint64
	rules   []rule
}

// Matcher keeps the compiled rules of every persona it has seen, keyed by
// persona id and tied to the persona version they were built from.
type Matcher struct {
	mu    sync.RWMutex
	cache map[domain.PersonaID]compiled
}

func NewMatcher() *Matcher {
	return &Matcher{cache: make(map[domain.PersonaID]compiled)}
}

// Resolve walks personas in the given order, then each persona's tags in
// their declared order, and stops at the first tag that matches with a
// non-empty remainder.
func (m *Matcher) Resolve(text string, personas []domain.Persona) Resolution {
	for _, p := range personas {
		for _, r := range m.rulesFor(p) {
			if content, ok := r.match(text); ok {
				id := p.ID
				return Resolution{PersonaID: &id, Content: content}
			}
		}
	}
	return Resolution{Content: text}
}

func (m *Matcher) rulesFor(p domain.Persona) []rule {
	m.mu.RLock()
	c, ok := m.cache[p.ID]
	m.mu.RUnlock()
	if ok && c.version == p.Version {
		return c.rules
	}

	c = compiled{version: p.Version, rules: compile(p.ProxyTags)}
	m.mu.Lock()
	m.cache[p.ID] = c
	m.mu.Unlock()
	return c.rules
}

func compile(tags []domain.ProxyTag) []rule {
	rules := make([]rule, 0, len(tags))
	for _, t := range tags {
		if t.IsEmpty() {
			continue
		}
		rules = append(rules, rule{prefix: t.Prefix, suffix: t.Suffix})
	}
	return rules
}

func (r rule) match(text string) (string, bool) {
	if !strings.HasPrefix(text, r.prefix) || !strings.HasSuffix(text, r.suffix) {
		return "", false
	}
	// Prefix and suffix must not overlap: "[]" does not match "[" + "]" twice.
	if len(r.prefix)+len(r.suffix) > len(text) {
		return "", false
	}
	content := strings.TrimSpace(text[len(r.prefix) : len(text)-len(r.suffix)])
	if content == "" {
		return "", false
	}
	return content, true
}
