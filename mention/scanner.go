// Package mention finds which automated persona, if any, a message addresses.
package mention

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/Ktiseos-Nyx/plural-chat/domain"
	goahocorasick "github.com/anknown/ahocorasick"
)

const maxCachedMachines = 256

// Scanner matches "@name" tokens with one Aho-Corasick automaton per
// distinct set of automated personas.
type Scanner struct {
	mu       sync.RWMutex
	machines map[string]*automaton
}

type automaton struct {
	machine *goahocorasick.Machine
	// pattern -> indexes in the candidate list
	owners map[string][]int
}

func NewScanner() *Scanner {
	return &Scanner{machines: make(map[string]*automaton)}
}

// Scan returns the first enabled automated persona, in declared order, that
// the content addresses either with "@name" or by starting with "name:" or
// "name ". Matching is case-insensitive and at most one persona is returned.
func (s *Scanner) Scan(content string, personas []domain.Persona) (domain.Persona, bool) {
	candidates := domain.Automated(personas)
	candidates = filterNamed(candidates)
	if len(candidates) == 0 || content == "" {
		return domain.Persona{}, false
	}

	addressed := make([]bool, len(candidates))
	lowered := strings.ToLower(content)
	for i, p := range candidates {
		name := strings.ToLower(p.DisplayName)
		if strings.HasPrefix(lowered, name+":") || strings.HasPrefix(lowered, name+" ") {
			addressed[i] = true
		}
	}

	a, err := s.automatonFor(candidates)
	if err == nil {
		runes := []rune(lowered)
		for _, term := range a.machine.MultiPatternSearch(runes, false) {
			start := term.Pos
			end := start + len(term.Word)
			if start > 0 && isWordRune(runes[start-1]) {
				continue
			}
			if end < len(runes) && isWordRune(runes[end]) {
				continue
			}
			for _, idx := range a.owners[string(term.Word)] {
				addressed[idx] = true
			}
		}
	}

	for i, ok := range addressed {
		if ok {
			return candidates[i], true
		}
	}
	return domain.Persona{}, false
}

func (s *Scanner) automatonFor(candidates []domain.Persona) (*automaton, error) {
	key := signature(candidates)
	s.mu.RLock()
	a, ok := s.machines[key]
	s.mu.RUnlock()
	if ok {
		return a, nil
	}

	a = &automaton{owners: make(map[string][]int)}
	for i, p := range candidates {
		pattern := "@" + strings.ToLower(p.DisplayName)
		a.owners[pattern] = append(a.owners[pattern], i)
	}
	patterns := make([]string, 0, len(a.owners))
	for pattern := range a.owners {
		patterns = append(patterns, pattern)
	}
	sort.Strings(patterns)
	runes := make([][]rune, len(patterns))
	for i, p := range patterns {
		runes[i] = []rune(p)
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(runes); err != nil {
		return nil, err
	}
	a.machine = m

	s.mu.Lock()
	if len(s.machines) >= maxCachedMachines {
		s.machines = make(map[string]*automaton)
	}
	s.machines[key] = a
	s.mu.Unlock()
	return a, nil
}

// signature changes whenever a candidate is added, removed, reordered or edited.
func signature(candidates []domain.Persona) string {
	var sb strings.Builder
	for _, p := range candidates {
		sb.WriteString(string(p.ID))
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatUint(p.Version, 10))
		sb.WriteByte(':')
		sb.WriteString(strings.ToLower(p.DisplayName))
		sb.WriteByte('|')
	}
	return sb.String()
}

func filterNamed(personas []domain.Persona) []domain.Persona {
	out := personas[:0:0]
	for _, p := range personas {
		if strings.TrimSpace(p.DisplayName) != "" {
			out = append(out, p)
		}
	}
	return out
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
