package proxy

import (
	"sync"
	"testing"

	"github.com/Ktiseos-Nyx/plural-chat/domain"
	"github.com/stretchr/testify/require"
)

func persona(id string, version uint64, tags ...domain.ProxyTag) domain.Persona {
	return domain.Persona{ID: domain.PersonaID(id), DisplayName: id, ProxyTags: tags, Version: version}
}

func TestMatcher_Resolve(t *testing.T) {
	personas := []domain.Persona{
		persona("A", 1, domain.ProxyTag{Prefix: "A:"}),
		persona("B", 1, domain.ProxyTag{Prefix: "[", Suffix: "]"}),
		persona("C", 1, domain.ProxyTag{Suffix: "-c"}),
	}

	tests := []struct {
		name      string
		input     string
		personaID *domain.PersonaID
		content   string
	}{
		{name: "Prefix only", input: "A: hello", personaID: ptr("A"), content: "hello"},
		{name: "Prefix and suffix", input: "[hi]", personaID: ptr("B"), content: "hi"},
		{name: "Prefix and suffix with padding", input: "[  hi there ]", personaID: ptr("B"), content: "hi there"},
		{name: "Empty middle is not a match", input: "[]", content: "[]"},
		{name: "Blank middle is not a match", input: "[   ]", content: "[   ]"},
		{name: "Prefix alone is not a match", input: "A:   ", content: "A:   "},
		{name: "Suffix only", input: "see you -c", personaID: ptr("C"), content: "see you"},
		{name: "No tag keeps text unchanged", input: "  plain text ", content: "  plain text "},
		{name: "Single bracket", input: "[", content: "["},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			m := NewMatcher()

			res := m.Resolve(tt.input, personas)

			req.Equal(tt.personaID, res.PersonaID)
			req.Equal(tt.content, res.Content)
		})
	}
}

func TestMatcher_Idempotence(t *testing.T) {
	req := require.New(t)
	m := NewMatcher()
	personas := []domain.Persona{persona("A", 1, domain.ProxyTag{Prefix: "A:"})}

	// Given a message already stripped once
	first := m.Resolve("A: hello", personas)
	req.NotNil(first.PersonaID)

	// When the stripped content is resolved again
	second := m.Resolve(first.Content, personas)

	// Then nothing matches and the content is unchanged
	req.Nil(second.PersonaID)
	req.Equal("hello", second.Content)
}

func TestMatcher_FirstMatchWins(t *testing.T) {
	req := require.New(t)
	m := NewMatcher()

	// Given two personas whose prefixes overlap, the shorter one registered first
	personas := []domain.Persona{
		persona("short", 1, domain.ProxyTag{Prefix: "a"}),
		persona("long", 1, domain.ProxyTag{Prefix: "ab:"}),
	}

	// Then the first registered always wins, even if the other is a longer match
	for i := 0; i < 20; i++ {
		res := m.Resolve("ab: hi", personas)
		req.Equal(ptr("short"), res.PersonaID)
		req.Equal("b: hi", res.Content)
	}
}

func TestMatcher_TagOrderWithinPersona(t *testing.T) {
	req := require.New(t)
	m := NewMatcher()
	personas := []domain.Persona{
		persona("A", 1, domain.ProxyTag{Prefix: "{"}, domain.ProxyTag{Prefix: "{", Suffix: "}"}),
	}

	res := m.Resolve("{x}", personas)

	req.Equal(ptr("A"), res.PersonaID)
	req.Equal("x}", res.Content)
}

func TestMatcher_EmptyTagsAreIgnored(t *testing.T) {
	req := require.New(t)
	m := NewMatcher()
	personas := []domain.Persona{persona("A", 1, domain.ProxyTag{})}

	res := m.Resolve("hello", personas)

	req.Nil(res.PersonaID)
	req.Equal("hello", res.Content)
}

func TestMatcher_RecompilesOnVersionBump(t *testing.T) {
	req := require.New(t)
	m := NewMatcher()

	// Given a persona compiled at version 1
	v1 := persona("A", 1, domain.ProxyTag{Prefix: "A:"})
	req.NotNil(m.Resolve("A: hi", []domain.Persona{v1}).PersonaID)

	// When its tags change and the version moves
	v2 := persona("A", 2, domain.ProxyTag{Prefix: "a>"})

	// Then the old tag no longer matches and the new one does
	req.Nil(m.Resolve("A: hi", []domain.Persona{v2}).PersonaID)
	req.NotNil(m.Resolve("a> hi", []domain.Persona{v2}).PersonaID)
}

func TestMatcher_CacheKeptForSameVersion(t *testing.T) {
	req := require.New(t)
	m := NewMatcher()

	v1 := persona("A", 1, domain.ProxyTag{Prefix: "A:"})
	req.NotNil(m.Resolve("A: hi", []domain.Persona{v1}).PersonaID)

	// Same version with different tags: the compiled rules are reused
	stale := persona("A", 1, domain.ProxyTag{Prefix: "a>"})
	req.NotNil(m.Resolve("A: hi", []domain.Persona{stale}).PersonaID)

	// A saved edit bumps the version, which is what recompiles
	edited := persona("A", 2, domain.ProxyTag{Prefix: "a>"})
	req.Nil(m.Resolve("A: hi", []domain.Persona{edited}).PersonaID)
}

func TestMatcher_ConcurrentResolve(t *testing.T) {
	req := require.New(t)
	m := NewMatcher()
	personas := []domain.Persona{
		persona("A", 1, domain.ProxyTag{Prefix: "A:"}),
		persona("B", 1, domain.ProxyTag{Prefix: "B:"}),
	}

	var wg sync.WaitGroup
	results := make(chan Resolution, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				results <- m.Resolve("A: x", personas)
				return
			}
			results <- m.Resolve("B: x", personas)
		}(i)
	}
	wg.Wait()
	close(results)

	for res := range results {
		req.NotNil(res.PersonaID)
		req.Equal("x", res.Content)
	}
}

func ptr(id string) *domain.PersonaID {
	p := domain.PersonaID(id)
	return &p
}
