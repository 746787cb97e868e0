package command

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/Ktiseos-Nyx/plural-chat/domain"
	"github.com/Ktiseos-Nyx/plural-chat/mocks"
	"github.com/Ktiseos-Nyx/plural-chat/repositories"
	"github.com/Ktiseos-Nyx/plural-chat/search"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var testPersonas = []domain.Persona{
	{ID: "p1", AccountID: "acc-1", DisplayName: "Riley", Pronouns: "they/them", ProxyTags: []domain.ProxyTag{{Prefix: "r:"}}, Version: 1},
	{ID: "p2", AccountID: "acc-1", DisplayName: "Alex", Version: 1},
}

type fakeSearcher struct {
	query search.Query
	found []domain.Message
}

func (f *fakeSearcher) Search(_ context.Context, q search.Query) ([]domain.Message, error) {
	f.query = q
	return f.found, nil
}

func builtinDispatcher(t *testing.T, deps Deps) *Dispatcher {
	t.Helper()
	d, err := NewBuilder().Register(Builtins(deps)...).Build(slog.Default(), nil)
	require.NoError(t, err)
	return d
}

func TestBuiltins_PingFlipRoll(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	d := builtinDispatcher(t, Deps{Intn: func(n int) int { return n - 1 }})

	reply, _ := d.Execute(ctx, "acc-1", "/ping", 0)
	req.Equal("🏓 Pong! System is running.", reply)

	reply, _ = d.Execute(ctx, "acc-1", "/coin", 0)
	req.Equal("🪙 **Tails**!", reply)

	reply, _ = d.Execute(ctx, "acc-1", "/roll 3d6+2", 0)
	req.Equal("🎲 Rolled 3d6+2: **20**\n\nRolls: 6, 6, 6", reply)

	reply, _ = d.Execute(ctx, "acc-1", "/dice", 0)
	req.Equal("🎲 Rolled 1d6: **6**", reply)

	reply, _ = d.Execute(ctx, "acc-1", "/roll 101d6", 0)
	req.Equal("❌ Error executing /roll: Dice count must be between 1 and 100.", reply)

	reply, _ = d.Execute(ctx, "acc-1", "/roll 2d1001", 0)
	req.Equal("❌ Error executing /roll: Dice sides must be between 1 and 1000.", reply)

	reply, _ = d.Execute(ctx, "acc-1", "/roll banana", 0)
	req.Contains(reply, "Invalid dice notation")
}

func TestParseDice(t *testing.T) {
	req := require.New(t)

	spec, err := ParseDice("d20")
	req.NoError(err)
	req.Equal(DiceSpec{Count: 1, Sides: 20}, spec)

	spec, err = ParseDice("2D10-3")
	req.NoError(err)
	req.Equal(DiceSpec{Count: 2, Sides: 10, Modifier: -3}, spec)
	req.Equal("2d10-3", spec.String())

	_, err = ParseDice("0d6")
	req.Error(err)
}

func TestBuiltins_ListAndInfo(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	personas := mocks.NewMockIPersonaRepository(ctrl)
	personas.EXPECT().PersonasFor(gomock.Any(), domain.AccountID("acc-1")).Return(testPersonas, nil).Times(2)
	d := builtinDispatcher(t, Deps{Personas: personas})

	reply, _ := d.Execute(ctx, "acc-1", "/ls", 0)
	req.Contains(reply, "Riley")
	req.Contains(reply, "Alex")
	req.Contains(reply, "`r:text`")
	req.Contains(reply, "**Total:** 2 members")

	reply, _ = d.Execute(ctx, "acc-1", "/whois riley", 0)
	req.Contains(reply, "**Riley**")
	req.Contains(reply, "**Pronouns:** they/them")
}

func TestBuiltins_ProxyAddsTagAndBumpsVersion(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	personas := mocks.NewMockIPersonaRepository(ctrl)
	personas.EXPECT().PersonasFor(gomock.Any(), domain.AccountID("acc-1")).Return(testPersonas, nil)

	// Then the persona is saved with the new tag appended after the old one
	personas.EXPECT().SavePersona(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p domain.Persona) (domain.Persona, error) {
			req.Equal([]domain.ProxyTag{{Prefix: "r:"}, {Prefix: "[", Suffix: "]"}}, p.ProxyTags)
			p.Version++
			return p, nil
		})
	d := builtinDispatcher(t, Deps{Personas: personas})

	// When a bracket tag is added
	reply, _ := d.Execute(ctx, "acc-1", "/proxy Riley [text]", 0)

	req.Contains(reply, "✅ **Riley** proxy tags: `r:text`, `[text]`")
}

func TestParseProxyTag(t *testing.T) {
	req := require.New(t)

	tag, err := ParseProxyTag("A:text")
	req.NoError(err)
	req.Equal(domain.ProxyTag{Prefix: "A:"}, tag)

	tag, err = ParseProxyTag("text -a")
	req.NoError(err)
	req.Equal(domain.ProxyTag{Suffix: " -a"}, tag)

	_, err = ParseProxyTag("text")
	req.Error(err)

	_, err = ParseProxyTag("[]")
	req.Error(err)
}

func TestBuiltins_SwitchAndFront(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	personas := mocks.NewMockIPersonaRepository(ctrl)
	fronts := mocks.NewMockIFrontRepository(ctrl)
	personas.EXPECT().PersonasFor(gomock.Any(), domain.AccountID("acc-1")).Return(testPersonas, nil).AnyTimes()
	fronts.EXPECT().RecordSwitch(gomock.Any(), domain.AccountID("acc-1"), []domain.PersonaID{"p1", "p2"}).
		Return(repositories.Front{PersonaIDs: []domain.PersonaID{"p1", "p2"}, Since: time.Now()}, nil)
	fronts.EXPECT().Current(gomock.Any(), domain.AccountID("acc-1")).
		Return(repositories.Front{PersonaIDs: []domain.PersonaID{"p1", "p2"}, Since: time.Now()}, nil)
	d := builtinDispatcher(t, Deps{Personas: personas, Fronts: fronts})

	reply, _ := d.Execute(ctx, "acc-1", "/sw riley, Alex", 0)
	req.Equal("✅ Switched to: **Riley, Alex**", reply)

	reply, _ = d.Execute(ctx, "acc-1", "/fronters", 0)
	req.True(strings.HasPrefix(reply, "**Currently Fronting:** Riley, Alex"))

	reply, _ = d.Execute(ctx, "acc-1", "/switch Nobody", 0)
	req.Equal("❌ Error executing /switch: Member `Nobody` not found. Use `/list` to see your members.", reply)
}

func TestBuiltins_Search(t *testing.T) {
	req := require.New(t)
	searcher := &fakeSearcher{found: []domain.Message{
		{ChannelID: 2, ResolvedContent: "found it", Timestamp: time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)},
	}}
	d := builtinDispatcher(t, Deps{Searcher: searcher})

	reply, _ := d.Execute(context.Background(), "acc-1", "/find it --channel 2", 0)

	req.Equal("it", searcher.query.Terms)
	req.Contains(reply, "• [#2] 2026-01-02 03:04 found it")
}

func TestBuiltins_SearchLeftOutWithoutSearcher(t *testing.T) {
	d := builtinDispatcher(t, Deps{})
	_, ok := d.Lookup("search")
	require.False(t, ok)
}
