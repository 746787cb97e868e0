package command

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/Ktiseos-Nyx/plural-chat/domain"
	"github.com/Ktiseos-Nyx/plural-chat/repositories"
	"github.com/Ktiseos-Nyx/plural-chat/search"
	"github.com/samber/lo"
)

type Searcher interface {
	Search(ctx context.Context, query search.Query) ([]domain.Message, error)
}

// Deps are the collaborators of the built-in commands. Searcher may be nil,
// /search is then left out.
type Deps struct {
	Personas repositories.IPersonaRepository
	Fronts   repositories.IFrontRepository
	Searcher Searcher
	// Intn returns a value in [0, n). Defaults to math/rand.
	Intn func(n int) int
}

type builtins struct {
	Deps
}

// Builtins returns the default command set, ready to be registered.
func Builtins(deps Deps) []Definition {
	if deps.Intn == nil {
		deps.Intn = rand.IntN
	}
	b := builtins{Deps: deps}
	defs := []Definition{
		{
			Name: "member", Aliases: []string{"m"}, Category: CategoryMembers,
			Usage:       "/member <add|edit> <name> [field value]",
			Description: "Manage your system members",
			Handler:     b.member,
		},
		{
			Name: "info", Aliases: []string{"i", "whois"}, Category: CategoryMembers,
			Usage:       "/info <name>",
			Description: "Show information about a member",
			Handler:     b.info,
		},
		{
			Name: "list", Aliases: []string{"members", "ls"}, Category: CategoryMembers,
			Usage:       "/list",
			Description: "List all your members",
			Handler:     b.list,
		},
		{
			Name: "switch", Aliases: []string{"sw"}, Category: CategorySwitching,
			Usage:       "/switch <member1> [, member2, ...]",
			Description: "Log a switch (who's fronting)",
			Handler:     b.switchFront,
		},
		{
			Name: "front", Aliases: []string{"f", "fronters"}, Category: CategorySwitching,
			Usage:       "/front",
			Description: "See who's currently fronting",
			Handler:     b.front,
		},
		{
			Name: "proxy", Category: CategoryProxy,
			Usage:       "/proxy <name> [prefix]text[suffix] | clear",
			Description: "Show, add or clear the proxy tags of a member",
			Handler:     b.proxy,
		},
		{
			Name: "roll", Aliases: []string{"dice"}, Category: CategoryUtility,
			Usage:       "/roll [dice notation]",
			Description: "Roll dice",
			Handler:     b.roll,
		},
		{
			Name: "flip", Aliases: []string{"coin"}, Category: CategoryUtility,
			Usage:       "/flip",
			Description: "Flip a coin",
			Handler:     b.flip,
		},
		{
			Name: "ping", Category: CategoryUtility,
			Usage:       "/ping",
			Description: "Check if the bot is alive",
			Handler:     ping,
		},
	}
	if deps.Searcher != nil {
		defs = append(defs, Definition{
			Name: "search", Aliases: []string{"find"}, Category: CategoryUtility,
			Usage:       "/search <terms> [--channel N] [--limit N]",
			Description: "Search the message history",
			Handler:     b.search,
		})
	}
	return defs
}

func ping(context.Context, Invocation) Result {
	return Success("🏓 Pong! System is running.")
}

func (b builtins) flip(context.Context, Invocation) Result {
	return Success(fmt.Sprintf("🪙 **%s**!", lo.Ternary(b.Intn(2) == 0, "Heads", "Tails")))
}

func (b builtins) roll(_ context.Context, inv Invocation) Result {
	notation := ""
	if len(inv.Args) > 0 {
		notation = inv.Args[0]
	}
	spec, err := ParseDice(notation)
	if err != nil {
		return Failure(err)
	}
	total, rolls := spec.Roll(b.Intn)
	out := fmt.Sprintf("🎲 Rolled %s: **%d**", spec, total)
	if spec.Count > 1 && spec.Count <= 10 {
		out += "\n\nRolls: " + strings.Join(lo.Map(rolls, func(r int, _ int) string { return strconv.Itoa(r) }), ", ")
	}
	return Success(out)
}

func (b builtins) search(ctx context.Context, inv Invocation) Result {
	query := search.NewSearchQuery(inv.Rest())
	if query.Terms == "" {
		return Invalid("Usage: `/search <terms> [--channel N] [--limit N]`")
	}
	messages, err := b.Searcher.Search(ctx, query)
	if err != nil {
		return Failure(err)
	}
	if len(messages) == 0 {
		return Success(fmt.Sprintf("🔍 No message matches `%s`", query.Terms))
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "🔍 **%d result(s) for** `%s`\n\n", len(messages), query.Terms)
	for _, m := range messages {
		fmt.Fprintf(&sb, "• [#%d] %s %s\n", m.ChannelID, m.Timestamp.Format("2006-01-02 15:04"), m.ResolvedContent)
	}
	return Success(strings.TrimRight(sb.String(), "\n"))
}
