package command

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

var categoryOrder = []string{CategoryMembers, CategorySwitching, CategoryProxy, CategoryUtility}

func (d *Dispatcher) helpDefinition() *Definition {
	return &Definition{
		Name:        helpName,
		Aliases:     []string{"h", "commands"},
		Usage:       "/help [command]",
		Description: "Show all available commands",
		Category:    CategoryUtility,
		Handler:     d.help,
	}
}

func (d *Dispatcher) help(_ context.Context, inv Invocation) Result {
	if len(inv.Args) > 0 {
		def, ok := d.Lookup(inv.Args[0])
		if !ok {
			return Invalid("Unknown command: `/%s`", strings.ToLower(strings.TrimPrefix(inv.Args[0], "/")))
		}
		return Success(describe(def))
	}
	return Success(d.HelpText())
}

// HelpText lists each distinct command once, grouped by category and sorted by name.
func (d *Dispatcher) HelpText() string {
	groups := lo.GroupBy(d.definitions, func(def *Definition) string { return def.Category })

	categories := append([]string(nil), categoryOrder...)
	var extra []string
	for category := range groups {
		if !lo.Contains(categoryOrder, category) {
			extra = append(extra, category)
		}
	}
	sort.Strings(extra)
	categories = append(categories, extra...)

	var sb strings.Builder
	sb.WriteString("**📚 Available Commands:**\n\n")
	for _, category := range categories {
		defs := groups[category]
		if len(defs) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "**%s:**\n", category)
		for _, def := range defs {
			aliases := ""
			if len(def.Aliases) > 0 {
				aliases = fmt.Sprintf(" (aliases: %s)", strings.Join(def.Aliases, ", "))
			}
			fmt.Fprintf(&sb, "• `%s`%s\n  %s\n\n", def.Usage, aliases, def.Description)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func describe(def *Definition) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**/%s**\n\n%s\n\n**Usage:** `%s`\n", def.Name, def.Description, def.Usage)
	if len(def.Aliases) > 0 {
		aliases := lo.Map(def.Aliases, func(a string, _ int) string { return "`/" + a + "`" })
		fmt.Fprintf(&sb, "**Aliases:** %s\n", strings.Join(aliases, ", "))
	}
	return sb.String()
}
