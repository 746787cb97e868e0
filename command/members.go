package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/Ktiseos-Nyx/plural-chat/domain"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

const tagPlaceholder = "text"

func (b builtins) findPersona(ctx context.Context, accountID domain.AccountID, name string) (domain.Persona, Result, bool) {
	personas, err := b.Personas.PersonasFor(ctx, accountID)
	if err != nil {
		return domain.Persona{}, Failure(err), false
	}
	p, ok := domain.FindPersonaByName(personas, name)
	if !ok {
		return domain.Persona{}, Invalid("Member `%s` not found. Use `/list` to see your members.", name), false
	}
	return p, Result{}, true
}

func (b builtins) member(ctx context.Context, inv Invocation) Result {
	if len(inv.Args) < 2 {
		return Invalid("Usage: `/member <add|edit> <name> [field value]`")
	}
	switch strings.ToLower(inv.Args[0]) {
	case "add":
		name := strings.Join(inv.Args[1:], " ")
		personas, err := b.Personas.PersonasFor(ctx, inv.AccountID)
		if err != nil {
			return Failure(err)
		}
		if _, exists := domain.FindPersonaByName(personas, name); exists {
			return Invalid("Member `%s` already exists!", name)
		}
		if _, err := b.Personas.SavePersona(ctx, domain.Persona{AccountID: inv.AccountID, DisplayName: name}); err != nil {
			return Failure(err)
		}
		return Success(fmt.Sprintf("✅ Added member: **%s**\nUse `/member edit %s` to set pronouns, color, etc.", name, name))
	case "edit", "update":
		if len(inv.Args) < 4 {
			return Invalid("Usage: `/member edit <name> <field> <value>`. Fields: `pronouns`, `color`, `description`")
		}
		p, res, ok := b.findPersona(ctx, inv.AccountID, inv.Args[1])
		if !ok {
			return res
		}
		field := strings.ToLower(inv.Args[2])
		value := strings.Join(inv.Args[3:], " ")
		switch field {
		case "pronouns":
			p.Pronouns = value
		case "color", "colour":
			if !strings.HasPrefix(value, "#") {
				value = "#" + value
			}
			if err := validate.Var(value, "hexcolor,len=7"); err != nil {
				return Invalid("Invalid color format. Use hex color like `#FF5733`")
			}
			p.ColorTag = value
		case "description", "desc":
			p.Description = value
		default:
			return Invalid("Unknown field: `%s`. Available: pronouns, color, description", field)
		}
		if _, err := b.Personas.SavePersona(ctx, p); err != nil {
			return Failure(err)
		}
		return Success(fmt.Sprintf("✅ Updated **%s**'s %s to: %s", p.DisplayName, field, value))
	default:
		return Invalid("Unknown action: `%s`. Available: add, edit", inv.Args[0])
	}
}

func (b builtins) info(ctx context.Context, inv Invocation) Result {
	if len(inv.Args) == 0 {
		return Invalid("Usage: `/info <member name>`")
	}
	p, res, ok := b.findPersona(ctx, inv.AccountID, inv.Rest())
	if !ok {
		return res
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s**\n\n", p.DisplayName)
	if p.Pronouns != "" {
		fmt.Fprintf(&sb, "**Pronouns:** %s\n", p.Pronouns)
	}
	if p.ColorTag != "" {
		fmt.Fprintf(&sb, "**Color:** %s\n", p.ColorTag)
	}
	if p.Description != "" {
		fmt.Fprintf(&sb, "**Description:** %s\n", p.Description)
	}
	if len(p.ProxyTags) > 0 {
		fmt.Fprintf(&sb, "**Proxy:** %s\n", formatTags(p.ProxyTags))
	}
	if p.Responds() {
		fmt.Fprintf(&sb, "**Automated:** %s\n", p.Automated.Provider)
	}
	fmt.Fprintf(&sb, "\n**Created:** %s", p.CreatedAt.Format("2006-01-02"))
	return Success(sb.String())
}

func (b builtins) list(ctx context.Context, inv Invocation) Result {
	personas, err := b.Personas.PersonasFor(ctx, inv.AccountID)
	if err != nil {
		return Failure(err)
	}
	if len(personas) == 0 {
		return Success("❌ No members found. Use `/member add <name>` to add members!")
	}

	var sb strings.Builder
	sb.WriteString("**Your System Members:**\n```\n")
	table := tablewriter.NewWriter(&sb)
	table.SetHeader([]string{"Name", "Pronouns", "Proxy", "Automated"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	for _, p := range personas {
		table.Append([]string{p.DisplayName, p.Pronouns, formatTags(p.ProxyTags), lo.Ternary(p.Responds(), "yes", "")})
	}
	table.Render()
	fmt.Fprintf(&sb, "```\n**Total:** %d members", len(personas))
	return Success(sb.String())
}

func (b builtins) proxy(ctx context.Context, inv Invocation) Result {
	if len(inv.Args) == 0 {
		return Invalid("Usage: `/proxy <name> [prefix]text[suffix] | clear`")
	}
	p, res, ok := b.findPersona(ctx, inv.AccountID, inv.Args[0])
	if !ok {
		return res
	}
	if len(inv.Args) == 1 {
		if len(p.ProxyTags) == 0 {
			return Success(fmt.Sprintf("**%s** has no proxy tags.", p.DisplayName))
		}
		return Success(fmt.Sprintf("**%s** proxy tags: %s", p.DisplayName, formatTags(p.ProxyTags)))
	}

	arg := strings.Join(inv.Args[1:], " ")
	if strings.EqualFold(arg, "clear") {
		p.ProxyTags = nil
	} else {
		tag, err := ParseProxyTag(arg)
		if err != nil {
			return Failure(err)
		}
		if lo.Contains(p.ProxyTags, tag) {
			return Invalid("**%s** already uses `%s`", p.DisplayName, formatTag(tag))
		}
		p.ProxyTags = append(p.ProxyTags, tag)
	}
	if _, err := b.Personas.SavePersona(ctx, p); err != nil {
		return Failure(err)
	}
	return Success(fmt.Sprintf("✅ **%s** proxy tags: %s", p.DisplayName, lo.Ternary(len(p.ProxyTags) == 0, "none", formatTags(p.ProxyTags))))
}

// ParseProxyTag reads "[text]" style notation: what surrounds the word text
// is the prefix and the suffix.
func ParseProxyTag(notation string) (domain.ProxyTag, error) {
	idx := strings.Index(strings.ToLower(notation), tagPlaceholder)
	if idx < 0 {
		return domain.ProxyTag{}, &ArgumentError{Reason: "A proxy tag must contain the word `text`, like `[text]` or `A:text`"}
	}
	tag := domain.ProxyTag{
		Prefix: strings.TrimLeft(notation[:idx], " "),
		Suffix: strings.TrimRight(notation[idx+len(tagPlaceholder):], " "),
	}
	if tag.IsEmpty() {
		return domain.ProxyTag{}, &ArgumentError{Reason: "A proxy tag needs a prefix or a suffix"}
	}
	return tag, nil
}

func formatTag(t domain.ProxyTag) string {
	return t.Prefix + tagPlaceholder + t.Suffix
}

func formatTags(tags []domain.ProxyTag) string {
	return strings.Join(lo.Map(tags, func(t domain.ProxyTag, _ int) string { return "`" + formatTag(t) + "`" }), ", ")
}
