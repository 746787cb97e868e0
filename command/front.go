package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Ktiseos-Nyx/plural-chat/domain"
	"github.com/samber/lo"
)

func (b builtins) switchFront(ctx context.Context, inv Invocation) Result {
	if len(inv.Args) == 0 {
		return Invalid("Usage: `/switch <member1> [, member2, ...]`")
	}
	personas, err := b.Personas.PersonasFor(ctx, inv.AccountID)
	if err != nil {
		return Failure(err)
	}

	names := lo.Compact(lo.Map(strings.Split(inv.Rest(), ","), func(n string, _ int) string {
		return strings.TrimSpace(n)
	}))
	fronters := make([]domain.Persona, 0, len(names))
	for _, name := range names {
		p, ok := domain.FindPersonaByName(personas, name)
		if !ok {
			return Invalid("Member `%s` not found. Use `/list` to see your members.", name)
		}
		fronters = append(fronters, p)
	}
	fronters = lo.UniqBy(fronters, func(p domain.Persona) domain.PersonaID { return p.ID })

	ids := lo.Map(fronters, func(p domain.Persona, _ int) domain.PersonaID { return p.ID })
	if _, err := b.Fronts.RecordSwitch(ctx, inv.AccountID, ids); err != nil {
		return Failure(err)
	}
	return Success(fmt.Sprintf("✅ Switched to: **%s**", strings.Join(displayNames(fronters), ", ")))
}

func (b builtins) front(ctx context.Context, inv Invocation) Result {
	current, err := b.Fronts.Current(ctx, inv.AccountID)
	if err != nil {
		return Failure(err)
	}
	if len(current.PersonaIDs) == 0 {
		return Success("**Currently Fronting:** nobody logged yet.\n\nUse `/switch <name>` to log switches!")
	}
	personas, err := b.Personas.PersonasFor(ctx, inv.AccountID)
	if err != nil {
		return Failure(err)
	}
	fronters := lo.FilterMap(current.PersonaIDs, func(id domain.PersonaID, _ int) (domain.Persona, bool) {
		return domain.FindPersona(personas, id)
	})
	since := time.Since(current.Since).Round(time.Minute)
	return Success(fmt.Sprintf("**Currently Fronting:** %s\n\n*For %s*", strings.Join(displayNames(fronters), ", "), since))
}

func displayNames(personas []domain.Persona) []string {
	return lo.Map(personas, func(p domain.Persona, _ int) string { return p.DisplayName })
}
