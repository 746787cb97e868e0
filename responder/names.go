package responder

import (
	"context"

	"github.com/Ktiseos-Nyx/plural-chat/domain"
	"github.com/Ktiseos-Nyx/plural-chat/repositories"
)

// NameResolver labels history lines with the display name of their persona.
type NameResolver struct {
	personas repositories.IPersonaRepository
}

func NewNameResolver(personas repositories.IPersonaRepository) *NameResolver {
	return &NameResolver{personas: personas}
}

// For preloads the personas of accountID. Lines without a persona, or whose
// persona cannot be found, read as "User".
func (n *NameResolver) For(ctx context.Context, accountID domain.AccountID) func(domain.Message) string {
	known, _ := n.personas.PersonasFor(ctx, accountID)
	return func(m domain.Message) string {
		if m.SenderPersonaID == nil {
			return "User"
		}
		if p, ok := domain.FindPersona(known, *m.SenderPersonaID); ok {
			return p.DisplayName
		}
		p, err := n.personas.Persona(ctx, *m.SenderPersonaID)
		if err != nil {
			return "User"
		}
		known = append(known, p)
		return p.DisplayName
	}
}
