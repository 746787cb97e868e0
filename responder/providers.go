package responder

import (
	"context"
	"fmt"
	"strings"

	"github.com/Ktiseos-Nyx/plural-chat/contract"
	"github.com/Ktiseos-Nyx/plural-chat/domain"
	"github.com/Ktiseos-Nyx/plural-chat/errors"
)

const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
)

// Providers routes each persona to the provider named in its configuration.
type Providers map[string]contract.ResponseProvider

func (p Providers) Generate(ctx context.Context, persona domain.Persona, message domain.Message, history []domain.Message) (string, error) {
	if persona.Automated == nil {
		return "", fmt.Errorf("%w: persona %s is not automated", errors.ErrUnknownProvider, persona.ID)
	}
	name := strings.ToLower(persona.Automated.Provider)
	provider, ok := p[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", errors.ErrUnknownProvider, name)
	}
	return provider.Generate(ctx, persona, message, history)
}

// PromptProvider adapts a function of a built prompt to a ResponseProvider.
// Names is optional.
type PromptProvider struct {
	Complete func(ctx context.Context, model string, prompt Prompt) (string, error)
	Model    string
	Names    *NameResolver
}

func (p PromptProvider) Generate(ctx context.Context, persona domain.Persona, message domain.Message, history []domain.Message) (string, error) {
	model := p.Model
	if persona.Automated != nil && persona.Automated.Model != "" {
		model = persona.Automated.Model
	}
	name := speakerName(persona)
	if p.Names != nil {
		name = p.Names.For(ctx, persona.AccountID)
	}
	return p.Complete(ctx, model, BuildPrompt(persona, message, history, name))
}

// speakerName is used when no resolver is available: the persona's own lines
// carry its name, everything else is "User".
func speakerName(persona domain.Persona) func(domain.Message) string {
	return func(m domain.Message) string {
		if m.SenderPersonaID != nil && *m.SenderPersonaID == persona.ID {
			return persona.DisplayName
		}
		return "User"
	}
}
