package responder

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Ktiseos-Nyx/plural-chat/domain"
	"github.com/abadojack/whatlanggo"
)

const minLanguageSample = 40

// Turn is one line of the conversation window.
// Own is true when the persona being prompted wrote it.
type Turn struct {
	Speaker string
	Content string
	Own     bool
}

// Prompt is provider-agnostic: chat providers map Turns to roles, completion
// providers flatten everything with Text.
type Prompt struct {
	Persona string
	System  string
	Turns   []Turn
	Speaker string
	Message string
}

// BuildPrompt combines the persona profile, the chronological history and the
// message being answered. name resolves the display name of a history line.
func BuildPrompt(persona domain.Persona, message domain.Message, history []domain.Message, name func(domain.Message) string) Prompt {
	turns := make([]Turn, 0, len(history))
	for _, m := range history {
		if m.ID == message.ID || m.ResolvedContent == "" {
			continue
		}
		own := m.SenderPersonaID != nil && *m.SenderPersonaID == persona.ID
		turns = append(turns, Turn{Speaker: name(m), Content: m.ResolvedContent, Own: own})
	}
	return Prompt{
		Persona: persona.DisplayName,
		System:  systemPrompt(persona, message.ResolvedContent),
		Turns:   turns,
		Speaker: name(message),
		Message: message.ResolvedContent,
	}
}

func systemPrompt(persona domain.Persona, content string) string {
	var sb strings.Builder
	personality := ""
	if persona.Automated != nil {
		personality = strings.TrimSpace(persona.Automated.Personality)
	}
	if personality == "" {
		personality = fmt.Sprintf("You are %s, responding in character.", persona.DisplayName)
	}
	sb.WriteString(personality)
	if persona.Description != "" {
		fmt.Fprintf(&sb, "\n\nCharacter description: %s", persona.Description)
	}
	if persona.Pronouns != "" {
		fmt.Fprintf(&sb, "\n\nPronouns: %s", persona.Pronouns)
	}
	if lang, ok := language(content); ok {
		fmt.Fprintf(&sb, "\n\nReply in %s.", lang)
	}
	sb.WriteString("\n\nKeep replies short and conversational.")
	return sb.String()
}

// language names a non-English language detected with confidence.
// Short messages are too noisy to classify.
func language(content string) (string, bool) {
	if utf8.RuneCountInString(content) < minLanguageSample {
		return "", false
	}
	info := whatlanggo.Detect(content)
	if !info.IsReliable() || info.Lang.Iso6391() == "en" {
		return "", false
	}
	return info.Lang.String(), true
}

// Text flattens the prompt for completion endpoints.
func (p Prompt) Text() string {
	var sb strings.Builder
	sb.WriteString(p.System)
	if len(p.Turns) > 0 {
		sb.WriteString("\n\nRecent conversation:\n")
		for _, t := range p.Turns {
			fmt.Fprintf(&sb, "%s: %s\n", t.Speaker, t.Content)
		}
	}
	fmt.Fprintf(&sb, "\n%s: %s\n\n%s:", p.Speaker, p.Message, p.Persona)
	return sb.String()
}

// Fallback is the in-character line used when a provider fails.
func Fallback(persona domain.Persona) string {
	return fmt.Sprintf("*%s seems confused and doesn't respond*", persona.DisplayName)
}
