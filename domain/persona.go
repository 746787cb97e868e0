// Package domain contains core concepts of the chat system.
// This file defines accounts, personas and their proxy tags.
// No runtime, network, or storage logic should be added here.
package domain

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

var validate = validator.New()

type AccountID string

type PersonaID string

// ProxyTag is one {prefix, suffix} pair. At least one side must be non-empty.
type ProxyTag struct {
	Prefix string `json:"prefix" validate:"required_without=Suffix"`
	Suffix string `json:"suffix" validate:"required_without=Prefix"`
}

func (t ProxyTag) Validate() error {
	return validate.Struct(t)
}

func (t ProxyTag) IsEmpty() bool {
	return t.Prefix == "" && t.Suffix == ""
}

// AutomatedConfig is carried by personas whose replies are generated by a provider.
type AutomatedConfig struct {
	Provider    string `json:"provider" validate:"required"`
	Model       string `json:"model"`
	Personality string `json:"personality"`
	Enabled     bool   `json:"enabled"`
}

type Persona struct {
	ID          PersonaID        `json:"id"`
	AccountID   AccountID        `json:"account_id"`
	DisplayName string           `json:"display_name" validate:"required"`
	ColorTag    string           `json:"color_tag"`
	Pronouns    string           `json:"pronouns"`
	Description string           `json:"description"`
	ProxyTags   []ProxyTag       `json:"proxy_tags" validate:"dive"`
	Version     uint64           `json:"version"`
	IsAutomated bool             `json:"is_automated"`
	Automated   *AutomatedConfig `json:"automated,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

func (p Persona) Validate() error {
	return validate.Struct(p)
}

// Responds reports whether the persona is an automated responder that is
// currently allowed to answer.
func (p Persona) Responds() bool {
	return p.IsAutomated && p.Automated != nil && p.Automated.Enabled
}

// Automated keeps the responders of a persona list, declared order preserved.
func Automated(personas []Persona) []Persona {
	return lo.Filter(personas, func(p Persona, _ int) bool {
		return p.Responds()
	})
}

// FindPersona looks a persona up by id.
func FindPersona(personas []Persona, id PersonaID) (Persona, bool) {
	return lo.Find(personas, func(p Persona) bool {
		return p.ID == id
	})
}

// FindPersonaByName is case-insensitive.
func FindPersonaByName(personas []Persona, name string) (Persona, bool) {
	return lo.Find(personas, func(p Persona) bool {
		return strings.EqualFold(p.DisplayName, strings.TrimSpace(name))
	})
}
