// Package domain contains core concepts of the chat system.
// This file defines Message and the events exchanged with sessions.
package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Message is a persisted chat line. ResolvedContent is never empty.
type Message struct {
	ID              uuid.UUID  `json:"id"`
	ChannelID       ChannelID  `json:"channel_id"`
	SenderAccountID AccountID  `json:"sender_account_id"`
	SenderPersonaID *PersonaID `json:"sender_persona_id,omitempty"`
	RawContent      string     `json:"raw_content"`
	ResolvedContent string     `json:"resolved_content"`
	Timestamp       time.Time  `json:"timestamp"`
	Edited          bool       `json:"edited"`
	Deleted         bool       `json:"deleted"`
}

// InboundEvent is what a connected client sends.
// SenderPersonaID is only used when no proxy tag matched.
type InboundEvent struct {
	Content         string     `json:"content" validate:"required"`
	SenderPersonaID *PersonaID `json:"senderPersonaId,omitempty"`
	ChannelID       *ChannelID `json:"channelId,omitempty"`
}

func (e InboundEvent) Validate(maxContentLength int) error {
	if err := validate.Struct(e); err != nil {
		return err
	}
	return validate.Var(e.Content, "max="+strconv.Itoa(maxContentLength))
}

// Channel returns the target channel, NoChannel when none was given.
func (e InboundEvent) Channel() ChannelID {
	if e.ChannelID == nil {
		return NoChannel
	}
	return *e.ChannelID
}

type EventType string

const (
	EventMessage         EventType = "message"
	EventDeliveryFailure EventType = "delivery_failure"
)

// OutboundEvent is what sessions receive.
type OutboundEvent struct {
	Type            EventType  `json:"type"`
	ID              string     `json:"id,omitempty"`
	ChannelID       ChannelID  `json:"channelId"`
	SenderAccountID AccountID  `json:"senderAccountId"`
	SenderPersonaID *PersonaID `json:"senderPersonaId,omitempty"`
	Content         string     `json:"content"`
	Timestamp       time.Time  `json:"timestamp"`
	IsSystem        bool       `json:"isSystem"`
	Retryable       bool       `json:"retryable,omitempty"`
}

func MessageEvent(m Message) OutboundEvent {
	return OutboundEvent{
		Type:            EventMessage,
		ID:              m.ID.String(),
		ChannelID:       m.ChannelID,
		SenderAccountID: m.SenderAccountID,
		SenderPersonaID: m.SenderPersonaID,
		Content:         m.ResolvedContent,
		Timestamp:       m.Timestamp,
	}
}

// SystemEvent is a reply that is shown in the channel but never stored.
func SystemEvent(accountID AccountID, channelID ChannelID, content string) OutboundEvent {
	return OutboundEvent{
		Type:            EventMessage,
		ChannelID:       channelID,
		SenderAccountID: accountID,
		Content:         content,
		Timestamp:       time.Now().UTC(),
		IsSystem:        true,
	}
}

// FailureEvent is delivered to the originating session only.
func FailureEvent(accountID AccountID, channelID ChannelID, content string, retryable bool) OutboundEvent {
	return OutboundEvent{
		Type:            EventDeliveryFailure,
		ChannelID:       channelID,
		SenderAccountID: accountID,
		Content:         content,
		Timestamp:       time.Now().UTC(),
		IsSystem:        true,
		Retryable:       retryable,
	}
}

// TriggerJob asks an automated persona to answer a message.
type TriggerJob struct {
	AccountID AccountID
	Persona   Persona
	Message   Message
}
