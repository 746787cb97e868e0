//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"github.com/Ktiseos-Nyx/plural-chat/domain"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging by the supervisor.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is one live session handle.
// Consume must honor ctx and must not block past its deadline.
type EventSink interface {
	Consume(ctx context.Context, evt domain.OutboundEvent) error
}

// MessageSink receives every persisted message after broadcast (history index, timelines).
type MessageSink interface {
	Consume(ctx context.Context, msg domain.Message) error
}

// ResponseProvider generates the text of an automated persona.
// history is chronological, oldest first.
type ResponseProvider interface {
	Generate(ctx context.Context, persona domain.Persona, message domain.Message, history []domain.Message) (string, error)
}

// Responder answers one trigger job. It never fails: a provider failure
// turns into an in-character fallback.
type Responder interface {
	Respond(ctx context.Context, job domain.TriggerJob)
}

type IRegistry interface {
	Attach(accountID domain.AccountID, sessionID string, sink EventSink)
	Detach(accountID domain.AccountID, sessionID string)
	SessionsFor(accountID domain.AccountID) []string
}
