package errors

import (
	"errors"
	"fmt"
)

// Classes. Every sentinel below wraps exactly one of them so callers can
// branch on the class without enumerating every cause.
var (
	ErrValidation  = fmt.Errorf("validation error")
	ErrProvider    = fmt.Errorf("provider error")
	ErrPersistence = fmt.Errorf("persistence error")
	ErrDispatch    = fmt.Errorf("dispatch error")
)

var (
	ErrUnknownChannel   = fmt.Errorf("%w: unknown channel", ErrValidation)
	ErrArchivedChannel  = fmt.Errorf("%w: channel is archived", ErrValidation)
	ErrPersonaNotOwned  = fmt.Errorf("%w: persona not owned by account", ErrValidation)
	ErrInvalidArguments = fmt.Errorf("%w: invalid arguments", ErrValidation)
	ErrInvalidProxyTag  = fmt.Errorf("%w: proxy tag needs a prefix or a suffix", ErrValidation)
	ErrEmptyContent     = fmt.Errorf("%w: empty content", ErrValidation)
	ErrInvalidEvent     = fmt.Errorf("%w: malformed inbound event", ErrValidation)

	ErrUnknownProvider = fmt.Errorf("%w: unknown provider", ErrProvider)
	ErrEmptyResponse   = fmt.Errorf("%w: empty response", ErrProvider)
	ErrProviderTimeout = fmt.Errorf("%w: timeout", ErrProvider)

	ErrNotFound = fmt.Errorf("%w: not found", ErrPersistence)

	ErrSinkTimeout    = fmt.Errorf("%w: sink timeout", ErrDispatch)
	ErrSessionClosed  = fmt.Errorf("%w: session closed", ErrDispatch)
	ErrQueueFull      = fmt.Errorf("%w: queue full", ErrDispatch)
	ErrUnknownSession = fmt.Errorf("%w: unknown session", ErrDispatch)

	ErrWorkerPanic      = fmt.Errorf("worker panic")
	ErrSequencerClosed  = fmt.Errorf("sequencer closed")
	ErrInvalidToken     = fmt.Errorf("invalid token")
	ErrDuplicateCommand = fmt.Errorf("duplicate command name or alias")
)

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

func IsProvider(err error) bool { return errors.Is(err, ErrProvider) }

func IsPersistence(err error) bool { return errors.Is(err, ErrPersistence) }

func IsDispatch(err error) bool { return errors.Is(err, ErrDispatch) }

// Persistence marks a storage failure so the router can tell it apart from
// a validation failure raised by the same collaborator.
func Persistence(err error) error {
	if err == nil || IsPersistence(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

func New(text string) error { return errors.New(text) }

func Join(errs ...error) error { return errors.Join(errs...) }
