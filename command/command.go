// Package command holds the slash-command table and its dispatcher.
package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/Ktiseos-Nyx/plural-chat/domain"
	"github.com/Ktiseos-Nyx/plural-chat/errors"
)

const (
	CategoryMembers   = "Member Management"
	CategorySwitching = "Switching"
	CategoryProxy     = "Proxy"
	CategoryUtility   = "Utility"
)

// Result is what a handler returns. Exactly one of text or err is meaningful.
type Result struct {
	text string
	err  error
}

func Success(text string) Result { return Result{text: text} }

func Failure(err error) Result {
	if err == nil {
		err = errors.New("unknown failure")
	}
	return Result{err: err}
}

// Invalid reports bad user input; the message is shown as is.
func Invalid(format string, args ...any) Result {
	return Failure(&ArgumentError{Reason: fmt.Sprintf(format, args...)})
}

func (r Result) Text() string { return r.text }

func (r Result) Err() error { return r.err }

func (r Result) Failed() bool { return r.err != nil }

// Reply is what the dispatcher hands back to the router.
// Private replies go to the issuing session only.
type Reply struct {
	Text    string
	Private bool
}

// ArgumentError carries a user-facing reason and is a validation error.
type ArgumentError struct {
	Reason string
}

func (e *ArgumentError) Error() string { return e.Reason }

func (e *ArgumentError) Unwrap() error { return errors.ErrInvalidArguments }

// Invocation is one parsed command call.
// Args are the whitespace separated tokens after the name, verbatim.
type Invocation struct {
	AccountID domain.AccountID
	ChannelID domain.ChannelID
	Name      string
	Args      []string
}

// Rest joins the arguments back with single spaces.
func (i Invocation) Rest() string {
	return strings.Join(i.Args, " ")
}

type Handler func(ctx context.Context, inv Invocation) Result

type Definition struct {
	Name        string
	Aliases     []string
	Usage       string
	Description string
	Category    string
	Handler     Handler
}
