package command

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Ktiseos-Nyx/plural-chat/domain"
	"github.com/Ktiseos-Nyx/plural-chat/errors"
	"github.com/Ktiseos-Nyx/plural-chat/observability"
	"github.com/samber/lo"
)

const helpName = "help"

// Builder collects definitions before the table is frozen by Build.
type Builder struct {
	definitions []*Definition
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) Register(definitions ...Definition) *Builder {
	for _, d := range definitions {
		def := d
		b.definitions = append(b.definitions, &def)
	}
	return b
}

// Dispatcher is immutable once built and safe for concurrent use.
type Dispatcher struct {
	log         *slog.Logger
	metrics     *observability.Metrics
	table       map[string]*Definition
	definitions []*Definition
}

// Build checks names and aliases for collisions and adds /help when it was
// not registered explicitly.
func (b *Builder) Build(log *slog.Logger, metrics *observability.Metrics) (*Dispatcher, error) {
	d := &Dispatcher{
		log:     log,
		metrics: metrics,
		table:   make(map[string]*Definition),
	}

	definitions := b.definitions
	if !lo.ContainsBy(definitions, func(def *Definition) bool { return strings.EqualFold(def.Name, helpName) }) {
		definitions = append(definitions, d.helpDefinition())
	}

	for _, def := range definitions {
		def.Name = strings.ToLower(strings.TrimSpace(def.Name))
		if def.Name == "" || strings.ContainsAny(def.Name, " \t/") {
			return nil, fmt.Errorf("invalid command name %q", def.Name)
		}
		if def.Handler == nil {
			return nil, fmt.Errorf("command %q has no handler", def.Name)
		}
		if def.Category == "" {
			def.Category = CategoryUtility
		}
		def.Aliases = lo.Map(def.Aliases, func(alias string, _ int) string {
			return strings.ToLower(strings.TrimSpace(alias))
		})
		for _, key := range append([]string{def.Name}, def.Aliases...) {
			if _, exists := d.table[key]; exists || key == "" {
				return nil, fmt.Errorf("%w: /%s", errors.ErrDuplicateCommand, key)
			}
			d.table[key] = def
		}
		d.definitions = append(d.definitions, def)
	}

	sort.Slice(d.definitions, func(i, j int) bool {
		return d.definitions[i].Name < d.definitions[j].Name
	})
	return d, nil
}

// Execute runs raw as a command and returns only the reply text.
func (d *Dispatcher) Execute(ctx context.Context, accountID domain.AccountID, raw string, channelID domain.ChannelID) (reply string, handled bool) {
	out, handled := d.Dispatch(ctx, accountID, raw, channelID)
	return out.Text, handled
}

// Dispatch runs raw as a command. handled is false when raw is not command
// syntax, so the caller can treat it as chat. A reply to malformed arguments
// is marked Private.
func (d *Dispatcher) Dispatch(ctx context.Context, accountID domain.AccountID, raw string, channelID domain.ChannelID) (reply Reply, handled bool) {
	if !strings.HasPrefix(raw, "/") {
		return Reply{}, false
	}
	parts := strings.Fields(raw[1:])
	if len(parts) == 0 {
		return Reply{}, false
	}

	name := strings.ToLower(parts[0])
	def, ok := d.table[name]
	if !ok {
		d.metrics.CommandExecuted("unknown", "unknown")
		return Reply{Text: UnknownCommand(name)}, true
	}

	inv := Invocation{
		AccountID: accountID,
		ChannelID: channelID,
		Name:      name,
		Args:      parts[1:],
	}
	result := d.run(ctx, def, inv)
	if result.Failed() {
		d.metrics.CommandExecuted(def.Name, "failure")
		invalid := errors.IsValidation(result.Err())
		attrs := []any{"command", def.Name, "account_id", accountID, "error", result.Err()}
		if invalid {
			d.log.Warn("Command rejected", attrs...)
		} else {
			d.log.Error("Command failed", attrs...)
		}
		return Reply{
			Text:    fmt.Sprintf("❌ Error executing /%s: %s", def.Name, reason(result.Err())),
			Private: invalid,
		}, true
	}

	d.metrics.CommandExecuted(def.Name, "success")
	d.log.Debug("Command executed", "command", def.Name, "account_id", accountID)
	return Reply{Text: result.Text()}, true
}

// Lookup resolves a name or alias, case-insensitive.
func (d *Dispatcher) Lookup(name string) (*Definition, bool) {
	def, ok := d.table[strings.ToLower(strings.TrimPrefix(name, "/"))]
	return def, ok
}

// Definitions lists every distinct command once, sorted by name.
func (d *Dispatcher) Definitions() []*Definition {
	return append([]*Definition(nil), d.definitions...)
}

// run converts a handler panic into a failure.
func (d *Dispatcher) run(ctx context.Context, def *Definition, inv Invocation) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Failure(fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r))
		}
	}()
	return def.Handler(ctx, inv)
}

func UnknownCommand(name string) string {
	return fmt.Sprintf("❌ Unknown command: `/%s`. Type `/help` for available commands.", name)
}

func reason(err error) string {
	var argErr *ArgumentError
	if errors.As(err, &argErr) {
		return argErr.Reason
	}
	return err.Error()
}
