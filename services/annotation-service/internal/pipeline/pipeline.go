// Package pipeline runs business operations through a fixed behavior chain:
// the delivery trigger wraps the transaction scope wraps the handler, so the
// trigger's post-processing only ever sees committed state.
package pipeline

import "context"

// Request is a business operation's input value.
type Request any

// Command marks a request whose handler mutates state. Requests without the
// marker are queries and bypass transaction handling. The check is a single
// type assertion, decided when the request type is declared.
type Command interface {
	IsCommand()
}

// CommandBase is embedded by command request types to satisfy Command.
type CommandBase struct{}

func (CommandBase) IsCommand() {}

func IsCommand(req Request) bool {
	_, ok := req.(Command)
	return ok
}

type HandlerFunc func(ctx context.Context, req Request) (any, error)

type Behavior interface {
	Handle(ctx context.Context, req Request, next HandlerFunc) (any, error)
}

type Dispatcher struct {
	behaviors []Behavior
}

func NewDispatcher(behaviors ...Behavior) *Dispatcher {
	return &Dispatcher{behaviors: behaviors}
}

// Dispatch runs req through the behavior chain into handle. Behaviors wrap in
// registration order: the first behavior sees the request first and its
// post-processing runs last.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request, handle HandlerFunc) (any, error) {
	next := handle
	for i := len(d.behaviors) - 1; i >= 0; i-- {
		b := d.behaviors[i]
		inner := next
		next = func(ctx context.Context, req Request) (any, error) {
			return b.Handle(ctx, req, inner)
		}
	}
	return next(ctx, req)
}
