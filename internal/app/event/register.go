package event

import (
	"context"

	"github.com/pkg/errors"
)

func typedHandler[E Event](h func(context.Context, E) error) Handler {
	return func(ctx context.Context, e Event) error {
		te, ok := e.(E)
		if !ok {
			return errors.Errorf("unexpected event type %T", e)
		}
		return h(ctx, te)
	}
}

func typedFilter[E Event](f func(context.Context, E) (bool, error)) Filter {
	if f == nil {
		return nil
	}
	return func(ctx context.Context, e Event) (bool, error) {
		te, ok := e.(E)
		if !ok {
			return false, nil
		}
		return f(ctx, te)
	}
}

func (d *Dispatcher) OnBlock(name string, h func(context.Context, *BlockEvent) error, f func(context.Context, *BlockEvent) (bool, error)) {
	d.Register(TypeBlock, name, typedHandler(h), typedFilter(f))
}

func (d *Dispatcher) OnTransactions(name string, h func(context.Context, *TransactionsEvent) error, f func(context.Context, *TransactionsEvent) (bool, error)) {
	d.Register(TypeTransactions, name, typedHandler(h), typedFilter(f))
}

func (d *Dispatcher) OnTransaction(name string, h func(context.Context, *TransactionEvent) error, f func(context.Context, *TransactionEvent) (bool, error)) {
	d.Register(TypeTransaction, name, typedHandler(h), typedFilter(f))
}

// OnError registers an error handler. Error handlers should not fail:
// their errors are logged and dropped.
func (d *Dispatcher) OnError(name string, h func(context.Context, *ErrorEvent) error, f func(context.Context, *ErrorEvent) (bool, error)) {
	d.Register(TypeError, name, typedHandler(h), typedFilter(f))
}

func (d *Dispatcher) OnAny(name string, h Handler, f Filter) {
	d.Register(TypeAny, name, h, f)
}
