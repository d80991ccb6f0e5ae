package event

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultMaxConcurrency = 1000

type (
	Handler func(ctx context.Context, e Event) error
	Filter  func(ctx context.Context, e Event) (bool, error)
)

type entry struct {
	name    string
	handler Handler
	filter  Filter
}

type Stats struct {
	Dispatched int64 `json:"dispatched"`
	Skipped    int64 `json:"skipped"`
	Failed     int64 `json:"failed"`
}

// PanicError is returned for a handler or filter that panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Dispatcher delivers events to registered handlers.
// Every handler invocation runs in its own goroutine, at most maxConcurrency of them at once.
type Dispatcher struct {
	handlers map[Type][]entry
	sem      chan struct{}
	wg       sync.WaitGroup

	closed bool
	mx     sync.RWMutex

	dispatched atomic.Int64
	skipped    atomic.Int64
	failed     atomic.Int64
}

func NewDispatcher(maxConcurrency int) *Dispatcher {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &Dispatcher{
		handlers: make(map[Type][]entry),
		sem:      make(chan struct{}, maxConcurrency),
	}
}

// Register adds a handler for the given event type. TypeAny handlers receive all events.
// Handlers should be registered before the first Emit. Filter may be nil.
func (d *Dispatcher) Register(t Type, name string, h Handler, f Filter) {
	d.mx.Lock()
	defer d.mx.Unlock()

	if name == "" {
		name = fmt.Sprintf("%s#%d", t, len(d.handlers[t]))
	}
	d.handlers[t] = append(d.handlers[t], entry{name: name, handler: h, filter: f})
}

// Emit schedules every matching handler and returns without waiting for them.
// It does nothing after Close.
func (d *Dispatcher) Emit(ctx context.Context, e Event) {
	d.mx.RLock()
	defer d.mx.RUnlock()

	if d.closed {
		return
	}

	exact, wildcard := d.handlers[e.Type()], d.handlers[TypeAny]

	d.wg.Add(len(exact) + len(wildcard))
	for _, h := range exact {
		go d.run(ctx, h, e)
	}
	for _, h := range wildcard {
		go d.run(ctx, h, e)
	}
}

// Close stops accepting events and waits for the scheduled handlers to finish.
func (d *Dispatcher) Close() {
	d.mx.Lock()
	d.closed = true
	d.mx.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) Closed() bool {
	d.mx.RLock()
	defer d.mx.RUnlock()

	return d.closed
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		Dispatched: d.dispatched.Load(),
		Skipped:    d.skipped.Load(),
		Failed:     d.failed.Load(),
	}
}

func invoke(ctx context.Context, h entry, e Event) (skip bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	if h.filter != nil {
		ok, err := h.filter(ctx, e)
		if err != nil {
			return false, errors.Wrap(err, "filter")
		}
		if !ok {
			return true, nil
		}
	}

	return false, h.handler(ctx, e)
}

func (d *Dispatcher) run(ctx context.Context, h entry, e Event) {
	defer d.wg.Done()

	d.sem <- struct{}{}
	defer func() { <-d.sem }()

	skip, err := invoke(ctx, h, e)
	switch {
	case skip:
		d.skipped.Add(1)
		return
	case err == nil:
		d.dispatched.Add(1)
		return
	}

	d.failed.Add(1)
	d.logError(h, e, err)

	if e.Type() == TypeError {
		return // do not report failures of error handlers
	}
	d.Emit(ctx, &ErrorEvent{
		MasterBlock: e.Master(),
		ShardBlock:  shardOf(e),
		Err:         err,
		Source:      e,
		Handler:     h.name,
	})
}

func (d *Dispatcher) logError(h entry, e Event, err error) {
	var l *zerolog.Event

	var pe *PanicError
	if errors.As(err, &pe) {
		l = log.Error().Str("stack", string(pe.Stack))
	} else {
		l = log.Error().Stack()
	}
	if m := e.Master(); m != nil {
		l = l.Uint32("master_seq", m.SeqNo)
	}
	if s := shardOf(e); s != nil {
		l = l.Int32("workchain", s.Workchain).Uint64("shard", uint64(s.Shard)).Uint32("seq", s.SeqNo)
	}
	l.Err(err).Str("handler", h.name).Str("event", e.Type().String()).Msg("event handler failed")
}
