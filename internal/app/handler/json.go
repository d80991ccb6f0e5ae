package handler

import (
	"context"
	"io"
	"sync"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/tonindexer/blockscan/internal/app/event"
	"github.com/tonindexer/blockscan/internal/core"
)

// Record is a line written by JSONWriter.
type Record struct {
	Type         string              `json:"type"`
	Master       *core.BlockID       `json:"master,omitempty"`
	Shard        *core.BlockID       `json:"shard,omitempty"`
	Transactions []*core.Transaction `json:"transactions,omitempty"`
	Transaction  *core.Transaction   `json:"transaction,omitempty"`
	Error        string              `json:"error,omitempty"`
	Handler      string              `json:"handler,omitempty"`
}

// JSONWriter writes events as JSON lines.
type JSONWriter struct {
	mx sync.Mutex
	w  io.Writer
}

func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{w: w}
}

func (j *JSONWriter) Register(d *event.Dispatcher) {
	d.OnAny("json", j.Handle, nil)
}

func newRecord(e event.Event) *Record {
	r := &Record{Type: e.Type().String(), Master: e.Master()}

	switch e := e.(type) {
	case *event.BlockEvent:
		r.Shard = e.ShardBlock
	case *event.TransactionsEvent:
		r.Shard = e.ShardBlock
		r.Transactions = e.Transactions
	case *event.TransactionEvent:
		r.Shard = e.ShardBlock
		r.Transaction = e.Transaction
	case *event.ErrorEvent:
		r.Shard = e.ShardBlock
		r.Handler = e.Handler
		if e.Err != nil {
			r.Error = e.Err.Error()
		}
	}

	return r
}

func (j *JSONWriter) Handle(_ context.Context, e event.Event) error {
	raw, err := json.Marshal(newRecord(e))
	if err != nil {
		return errors.Wrapf(err, "marshal %s event", e.Type())
	}
	raw = append(raw, '\n')

	j.mx.Lock()
	defer j.mx.Unlock()

	if _, err := j.w.Write(raw); err != nil {
		return errors.Wrap(err, "write event")
	}
	return nil
}
