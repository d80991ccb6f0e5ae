package event

import (
	"github.com/tonindexer/blockscan/internal/core"
)

type Type int

const (
	TypeAny Type = iota // wildcard, receives every event
	TypeBlock
	TypeTransactions
	TypeTransaction
	TypeError
)

func (t Type) String() string {
	switch t {
	case TypeAny:
		return "any"
	case TypeBlock:
		return "block"
	case TypeTransactions:
		return "transactions"
	case TypeTransaction:
		return "transaction"
	case TypeError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one of BlockEvent, TransactionsEvent, TransactionEvent or ErrorEvent.
// Events are shared between concurrently running handlers and must not be modified.
type Event interface {
	Type() Type
	Master() *core.BlockID
}

// Context carries user data to every handler. It is written once before scanning.
type Context map[string]any

func (c Context) Value(key string) (any, bool) {
	v, ok := c[key]
	return v, ok
}

func (c Context) GetString(key string) string {
	s, _ := c[key].(string)
	return s
}

type BlockEvent struct {
	MasterBlock *core.BlockID
	ShardBlock  *core.BlockID
	Client      core.ChainClient
	Context     Context
}

func (e *BlockEvent) Type() Type            { return TypeBlock }
func (e *BlockEvent) Master() *core.BlockID { return e.MasterBlock }

type TransactionsEvent struct {
	MasterBlock  *core.BlockID
	ShardBlock   *core.BlockID
	Transactions []*core.Transaction
	Client       core.ChainClient
	Context      Context
}

func (e *TransactionsEvent) Type() Type            { return TypeTransactions }
func (e *TransactionsEvent) Master() *core.BlockID { return e.MasterBlock }

// TransactionEvent is emitted for every transaction right after the TransactionsEvent of its block.
type TransactionEvent struct {
	MasterBlock *core.BlockID
	ShardBlock  *core.BlockID
	Transaction *core.Transaction
	Client      core.ChainClient
	Context     Context
}

func (e *TransactionEvent) Type() Type            { return TypeTransaction }
func (e *TransactionEvent) Master() *core.BlockID { return e.MasterBlock }

// ErrorEvent reports a failure that did not stop the scanner.
// ShardBlock, Source and Handler are optional.
type ErrorEvent struct {
	MasterBlock *core.BlockID
	ShardBlock  *core.BlockID
	Err         error
	Source      Event
	Handler     string
}

func (e *ErrorEvent) Type() Type            { return TypeError }
func (e *ErrorEvent) Master() *core.BlockID { return e.MasterBlock }

func shardOf(e Event) *core.BlockID {
	switch e := e.(type) {
	case *BlockEvent:
		return e.ShardBlock
	case *TransactionsEvent:
		return e.ShardBlock
	case *TransactionEvent:
		return e.ShardBlock
	case *ErrorEvent:
		return e.ShardBlock
	default:
		return nil
	}
}
