package core

import (
	"github.com/xssnick/tonutils-go/tlb"

	"github.com/tonindexer/blockscan/addr"
)

// Transaction is an opaque transaction record of a shard block.
type Transaction struct {
	Workchain  int32  `json:"workchain"`
	Shard      int64  `json:"shard"`
	BlockSeqNo uint32 `json:"block_seq_no"`

	Account *addr.Address `json:"account"`
	LT      uint64        `json:"lt"`
	Hash    []byte        `json:"hash"`

	Raw *tlb.Transaction `json:"-"`
}
