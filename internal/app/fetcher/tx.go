package fetcher

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton"

	"github.com/tonindexer/blockscan/addr"
	"github.com/tonindexer/blockscan/internal/core"
)

const txPageSize = 100

func mapTransaction(b *ton.BlockIDExt, raw *tlb.Transaction) (*core.Transaction, error) {
	account, err := addr.New(b.Workchain, raw.AccountAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "transaction account (lt = %d)", raw.LT)
	}
	return &core.Transaction{
		Workchain:  b.Workchain,
		Shard:      b.Shard,
		BlockSeqNo: b.SeqNo,
		Account:    account,
		LT:         raw.LT,
		Hash:       raw.Hash,
		Raw:        raw,
	}, nil
}

func (s *Service) getTransaction(ctx context.Context, b *ton.BlockIDExt, id ton.TransactionShortInfo) (*core.Transaction, error) {
	account, err := addr.New(b.Workchain, id.Account)
	if err != nil {
		return nil, errors.Wrapf(err, "transaction account (workchain = %d, seq = %d, lt = %d)", b.Workchain, b.SeqNo, id.LT)
	}

	tx, err := s.API.GetTransaction(ctx, b, account.ToTonutils(), id.LT)
	if err != nil {
		return nil, errors.Wrapf(err, "get transaction (workchain = %d, seq = %d, addr = %s, lt = %d)",
			b.Workchain, b.SeqNo, account, id.LT)
	}

	return mapTransaction(b, tx)
}

// getTransactions fetches transactions concurrently and keeps the order of ids.
func (s *Service) getTransactions(ctx context.Context, b *ton.BlockIDExt, ids []ton.TransactionShortInfo) ([]*core.Transaction, error) {
	var wg sync.WaitGroup

	results := make([]*core.Transaction, len(ids))
	errs := make([]error, len(ids))

	wg.Add(len(ids))

	for i := range ids {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.getTransaction(ctx, b, ids[i])
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}

func (s *Service) BlockTransactions(ctx context.Context, block *core.BlockID) ([]*core.Transaction, error) {
	var (
		b            = toBlockIDExt(block)
		after        *ton.TransactionID3
		fetchedIDs   []ton.TransactionShortInfo
		transactions []*core.Transaction
		more         = true
		err          error
	)

	defer core.Timer(time.Now(), "BlockTransactions", block)

	for more {
		fetchedIDs, more, err = s.API.GetBlockTransactionsV2(ctx, b, txPageSize, after)
		if errors.Is(err, ton.ErrBlockNotFound) {
			return nil, errors.Wrapf(core.ErrNotAvailable, "get block transactions (workchain = %d, seq = %d): %s",
				b.Workchain, b.SeqNo, err)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "get block transactions (workchain = %d, seq = %d)",
				b.Workchain, b.SeqNo)
		}
		if more {
			if len(fetchedIDs) == 0 {
				return nil, errors.Errorf("empty transactions page (workchain = %d, seq = %d)", b.Workchain, b.SeqNo)
			}
			after = fetchedIDs[len(fetchedIDs)-1].ID3()
		}

		rawTx, err := s.getTransactions(ctx, b, fetchedIDs)
		if err != nil {
			return nil, err
		}

		transactions = append(transactions, rawTx...)
	}

	return transactions, nil
}
