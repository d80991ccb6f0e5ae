package scanner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/tonindexer/blockscan/internal/app"
	"github.com/tonindexer/blockscan/internal/app/event"
	"github.com/tonindexer/blockscan/internal/core"
)

var _ app.ScannerService = (*Service)(nil)

// scanState is owned by the goroutine running Start.
type scanState struct {
	master     *core.BlockID
	shardSeqNo map[core.ShardKey]uint32
	stop       <-chan struct{}
}

func (st *scanState) markSeen(b *core.BlockID) {
	if no, ok := st.shardSeqNo[b.ShardKey()]; !ok || no < b.SeqNo {
		st.shardSeqNo[b.ShardKey()] = b.SeqNo
	}
}

type Service struct {
	*app.ScannerConfig

	running atomic.Bool

	// stop is closed once by Stop, before or during Start.
	stop     chan struct{}
	stopOnce sync.Once

	masterSeqNo atomic.Uint32
	shards      atomic.Int64
	blocks      atomic.Int64
}

func NewService(cfg *app.ScannerConfig) (*Service, error) {
	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "validate scanner config")
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = app.DefaultPollInterval
	}
	if cfg.Context == nil {
		cfg.Context = event.Context{}
	}
	return &Service{ScannerConfig: cfg, stop: make(chan struct{})}, nil
}

func (s *Service) Status() app.ScannerStatus {
	return app.ScannerStatus{
		Running:     s.running.Load(),
		MasterSeqNo: s.masterSeqNo.Load(),
		Shards:      int(s.shards.Load()),
		Blocks:      s.blocks.Load(),
	}
}

// Stop asks the scanner to finish. It does not wait for Start to return.
// Stop called before Start makes Start return without scanning.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func checkStop(ctx context.Context, st *scanState) error {
	select {
	case <-st.stop:
		return core.ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (s *Service) sleep(ctx context.Context, st *scanState) error {
	t := time.NewTimer(s.PollInterval)
	defer t.Stop()

	select {
	case <-st.stop:
		return core.ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Start scans masterchain blocks beginning from the selected one until Stop is called.
// Emitted handlers are always drained before Start returns.
func (s *Service) Start(ctx context.Context, from core.StartFrom) (err error) {
	if err := from.Validate(); err != nil {
		return err
	}
	if s.Dispatcher.Closed() {
		return errors.New("event dispatcher is closed")
	}
	if !s.running.CompareAndSwap(false, true) {
		return core.ErrAlreadyRunning
	}

	defer func() {
		s.Dispatcher.Close()
		s.running.Store(false)

		if errors.Is(err, core.ErrStopped) {
			log.Info().Uint32("master_seq", s.masterSeqNo.Load()).Msg("scanner stopped")
			err = nil
		}
	}()

	select {
	case <-s.stop:
		return core.ErrStopped
	default:
	}

	st, err := s.initState(ctx, from, s.stop)
	if err != nil {
		return err
	}

	log.Info().
		Uint32("from_block", st.master.SeqNo).
		Int("shards", len(st.shardSeqNo)).
		Bool("transactions", s.IncludeTransactions).
		Msg("started")

	for {
		if err := s.processMaster(ctx, st); err != nil {
			return err
		}
		if err := s.nextMaster(ctx, st); err != nil {
			return err
		}
	}
}

func (s *Service) lookupMaster(ctx context.Context, seqNo uint32) (*core.BlockID, error) {
	master, err := s.Client.LookupMaster(ctx, core.StartFrom{SeqNo: &seqNo})
	if err != nil {
		return nil, errors.Wrapf(err, "lookup masterchain block %d", seqNo)
	}
	return master, nil
}

func (s *Service) initState(ctx context.Context, from core.StartFrom, stop <-chan struct{}) (*scanState, error) {
	var (
		master *core.BlockID
		err    error
	)

	if from.Latest() {
		master, err = s.Client.LastMasterBlock(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "get last masterchain block")
		}
	} else {
		master, err = s.Client.LookupMaster(ctx, from)
		if err != nil {
			return nil, errors.Wrap(err, "lookup first masterchain block")
		}
	}

	prev := master
	if master.SeqNo > 0 {
		prev, err = s.lookupMaster(ctx, master.SeqNo-1)
		if err != nil {
			return nil, err
		}
	}

	prevShards, err := s.Client.ShardsInfo(ctx, prev)
	if err != nil {
		return nil, errors.Wrapf(err, "get shards of masterchain block %d", prev.SeqNo)
	}

	st := &scanState{
		master:     master,
		shardSeqNo: make(map[core.ShardKey]uint32, len(prevShards)),
		stop:       stop,
	}
	for _, shard := range prevShards {
		st.markSeen(shard)
	}

	s.masterSeqNo.Store(master.SeqNo)
	s.shards.Store(int64(len(st.shardSeqNo)))

	return st, nil
}

func (s *Service) unseenShards(ctx context.Context, st *scanState) ([]*core.BlockID, error) {
	var ret []*core.BlockID

	defer core.Timer(time.Now(), "unseenShards", st.master)

	tips, err := s.Client.ShardsInfo(ctx, st.master)
	if err != nil {
		return nil, errors.Wrapf(err, "get shards of masterchain block %d", st.master.SeqNo)
	}

	for _, tip := range tips {
		if err := checkStop(ctx, st); err != nil {
			return nil, err
		}

		unseen, err := WalkUnseen(ctx, tip, st.shardSeqNo, s.Client.BlockHeader)
		if err != nil {
			return nil, errors.Wrapf(err, "walk unseen blocks of shard %s", tip.ShardKey())
		}

		// a parent block before split is reachable from both children
		for _, b := range unseen {
			st.markSeen(b)
		}
		st.markSeen(tip)

		ret = append(ret, unseen...)
	}

	s.shards.Store(int64(len(st.shardSeqNo)))

	return ret, nil
}

func (s *Service) processMaster(ctx context.Context, st *scanState) error {
	lvl := log.Debug()
	if st.master.SeqNo%100 == 0 {
		lvl = log.Info()
	}
	lvl.Uint32("master_seq", st.master.SeqNo).Msg("new masterchain block")

	blocks, err := s.unseenShards(ctx, st)
	if err != nil {
		return err
	}

	for _, b := range blocks {
		if err := checkStop(ctx, st); err != nil {
			return err
		}

		log.Debug().
			Uint32("master_seq", st.master.SeqNo).
			Int32("workchain", b.Workchain).
			Uint64("shard", uint64(b.Shard)).
			Uint32("seq", b.SeqNo).
			Msg("new shard block")

		s.Dispatcher.Emit(ctx, &event.BlockEvent{
			MasterBlock: st.master,
			ShardBlock:  b,
			Client:      s.Client,
			Context:     s.Context,
		})
		s.blocks.Add(1)

		if !s.IncludeTransactions {
			continue
		}
		if err := s.processTransactions(ctx, st, b); err != nil {
			return err
		}
	}

	return nil
}

func (s *Service) processTransactions(ctx context.Context, st *scanState, b *core.BlockID) error {
	if err := checkStop(ctx, st); err != nil {
		return err
	}

	transactions, err := s.Client.BlockTransactions(ctx, b)
	if err != nil {
		s.Dispatcher.Emit(ctx, &event.ErrorEvent{
			MasterBlock: st.master,
			ShardBlock:  b,
			Err:         err,
		})
		if errors.Is(err, core.ErrNotAvailable) {
			log.Warn().Err(err).Str("block", b.String()).Msg("skip block transactions")
			return nil
		}
		return errors.Wrapf(err, "get transactions of block %s", b)
	}

	if err := checkStop(ctx, st); err != nil {
		return err
	}

	s.Dispatcher.Emit(ctx, &event.TransactionsEvent{
		MasterBlock:  st.master,
		ShardBlock:   b,
		Transactions: transactions,
		Client:       s.Client,
		Context:      s.Context,
	})
	for _, tx := range transactions {
		s.Dispatcher.Emit(ctx, &event.TransactionEvent{
			MasterBlock: st.master,
			ShardBlock:  b,
			Transaction: tx,
			Client:      s.Client,
			Context:     s.Context,
		})
	}

	return nil
}

// nextMaster waits for the masterchain block following the current one.
func (s *Service) nextMaster(ctx context.Context, st *scanState) error {
	target := st.master.SeqNo + 1

	for {
		if err := checkStop(ctx, st); err != nil {
			return err
		}

		last, err := s.Client.LastMasterBlock(ctx)
		if err != nil {
			return errors.Wrap(err, "get last masterchain block")
		}

		if last.SeqNo >= target {
			next := last
			if last.SeqNo != target {
				next, err = s.lookupMaster(ctx, target)
				if err != nil {
					return err
				}
			}
			st.master = next
			s.masterSeqNo.Store(next.SeqNo)
			return nil
		}

		if err := s.sleep(ctx, st); err != nil {
			return err
		}
	}
}
