// Package periscope emulates server-side Ethereum filter subscriptions on
// top of a stateless request/response JSON-RPC endpoint.
//
// Periscope — stateful filter semantics over a stateless RPC line.
//
// A caller installs a logical filter (log filter, new-block filter,
// pending-transaction filter), then repeatedly polls for only the data that
// arrived since the previous poll. Periscope keeps the per-filter cursor,
// scans the block range that appeared in between, and expires filters that
// sit idle for too long — everything a node-side filter API would do, done
// client-side with nothing but eth_blockNumber, eth_getBlockByNumber and
// eth_getLogs.
//
// Usage:
//
//	be := ethereum.New("https://mainnet.infura.io/v3/KEY")
//	p := periscope.New(be)
//
//	id, _ := p.NewBlockFilter(ctx)
//	for {
//	    delta, err := p.Changes(ctx, id)
//	    ...
//	}
package periscope

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hedeqiang/periscope/chain"
	"github.com/hedeqiang/periscope/event"
	"github.com/hedeqiang/periscope/filter"
)

// Periscope manages the lifecycle of polled filters against one backend.
type Periscope struct {
	backend chain.Backend
	config  Config
	clock   clockwork.Clock
	log     *zap.Logger

	registry  *registry
	scheduler *scheduler
}

// New creates a Periscope instance over the given backend.
func New(backend chain.Backend, opts ...Option) *Periscope {
	p := &Periscope{
		backend: backend,
		config:  DefaultConfig(),
		clock:   clockwork.NewRealClock(),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.registry = newRegistry()
	p.scheduler = newScheduler(p.clock, p.config.Expiry, p.expire)
	return p
}

// Delta is the result of one Changes poll. Exactly one field is populated,
// matching the filter's kind.
type Delta struct {
	// Logs holds the matches of a log filter.
	Logs []event.Log

	// BlockHashes holds the hashes of newly arrived blocks, ascending by height.
	BlockHashes []event.Hash

	// Transactions holds one element per newly arrived block (ascending by
	// height): the transaction hashes of that block.
	Transactions [][]event.Hash
}

// NewLogFilter normalizes the raw criteria and installs a log filter whose
// cursor starts at the current chain head. It returns the filter id.
// Malformed parameters fail with filter.ErrInvalidParams and install nothing.
func (p *Periscope) NewLogFilter(ctx context.Context, raw filter.RawCriteria) (uint64, error) {
	crit, err := filter.Normalize(raw)
	if err != nil {
		return 0, err
	}
	return p.install(ctx, LogFilter, crit)
}

// NewBlockFilter installs a filter that tracks newly arrived block hashes.
func (p *Periscope) NewBlockFilter(ctx context.Context) (uint64, error) {
	return p.install(ctx, BlockFilter, filter.Criteria{})
}

// NewPendingTxFilter installs a filter that tracks the transactions of
// newly arrived blocks.
func (p *Periscope) NewPendingTxFilter(ctx context.Context) (uint64, error) {
	return p.install(ctx, PendingTxFilter, filter.Criteria{})
}

func (p *Periscope) install(ctx context.Context, kind Kind, crit filter.Criteria) (uint64, error) {
	head, err := p.backend.LatestBlock(ctx)
	if err != nil {
		return 0, err
	}

	e := p.registry.register(kind, crit, head)
	p.scheduler.arm(e.id)

	p.log.Debug("filter installed",
		zap.Uint64("id", e.id),
		zap.Stringer("kind", kind),
		zap.Uint64("head", head),
	)
	return e.id, nil
}

// Uninstall removes the filter and its idle deadline. It reports whether the
// filter existed; removing an unknown id is not an error.
func (p *Periscope) Uninstall(id uint64) bool {
	p.scheduler.cancel(id)
	removed := p.registry.remove(id)
	if removed {
		p.log.Debug("filter uninstalled", zap.Uint64("id", id))
	}
	return removed
}

// Changes returns everything the filter matched since the previous poll and
// advances its cursor. A successful poll counts as activity and restarts the
// idle deadline. Unknown or expired ids fail with ErrFilterNotFound.
//
// Concurrent Changes calls on the same id serialize; calls on different ids
// are independent.
func (p *Periscope) Changes(ctx context.Context, id uint64) (*Delta, error) {
	e, ok := p.registry.get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrFilterNotFound, id)
	}

	e.pollMu.Lock()
	defer e.pollMu.Unlock()

	// Re-read the cursor now that the poll section is ours. The filter may
	// have expired between lookup and lock.
	cursor, ok := p.registry.cursorOf(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrFilterNotFound, id)
	}

	switch e.kind {
	case LogFilter:
		return p.logChanges(ctx, e, cursor)
	case BlockFilter, PendingTxFilter:
		return p.blockChanges(ctx, e, cursor)
	default:
		return nil, fmt.Errorf("%w: %d", ErrFilterNotFound, id)
	}
}

// logChanges queries logs in [cursor, to] where to re-resolves the stored
// "latest" sentinel against the live head. An inverted range matches
// nothing: no query is issued and the cursor stays put.
func (p *Periscope) logChanges(ctx context.Context, e *entry, cursor uint64) (*Delta, error) {
	head, err := p.backend.LatestBlock(ctx)
	if err != nil {
		return nil, err
	}

	to := e.crit.To.Resolve(head)
	if cursor > to {
		p.touch(e.id)
		return &Delta{}, nil
	}

	logs, err := p.backend.FilterLogs(ctx, filter.Query{
		FromBlock: &cursor,
		ToBlock:   &to,
		Addresses: e.crit.Addresses,
		Topics:    e.crit.Topics,
	})
	if err != nil {
		return nil, err
	}

	p.registry.advance(e.id, to)
	p.touch(e.id)
	p.log.Debug("log filter polled",
		zap.Uint64("id", e.id),
		zap.Uint64("from", cursor),
		zap.Uint64("to", to),
		zap.Int("logs", len(logs)),
	)
	return &Delta{Logs: logs}, nil
}

// blockChanges fetches the blocks in (cursor, head] and reports either their
// hashes or their transaction batches, depending on the filter kind. The
// cursor advances only after every fetch in the range has succeeded.
func (p *Periscope) blockChanges(ctx context.Context, e *entry, cursor uint64) (*Delta, error) {
	head, err := p.backend.LatestBlock(ctx)
	if err != nil {
		return nil, err
	}

	blocks, err := p.fetchRange(ctx, cursor, head)
	if err != nil {
		return nil, err
	}

	delta := &Delta{}
	if e.kind == PendingTxFilter {
		delta.Transactions = make([][]event.Hash, len(blocks))
		for i, b := range blocks {
			delta.Transactions[i] = b.Transactions
		}
	} else {
		delta.BlockHashes = make([]event.Hash, len(blocks))
		for i, b := range blocks {
			delta.BlockHashes[i] = b.Hash
		}
	}

	p.registry.advance(e.id, head)
	p.touch(e.id)
	p.log.Debug("block filter polled",
		zap.Uint64("id", e.id),
		zap.Stringer("kind", e.kind),
		zap.Uint64("cursor", cursor),
		zap.Uint64("head", head),
		zap.Int("blocks", len(blocks)),
	)
	return delta, nil
}

// fetchRange fetches the blocks at heights from+1 through to, inclusive.
// Fetches run concurrently but the result is assembled in ascending height
// order. An empty or inverted range issues no fetch at all. A single failed
// fetch fails the whole range.
func (p *Periscope) fetchRange(ctx context.Context, from, to uint64) ([]*event.Block, error) {
	if from >= to {
		return nil, nil
	}

	blocks := make([]*event.Block, to-from)
	g, gctx := errgroup.WithContext(ctx)
	if p.config.FetchConcurrency > 0 {
		g.SetLimit(p.config.FetchConcurrency)
	}
	for i := range blocks {
		i := i
		height := from + 1 + uint64(i)
		g.Go(func() error {
			b, err := p.backend.BlockByNumber(gctx, height)
			if err != nil {
				return err
			}
			blocks[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return blocks, nil
}

// Logs replays the filter's entire stored criteria, ignoring the poll
// cursor: the query spans the full fromBlock..toBlock range, with "latest"
// re-resolved against the live head. Only log filters support replay; any
// other id fails with ErrFilterNotFound.
func (p *Periscope) Logs(ctx context.Context, id uint64) ([]event.Log, error) {
	e, ok := p.registry.get(id)
	if !ok || e.kind != LogFilter {
		return nil, fmt.Errorf("%w: %d", ErrFilterNotFound, id)
	}

	e.pollMu.Lock()
	defer e.pollMu.Unlock()

	var head uint64
	if e.crit.From.IsLatest() || e.crit.To.IsLatest() {
		h, err := p.backend.LatestBlock(ctx)
		if err != nil {
			return nil, err
		}
		head = h
	}

	from := e.crit.From.Resolve(head)
	to := e.crit.To.Resolve(head)
	if from > to {
		p.touch(id)
		return nil, nil
	}

	logs, err := p.backend.FilterLogs(ctx, e.crit.Query(head))
	if err != nil {
		return nil, err
	}

	p.touch(id)
	return logs, nil
}

// Count returns the number of active filters.
func (p *Periscope) Count() int {
	return p.registry.size()
}

// Close cancels every idle deadline and drops all filters.
func (p *Periscope) Close() {
	p.scheduler.stopAll()
	p.registry.clear()
}

// touch restarts the idle deadline for a filter that is still installed.
func (p *Periscope) touch(id uint64) {
	if _, ok := p.registry.get(id); ok {
		p.scheduler.arm(id)
	}
}

// expire is the scheduler's deletion callback. Removing an entry that is
// already gone is a no-op.
func (p *Periscope) expire(id uint64) {
	if p.registry.remove(id) {
		p.log.Debug("filter expired", zap.Uint64("id", id))
	}
}
