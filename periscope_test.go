package periscope

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/hedeqiang/periscope/event"
	"github.com/hedeqiang/periscope/filter"
)

// fakeBackend serves canned blocks and logs and counts every call, so tests
// can assert not just results but how many fetches were issued.
type fakeBackend struct {
	mu     sync.Mutex
	head   uint64
	blocks map[uint64]*event.Block
	logs   []event.Log

	headCalls  int
	blockCalls int
	logCalls   int

	blockErr  map[uint64]error
	lastQuery filter.Query
}

func newFakeBackend(head uint64) *fakeBackend {
	f := &fakeBackend{
		blocks:   make(map[uint64]*event.Block),
		blockErr: make(map[uint64]error),
	}
	f.growTo(head)
	return f
}

// growTo extends the chain up to the given head, minting deterministic
// blocks along the way.
func (f *fakeBackend) growTo(head uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for n := uint64(0); n <= head; n++ {
		if _, ok := f.blocks[n]; ok {
			continue
		}
		f.blocks[n] = &event.Block{
			Number:       n,
			Hash:         hashFor(n),
			Transactions: []event.Hash{hashFor(n + 1000000), hashFor(n + 2000000)},
		}
	}
	if head > f.head {
		f.head = head
	}
}

func hashFor(n uint64) event.Hash {
	var h event.Hash
	for i := 0; i < 8; i++ {
		h[31-i] = byte(n >> (8 * i))
	}
	return h
}

func (f *fakeBackend) LatestBlock(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headCalls++
	return f.head, nil
}

func (f *fakeBackend) BlockByNumber(ctx context.Context, number uint64) (*event.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blockCalls++
	if err, ok := f.blockErr[number]; ok {
		return nil, err
	}
	b, ok := f.blocks[number]
	if !ok {
		return nil, fmt.Errorf("no block %d", number)
	}
	return b, nil
}

func (f *fakeBackend) FilterLogs(ctx context.Context, query filter.Query) ([]event.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logCalls++
	f.lastQuery = query
	var out []event.Log
	for _, l := range f.logs {
		if query.FromBlock != nil && l.BlockNumber < *query.FromBlock {
			continue
		}
		if query.ToBlock != nil && l.BlockNumber > *query.ToBlock {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeBackend) logCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logCalls
}

func (f *fakeBackend) blockCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blockCalls
}

func (f *fakeBackend) query() filter.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastQuery
}

func TestBlockFilterDelta(t *testing.T) {
	ctx := context.Background()
	be := newFakeBackend(100)
	p := New(be)
	defer p.Close()

	id, err := p.NewBlockFilter(ctx)
	require.NoError(t, err)

	be.growTo(103)

	delta, err := p.Changes(ctx, id)
	require.NoError(t, err)
	require.Equal(t, []event.Hash{hashFor(101), hashFor(102), hashFor(103)}, delta.BlockHashes)

	cursor, ok := p.registry.cursorOf(id)
	require.True(t, ok)
	require.Equal(t, uint64(103), cursor)
}

func TestChangesIdempotentWithoutNewBlocks(t *testing.T) {
	ctx := context.Background()
	be := newFakeBackend(100)
	p := New(be)
	defer p.Close()

	id, err := p.NewBlockFilter(ctx)
	require.NoError(t, err)

	be.growTo(103)

	first, err := p.Changes(ctx, id)
	require.NoError(t, err)
	require.Len(t, first.BlockHashes, 3)
	cursorAfterFirst, _ := p.registry.cursorOf(id)

	fetchesBefore := be.blockCallCount()
	second, err := p.Changes(ctx, id)
	require.NoError(t, err)
	require.Empty(t, second.BlockHashes)
	require.Equal(t, fetchesBefore, be.blockCallCount(), "empty range must issue zero fetches")

	cursorAfterSecond, _ := p.registry.cursorOf(id)
	require.Equal(t, cursorAfterFirst, cursorAfterSecond)
}

func TestLogFilterInvertedRangeSkipsQuery(t *testing.T) {
	ctx := context.Background()
	be := newFakeBackend(50)
	p := New(be)
	defer p.Close()

	// toBlock 10 is below the creation-time cursor of 50.
	id, err := p.NewLogFilter(ctx, filter.RawCriteria{ToBlock: "0xa"})
	require.NoError(t, err)

	delta, err := p.Changes(ctx, id)
	require.NoError(t, err)
	require.Empty(t, delta.Logs)
	require.Zero(t, be.logCallCount())

	cursor, ok := p.registry.cursorOf(id)
	require.True(t, ok)
	require.Equal(t, uint64(50), cursor, "cursor must stay put on an inverted range")
}

func TestLogFilterDeltaQueriesCursorToHead(t *testing.T) {
	ctx := context.Background()
	be := newFakeBackend(50)
	be.logs = []event.Log{
		{BlockNumber: 40},
		{BlockNumber: 52},
		{BlockNumber: 55},
	}
	p := New(be)
	defer p.Close()

	id, err := p.NewLogFilter(ctx, filter.RawCriteria{})
	require.NoError(t, err)

	be.growTo(55)

	delta, err := p.Changes(ctx, id)
	require.NoError(t, err)
	require.Len(t, delta.Logs, 2)

	q := be.query()
	require.Equal(t, uint64(50), *q.FromBlock)
	require.Equal(t, uint64(55), *q.ToBlock)

	cursor, _ := p.registry.cursorOf(id)
	require.Equal(t, uint64(55), cursor)
}

func TestCursorMonotonic(t *testing.T) {
	ctx := context.Background()
	be := newFakeBackend(10)
	p := New(be)
	defer p.Close()

	id, err := p.NewBlockFilter(ctx)
	require.NoError(t, err)

	last := uint64(0)
	for _, head := range []uint64{12, 12, 15, 20, 20} {
		be.growTo(head)
		_, err := p.Changes(ctx, id)
		require.NoError(t, err)
		cursor, ok := p.registry.cursorOf(id)
		require.True(t, ok)
		require.GreaterOrEqual(t, cursor, last)
		last = cursor
	}
}

func TestPendingTxFilterDelta(t *testing.T) {
	ctx := context.Background()
	be := newFakeBackend(100)
	p := New(be)
	defer p.Close()

	id, err := p.NewPendingTxFilter(ctx)
	require.NoError(t, err)

	be.growTo(102)

	delta, err := p.Changes(ctx, id)
	require.NoError(t, err)
	require.Len(t, delta.Transactions, 2, "one element per fetched block")
	require.Equal(t, be.blocks[101].Transactions, delta.Transactions[0])
	require.Equal(t, be.blocks[102].Transactions, delta.Transactions[1])
}

func TestFetchFailureLeavesCursorUnmoved(t *testing.T) {
	ctx := context.Background()
	be := newFakeBackend(100)
	p := New(be)
	defer p.Close()

	id, err := p.NewBlockFilter(ctx)
	require.NoError(t, err)

	be.growTo(103)
	be.mu.Lock()
	be.blockErr[102] = errors.New("node unavailable")
	be.mu.Unlock()

	_, err = p.Changes(ctx, id)
	require.Error(t, err)

	cursor, ok := p.registry.cursorOf(id)
	require.True(t, ok)
	require.Equal(t, uint64(100), cursor, "no partial advance on fetch failure")

	// A retry re-scans the same range.
	be.mu.Lock()
	delete(be.blockErr, 102)
	be.mu.Unlock()

	delta, err := p.Changes(ctx, id)
	require.NoError(t, err)
	require.Equal(t, []event.Hash{hashFor(101), hashFor(102), hashFor(103)}, delta.BlockHashes)
}

func TestLogsFullReplay(t *testing.T) {
	ctx := context.Background()
	be := newFakeBackend(50)
	be.logs = []event.Log{
		{BlockNumber: 3},
		{BlockNumber: 30},
		{BlockNumber: 50},
	}
	p := New(be)
	defer p.Close()

	id, err := p.NewLogFilter(ctx, filter.RawCriteria{
		FromBlock: "earliest",
		ToBlock:   "latest",
	})
	require.NoError(t, err)

	// Poll first so the cursor moves; the replay must ignore it.
	_, err = p.Changes(ctx, id)
	require.NoError(t, err)

	logs, err := p.Logs(ctx, id)
	require.NoError(t, err)
	require.Len(t, logs, 3)

	q := be.query()
	require.Equal(t, uint64(0), *q.FromBlock)
	require.Equal(t, uint64(50), *q.ToBlock)
}

func TestLogsRejectsNonLogFilters(t *testing.T) {
	ctx := context.Background()
	be := newFakeBackend(10)
	p := New(be)
	defer p.Close()

	id, err := p.NewBlockFilter(ctx)
	require.NoError(t, err)

	_, err = p.Logs(ctx, id)
	require.ErrorIs(t, err, ErrFilterNotFound)
}

func TestNewLogFilterInvalidParamsInstallsNothing(t *testing.T) {
	ctx := context.Background()
	be := newFakeBackend(10)
	p := New(be)
	defer p.Close()

	_, err := p.NewLogFilter(ctx, filter.RawCriteria{FromBlock: "0xzz"})
	require.ErrorIs(t, err, filter.ErrInvalidParams)
	require.Zero(t, p.Count())
	require.False(t, p.scheduler.armed(1))
}

func TestUninstall(t *testing.T) {
	ctx := context.Background()
	be := newFakeBackend(10)
	p := New(be)
	defer p.Close()

	id, err := p.NewBlockFilter(ctx)
	require.NoError(t, err)

	require.True(t, p.Uninstall(id))
	require.False(t, p.Uninstall(id))
	require.False(t, p.scheduler.armed(id))

	_, err = p.Changes(ctx, id)
	require.ErrorIs(t, err, ErrFilterNotFound)
}

func TestUnknownFilterID(t *testing.T) {
	ctx := context.Background()
	be := newFakeBackend(10)
	p := New(be)
	defer p.Close()

	_, err := p.Changes(ctx, 42)
	require.ErrorIs(t, err, ErrFilterNotFound)

	_, err = p.Logs(ctx, 42)
	require.ErrorIs(t, err, ErrFilterNotFound)

	require.False(t, p.Uninstall(42))
}

func TestFilterIDsNeverReused(t *testing.T) {
	ctx := context.Background()
	be := newFakeBackend(10)
	p := New(be)
	defer p.Close()

	a, err := p.NewBlockFilter(ctx)
	require.NoError(t, err)
	require.True(t, p.Uninstall(a))

	b, err := p.NewBlockFilter(ctx)
	require.NoError(t, err)
	require.Greater(t, b, a)
}

func TestFilterExpires(t *testing.T) {
	ctx := context.Background()
	be := newFakeBackend(10)
	clock := clockwork.NewFakeClock()
	p := New(be, WithClock(clock))
	defer p.Close()

	id, err := p.NewBlockFilter(ctx)
	require.NoError(t, err)

	clock.Advance(5*time.Minute + time.Second)

	require.Eventually(t, func() bool {
		_, err := p.Changes(ctx, id)
		return errors.Is(err, ErrFilterNotFound)
	}, time.Second, 5*time.Millisecond)
	require.False(t, p.Uninstall(id))
	require.Zero(t, p.Count())
}

func TestPollResetsExpiry(t *testing.T) {
	ctx := context.Background()
	be := newFakeBackend(10)
	clock := clockwork.NewFakeClock()
	p := New(be, WithClock(clock))
	defer p.Close()

	id, err := p.NewBlockFilter(ctx)
	require.NoError(t, err)

	// Touch just before the window elapses.
	clock.Advance(4 * time.Minute)
	_, err = p.Changes(ctx, id)
	require.NoError(t, err)

	// 8 minutes after creation, but only 4 since the poll: still alive.
	clock.Advance(4 * time.Minute)
	_, err = p.Changes(ctx, id)
	require.NoError(t, err)

	// Now let a full idle window pass with no activity.
	clock.Advance(5*time.Minute + time.Second)
	require.Eventually(t, func() bool {
		_, err := p.Changes(ctx, id)
		return errors.Is(err, ErrFilterNotFound)
	}, time.Second, 5*time.Millisecond)
}

func TestWithExpiryOverride(t *testing.T) {
	ctx := context.Background()
	be := newFakeBackend(10)
	clock := clockwork.NewFakeClock()
	p := New(be, WithClock(clock), WithExpiry(time.Minute))
	defer p.Close()

	id, err := p.NewBlockFilter(ctx)
	require.NoError(t, err)

	clock.Advance(61 * time.Second)
	require.Eventually(t, func() bool {
		_, err := p.Changes(ctx, id)
		return errors.Is(err, ErrFilterNotFound)
	}, time.Second, 5*time.Millisecond)
}
