// Package chain provides read access to blockchain data over JSON-RPC.
package chain

import (
	"context"
	"errors"

	"github.com/hedeqiang/periscope/event"
	"github.com/hedeqiang/periscope/filter"
)

var (
	// ErrBlockFetch is wrapped into errors from head and block queries.
	ErrBlockFetch = errors.New("chain: block fetch failed")

	// ErrLogQuery is wrapped into errors from log range queries.
	ErrLogQuery = errors.New("chain: log query failed")
)

// BlockSource supplies the current chain head and block contents by height.
// Both calls are pure queries with no side effects.
type BlockSource interface {
	// LatestBlock returns the most recent block number.
	LatestBlock(ctx context.Context) (uint64, error)

	// BlockByNumber returns the block at the given height.
	// Errors wrap ErrBlockFetch.
	BlockByNumber(ctx context.Context, number uint64) (*event.Block, error)
}

// LogSource runs structured log queries over a block range.
type LogSource interface {
	// FilterLogs retrieves event logs matching the given query.
	// Errors wrap ErrLogQuery.
	FilterLogs(ctx context.Context, query filter.Query) ([]event.Log, error)
}

// Backend is the full read surface a filter engine needs.
type Backend interface {
	BlockSource
	LogSource
}
