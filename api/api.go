// Package api exposes the six JSON-RPC filter methods at the dispatch
// boundary, translating between wire encodings and engine types. Filter ids
// and block heights travel as "0x"-prefixed hex quantities; the outer method
// router is expected to map eth_newFilter and friends onto these calls.
package api

import (
	"context"
	"fmt"

	"github.com/hedeqiang/periscope"
	"github.com/hedeqiang/periscope/filter"
	"github.com/hedeqiang/periscope/internal/hex"
)

// FilterAPI adapts a Periscope engine to the JSON-RPC filter methods.
type FilterAPI struct {
	engine *periscope.Periscope
}

// New creates a FilterAPI over the given engine.
func New(engine *periscope.Periscope) *FilterAPI {
	return &FilterAPI{engine: engine}
}

// NewFilter implements eth_newFilter. It returns the new filter's id in hex.
func (a *FilterAPI) NewFilter(ctx context.Context, raw filter.RawCriteria) (string, error) {
	id, err := a.engine.NewLogFilter(ctx, raw)
	if err != nil {
		return "", err
	}
	return hex.EncodeUint64(id), nil
}

// NewBlockFilter implements eth_newBlockFilter.
func (a *FilterAPI) NewBlockFilter(ctx context.Context) (string, error) {
	id, err := a.engine.NewBlockFilter(ctx)
	if err != nil {
		return "", err
	}
	return hex.EncodeUint64(id), nil
}

// NewPendingTransactionFilter implements eth_newPendingTransactionFilter.
func (a *FilterAPI) NewPendingTransactionFilter(ctx context.Context) (string, error) {
	id, err := a.engine.NewPendingTxFilter(ctx)
	if err != nil {
		return "", err
	}
	return hex.EncodeUint64(id), nil
}

// UninstallFilter implements eth_uninstallFilter. It reports whether the
// filter existed and never fails: an unknown or unparseable id is false.
func (a *FilterAPI) UninstallFilter(ctx context.Context, idHex string) (bool, error) {
	id, err := hex.ParseUint64(idHex)
	if err != nil {
		return false, nil
	}
	return a.engine.Uninstall(id), nil
}

// GetFilterChanges implements eth_getFilterChanges. The result shape depends
// on the filter kind: log objects for log filters, block hashes for block
// filters, per-block transaction hash lists for pending-transaction filters.
func (a *FilterAPI) GetFilterChanges(ctx context.Context, idHex string) (interface{}, error) {
	id, err := a.parseID(idHex)
	if err != nil {
		return nil, err
	}

	delta, err := a.engine.Changes(ctx, id)
	if err != nil {
		return nil, err
	}

	switch {
	case delta.BlockHashes != nil:
		hashes := make([]string, len(delta.BlockHashes))
		for i, h := range delta.BlockHashes {
			hashes[i] = h.Hex()
		}
		return hashes, nil
	case delta.Transactions != nil:
		batches := make([][]string, len(delta.Transactions))
		for i, txs := range delta.Transactions {
			batch := make([]string, len(txs))
			for j, tx := range txs {
				batch[j] = tx.Hex()
			}
			batches[i] = batch
		}
		return batches, nil
	default:
		return encodeLogs(delta.Logs), nil
	}
}

// GetFilterLogs implements eth_getFilterLogs: a full replay of a log
// filter's criteria, independent of poll state.
func (a *FilterAPI) GetFilterLogs(ctx context.Context, idHex string) ([]Log, error) {
	id, err := a.parseID(idHex)
	if err != nil {
		return nil, err
	}

	logs, err := a.engine.Logs(ctx, id)
	if err != nil {
		return nil, err
	}
	return encodeLogs(logs), nil
}

// parseID decodes a hex filter id. An unparseable id cannot name a live
// filter, so it reports ErrFilterNotFound rather than a distinct error.
func (a *FilterAPI) parseID(idHex string) (uint64, error) {
	id, err := hex.ParseUint64(idHex)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", periscope.ErrFilterNotFound, idHex)
	}
	return id, nil
}
