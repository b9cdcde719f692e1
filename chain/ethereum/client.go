// Package ethereum implements chain.Backend for Ethereum-compatible nodes.
package ethereum

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hedeqiang/periscope/chain"
	"github.com/hedeqiang/periscope/event"
	"github.com/hedeqiang/periscope/filter"
	"github.com/hedeqiang/periscope/internal/hex"
	"github.com/hedeqiang/periscope/transport"
)

// Client reads chain data from an Ethereum-compatible JSON-RPC endpoint.
// It works against any EVM chain (Ethereum, BSC, Polygon, Arbitrum, ...).
type Client struct {
	transport transport.Transport
}

// New creates a client for the given RPC endpoint. The transport is chosen
// from the URL scheme: ws:// and wss:// use WebSocket, everything else HTTP.
func New(rpcURL string) *Client {
	var t transport.Transport
	if strings.HasPrefix(rpcURL, "ws://") || strings.HasPrefix(rpcURL, "wss://") {
		t = transport.NewWebSocket(rpcURL)
	} else {
		t = transport.NewHTTP(rpcURL)
	}
	return &Client{transport: t}
}

// NewWithTransport creates a client with a custom transport, e.g. one
// assembled with middleware.
func NewWithTransport(t transport.Transport) *Client {
	return &Client{transport: t}
}

// LatestBlock returns the current chain head height via eth_blockNumber.
func (c *Client) LatestBlock(ctx context.Context) (uint64, error) {
	result, err := c.transport.Call(ctx, "eth_blockNumber")
	if err != nil {
		return 0, fmt.Errorf("%w: eth_blockNumber: %w", chain.ErrBlockFetch, err)
	}

	var raw string
	if err := json.Unmarshal(result, &raw); err != nil {
		return 0, fmt.Errorf("%w: parse block number: %w", chain.ErrBlockFetch, err)
	}

	n, err := hex.ParseUint64(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", chain.ErrBlockFetch, err)
	}
	return n, nil
}

// BlockByNumber returns the block at the given height via
// eth_getBlockByNumber, with transactions reported as hashes only.
func (c *Client) BlockByNumber(ctx context.Context, number uint64) (*event.Block, error) {
	result, err := c.transport.Call(ctx, "eth_getBlockByNumber", hex.EncodeUint64(number), false)
	if err != nil {
		return nil, fmt.Errorf("%w: eth_getBlockByNumber(%d): %w", chain.ErrBlockFetch, number, err)
	}

	if len(result) == 0 || string(result) == "null" {
		return nil, fmt.Errorf("%w: block %d not available", chain.ErrBlockFetch, number)
	}

	var rb rpcBlock
	if err := json.Unmarshal(result, &rb); err != nil {
		return nil, fmt.Errorf("%w: parse block %d: %w", chain.ErrBlockFetch, number, err)
	}

	b, err := rb.toBlock()
	if err != nil {
		return nil, fmt.Errorf("%w: convert block %d: %w", chain.ErrBlockFetch, number, err)
	}
	return b, nil
}

// FilterLogs retrieves logs matching the query via eth_getLogs.
func (c *Client) FilterLogs(ctx context.Context, query filter.Query) ([]event.Log, error) {
	params := buildFilterParams(query)

	result, err := c.transport.Call(ctx, "eth_getLogs", params)
	if err != nil {
		return nil, fmt.Errorf("%w: eth_getLogs: %w", chain.ErrLogQuery, err)
	}

	var rawLogs []rpcLog
	if err := json.Unmarshal(result, &rawLogs); err != nil {
		return nil, fmt.Errorf("%w: parse logs: %w", chain.ErrLogQuery, err)
	}

	logs := make([]event.Log, len(rawLogs))
	for i, rl := range rawLogs {
		l, err := rl.toLog()
		if err != nil {
			return nil, fmt.Errorf("%w: convert log %d: %w", chain.ErrLogQuery, i, err)
		}
		logs[i] = l
	}

	return logs, nil
}

// Close releases the underlying transport.
func (c *Client) Close() error {
	return c.transport.Close()
}

// buildFilterParams converts a Query into the JSON-RPC filter object.
func buildFilterParams(query filter.Query) map[string]interface{} {
	params := make(map[string]interface{})

	if query.FromBlock != nil {
		params["fromBlock"] = hex.EncodeUint64(*query.FromBlock)
	}
	if query.ToBlock != nil {
		params["toBlock"] = hex.EncodeUint64(*query.ToBlock)
	}

	if len(query.Addresses) > 0 {
		addrs := make([]string, len(query.Addresses))
		for i, a := range query.Addresses {
			addrs[i] = a.Hex()
		}
		if len(addrs) == 1 {
			params["address"] = addrs[0]
		} else {
			params["address"] = addrs
		}
	}

	if len(query.Topics) > 0 {
		topics := make([]interface{}, len(query.Topics))
		for i, ts := range query.Topics {
			if len(ts) == 0 {
				topics[i] = nil
			} else if len(ts) == 1 {
				topics[i] = ts[0].Hex()
			} else {
				hashes := make([]string, len(ts))
				for j, h := range ts {
					hashes[j] = h.Hex()
				}
				topics[i] = hashes
			}
		}
		params["topics"] = topics
	}

	return params
}

// rpcBlock is the JSON-RPC representation of a block with transaction hashes.
type rpcBlock struct {
	Number       string   `json:"number"`
	Hash         string   `json:"hash"`
	Transactions []string `json:"transactions"`
}

func (rb *rpcBlock) toBlock() (*event.Block, error) {
	var b event.Block

	if rb.Number != "" {
		n, err := hex.ParseUint64(rb.Number)
		if err != nil {
			return nil, fmt.Errorf("parse number: %w", err)
		}
		b.Number = n
	}

	h, err := event.HexToHash(rb.Hash)
	if err != nil {
		return nil, fmt.Errorf("parse hash: %w", err)
	}
	b.Hash = h

	b.Transactions = make([]event.Hash, len(rb.Transactions))
	for i, tx := range rb.Transactions {
		th, err := event.HexToHash(tx)
		if err != nil {
			return nil, fmt.Errorf("parse transaction %d: %w", i, err)
		}
		b.Transactions[i] = th
	}

	return &b, nil
}

// rpcLog is the JSON-RPC representation of an event log.
type rpcLog struct {
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	BlockNumber string   `json:"blockNumber"`
	BlockHash   string   `json:"blockHash"`
	TxHash      string   `json:"transactionHash"`
	TxIndex     string   `json:"transactionIndex"`
	LogIndex    string   `json:"logIndex"`
	Removed     bool     `json:"removed"`
}

func (rl *rpcLog) toLog() (event.Log, error) {
	var log event.Log
	log.Removed = rl.Removed

	addr, err := event.HexToAddress(rl.Address)
	if err != nil {
		return log, fmt.Errorf("parse address: %w", err)
	}
	log.Address = addr

	log.Topics = make([]event.Hash, len(rl.Topics))
	for i, t := range rl.Topics {
		h, err := event.HexToHash(t)
		if err != nil {
			return log, fmt.Errorf("parse topic %d: %w", i, err)
		}
		log.Topics[i] = h
	}

	if rl.Data != "" && rl.Data != "0x" {
		log.Data, err = hex.Decode(rl.Data)
		if err != nil {
			return log, fmt.Errorf("parse data: %w", err)
		}
	}

	if rl.BlockNumber != "" {
		log.BlockNumber, err = hex.ParseUint64(rl.BlockNumber)
		if err != nil {
			return log, fmt.Errorf("parse blockNumber: %w", err)
		}
	}

	if rl.BlockHash != "" {
		log.BlockHash, err = event.HexToHash(rl.BlockHash)
		if err != nil {
			return log, fmt.Errorf("parse blockHash: %w", err)
		}
	}

	if rl.TxHash != "" {
		log.TxHash, err = event.HexToHash(rl.TxHash)
		if err != nil {
			return log, fmt.Errorf("parse txHash: %w", err)
		}
	}

	if rl.TxIndex != "" {
		idx, err := hex.ParseUint64(rl.TxIndex)
		if err != nil {
			return log, fmt.Errorf("parse txIndex: %w", err)
		}
		log.TxIndex = uint(idx)
	}

	if rl.LogIndex != "" {
		idx, err := hex.ParseUint64(rl.LogIndex)
		if err != nil {
			return log, fmt.Errorf("parse logIndex: %w", err)
		}
		log.LogIndex = uint(idx)
	}

	return log, nil
}
