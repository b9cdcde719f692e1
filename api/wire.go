package api

import (
	"github.com/hedeqiang/periscope/event"
	"github.com/hedeqiang/periscope/internal/hex"
)

// Log is the JSON wire form of an event log, as served by eth_getLogs.
type Log struct {
	Address          string   `json:"address"`
	Topics           []string `json:"topics"`
	Data             string   `json:"data"`
	BlockNumber      string   `json:"blockNumber"`
	BlockHash        string   `json:"blockHash"`
	TransactionHash  string   `json:"transactionHash"`
	TransactionIndex string   `json:"transactionIndex"`
	LogIndex         string   `json:"logIndex"`
	Removed          bool     `json:"removed"`
}

func encodeLogs(logs []event.Log) []Log {
	out := make([]Log, len(logs))
	for i, l := range logs {
		out[i] = encodeLog(l)
	}
	return out
}

func encodeLog(l event.Log) Log {
	topics := make([]string, len(l.Topics))
	for i, t := range l.Topics {
		topics[i] = t.Hex()
	}
	return Log{
		Address:          l.Address.Hex(),
		Topics:           topics,
		Data:             hex.Encode(l.Data),
		BlockNumber:      hex.EncodeUint64(l.BlockNumber),
		BlockHash:        l.BlockHash.Hex(),
		TransactionHash:  l.TxHash.Hex(),
		TransactionIndex: hex.EncodeUint64(uint64(l.TxIndex)),
		LogIndex:         hex.EncodeUint64(uint64(l.LogIndex)),
		Removed:          l.Removed,
	}
}
