// Package filter provides log filter criteria: parsing from the JSON-RPC
// wire form, normalization, and resolution into concrete block-range queries.
package filter

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hedeqiang/periscope/event"
)

// ErrInvalidParams is returned when filter creation parameters are malformed.
var ErrInvalidParams = errors.New("filter: invalid filter parameters")

// RawCriteria is a request to create a log filter, shaped like the parameter
// object of eth_newFilter. Address accepts either a single hex string or an
// array of them; each topic slot accepts null (wildcard), a single hash, or
// an array of alternatives.
type RawCriteria struct {
	FromBlock string      `json:"fromBlock,omitempty"`
	ToBlock   string      `json:"toBlock,omitempty"`
	Address   AddressList `json:"address,omitempty"`
	Topics    []TopicSlot `json:"topics,omitempty"`
}

// AddressList unmarshals from a single JSON string or an array of strings.
type AddressList []string

// UnmarshalJSON implements json.Unmarshaler.
func (a *AddressList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*a = AddressList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("%w: address must be a string or array of strings", ErrInvalidParams)
	}
	*a = AddressList(many)
	return nil
}

// TopicSlot unmarshals from null, a single JSON string, or an array of
// strings. An empty slot matches any topic at its position.
type TopicSlot []string

// UnmarshalJSON implements json.Unmarshaler.
func (t *TopicSlot) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = nil
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*t = TopicSlot{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("%w: topic must be null, a string, or an array of strings", ErrInvalidParams)
	}
	*t = TopicSlot(many)
	return nil
}

// Criteria is the normalized, immutable form of a log filter's parameters.
type Criteria struct {
	// From and To bound the filter's block range. Either may be the
	// "latest" sentinel, which is re-resolved at every query.
	From Height
	To   Height

	// Addresses restricts matches to logs emitted by these contracts.
	// nil matches any address.
	Addresses []event.Address

	// Topics holds one slot per topic position. An empty slot is a
	// wildcard; multiple hashes in a slot are OR-matched. Slot-level
	// matching is performed by the log query backend, not locally.
	Topics [][]event.Hash
}

// Normalize validates raw wire parameters and produces Criteria.
// Failures wrap ErrInvalidParams and leave no state behind.
func Normalize(raw RawCriteria) (Criteria, error) {
	var crit Criteria

	from, err := ParseHeight(raw.FromBlock)
	if err != nil {
		return Criteria{}, fmt.Errorf("fromBlock: %w", err)
	}
	to, err := ParseHeight(raw.ToBlock)
	if err != nil {
		return Criteria{}, fmt.Errorf("toBlock: %w", err)
	}
	crit.From, crit.To = from, to

	if len(raw.Address) > 0 {
		crit.Addresses = make([]event.Address, len(raw.Address))
		for i, s := range raw.Address {
			addr, err := event.HexToAddress(s)
			if err != nil {
				return Criteria{}, fmt.Errorf("%w: address %q", ErrInvalidParams, s)
			}
			crit.Addresses[i] = addr
		}
	}

	if len(raw.Topics) > 0 {
		crit.Topics = make([][]event.Hash, len(raw.Topics))
		for i, slot := range raw.Topics {
			if len(slot) == 0 {
				continue // wildcard slot
			}
			hashes := make([]event.Hash, len(slot))
			for j, s := range slot {
				h, err := event.HexToHash(s)
				if err != nil {
					return Criteria{}, fmt.Errorf("%w: topic %q", ErrInvalidParams, s)
				}
				hashes[j] = h
			}
			crit.Topics[i] = hashes
		}
	}

	return crit, nil
}

// Query resolves the criteria against the given chain head into a concrete
// block-range query.
func (c Criteria) Query(head uint64) Query {
	from := c.From.Resolve(head)
	to := c.To.Resolve(head)
	return Query{
		FromBlock: &from,
		ToBlock:   &to,
		Addresses: c.Addresses,
		Topics:    c.Topics,
	}
}
