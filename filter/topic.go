package filter

import (
	"golang.org/x/crypto/sha3"

	"github.com/hedeqiang/periscope/event"
)

// TopicFor computes the topic hash (Keccak-256) of a canonical event
// signature, for use in the first topic slot of log filter criteria.
// Example: TopicFor("Transfer(address,address,uint256)").
func TopicFor(signature string) event.Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	var out event.Hash
	copy(out[:], h.Sum(nil))
	return out
}
