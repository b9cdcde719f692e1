package filter

import (
	"fmt"
	"strings"

	"github.com/hedeqiang/periscope/internal/hex"
)

// Height is a block height specifier: either a concrete height or the
// "latest" sentinel. The sentinel means "the chain head at the moment the
// height is used", so it must be resolved against a live head at query time,
// never cached at parse time.
//
// Height is deliberately not a bare integer: height 0 is an ordinary,
// fully valid height and must never double as "absent".
type Height struct {
	n      uint64
	latest bool
}

// At returns a concrete height.
func At(n uint64) Height {
	return Height{n: n}
}

// Latest returns the "latest" sentinel height.
func Latest() Height {
	return Height{latest: true}
}

// IsLatest reports whether h is the "latest" sentinel.
func (h Height) IsLatest() bool {
	return h.latest
}

// Resolve substitutes the given head for the "latest" sentinel.
// Concrete heights resolve to themselves.
func (h Height) Resolve(head uint64) uint64 {
	if h.latest {
		return head
	}
	return h.n
}

// String implements fmt.Stringer.
func (h Height) String() string {
	if h.latest {
		return "latest"
	}
	return hex.EncodeUint64(h.n)
}

// ParseHeight parses a wire-form block height specifier.
//
//	"", "latest", "pending" -> the latest sentinel
//	"earliest"              -> height 0
//	"0x"-prefixed hex       -> the parsed height
//
// Anything else fails with ErrInvalidParams.
func ParseHeight(s string) (Height, error) {
	switch strings.ToLower(s) {
	case "", "latest", "pending":
		return Latest(), nil
	case "earliest":
		return At(0), nil
	}
	n, err := hex.ParseUint64(s)
	if err != nil {
		return Height{}, fmt.Errorf("%w: block height %q", ErrInvalidParams, s)
	}
	return At(n), nil
}
