// Package hex provides utilities for encoding and decoding hexadecimal strings
// with the "0x" prefix commonly used in Ethereum.
package hex

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Encode returns the hexadecimal encoding of src with "0x" prefix.
func Encode(src []byte) string {
	return "0x" + hex.EncodeToString(src)
}

// Decode decodes a hex string (with or without "0x" prefix) into bytes.
func Decode(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	if len(s)%2 != 0 {
		s = "0" + s
	}
	return hex.DecodeString(s)
}

// MustDecode is like Decode but panics on error.
func MustDecode(s string) []byte {
	b, err := Decode(s)
	if err != nil {
		panic(fmt.Sprintf("hex: invalid hex string %q: %v", s, err))
	}
	return b
}

// EncodeUint64 encodes a uint64 as a "0x"-prefixed hex string.
func EncodeUint64(n uint64) string {
	return fmt.Sprintf("0x%x", n)
}

// ParseUint64 parses a "0x"-prefixed hex string as a uint64.
// The prefix is required; an empty or unprefixed string is an error.
func ParseUint64(s string) (uint64, error) {
	digits, ok := trimPrefix(s)
	if !ok || digits == "" {
		return 0, fmt.Errorf("hex: not a 0x-prefixed quantity: %q", s)
	}
	n, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("hex: invalid quantity %q: %w", s, err)
	}
	return n, nil
}

func trimPrefix(s string) (string, bool) {
	switch {
	case strings.HasPrefix(s, "0x"):
		return s[2:], true
	case strings.HasPrefix(s, "0X"):
		return s[2:], true
	default:
		return s, false
	}
}
