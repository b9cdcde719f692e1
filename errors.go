package periscope

import "errors"

var (
	// ErrFilterNotFound is returned when operating on an unknown or
	// expired filter id.
	ErrFilterNotFound = errors.New("periscope: filter not found")
)
