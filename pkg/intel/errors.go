package intel

import "errors"

// Error taxonomy shared by both front ends. Store faults keep their
// own sentinel (store.ErrUnavailable); anything not matching one of
// these is treated as internal.
var (
	// ErrNotFound means the primary record of an operation is absent.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument means the caller supplied a bad enum value,
	// such as an unknown entity kind.
	ErrInvalidArgument = errors.New("invalid argument")
)
