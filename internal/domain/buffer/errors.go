package buffer

import "errors"

var (
	ErrDateRequired    = errors.New("a date is required to resolve the buffer counter month")
	ErrCounterNotFound = errors.New("buffer counter not found")
)
