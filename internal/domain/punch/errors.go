package punch

import "errors"

var (
	ErrUpstreamFetch = errors.New("failed to fetch punches from biometric device")
)
