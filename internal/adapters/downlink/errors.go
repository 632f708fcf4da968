package downlink

import "errors"

// Sentinel kinds for downlink errors.
var (
	ErrConnect        = errors.New("downlink connect failed")
	ErrPublishTimeout = errors.New("downlink publish timed out")
	ErrNoBrokers      = errors.New("no brokers configured")
)
