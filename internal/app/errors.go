package service

import "errors"

// Sentinel kinds for service lifecycle errors.
var (
	ErrNotStarted = errors.New("service not started")
	ErrStopped    = errors.New("service stopped; build a new one to restart")
	ErrLineFailed = errors.New("signal line failed")
)
