package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrPollerNotRunning is returned when triggering a poll on a stopped poller
	ErrPollerNotRunning = errors.New("feed poller is not running")
)
