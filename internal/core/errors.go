package core

import "errors"

var (
	ErrNotAvailable = errors.New("not available")
	ErrNotFound     = errors.New("not found")

	ErrAlreadyRunning  = errors.New("scanner is already running")
	ErrStopped         = errors.New("scanner is stopped")
	ErrInvalidSelector = errors.New("only one of seqno, lt or utime can be given")
)
