package apperr

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrCorruptBaseline   = errors.New("corrupt baseline")
	ErrNothingToMonitor  = errors.New("nothing to monitor")
	ErrIntrusionDetected = errors.New("intrusion detected")
)
