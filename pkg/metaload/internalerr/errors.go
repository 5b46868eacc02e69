package internalerr

import "errors"

// Sentinel errors shared across the ingestion packages
var (
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrInputMissing     = errors.New("input file missing")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrBatchFailed      = errors.New("batch failed")
)
