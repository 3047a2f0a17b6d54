package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// so services can translate them into coded domain errors.
//
//   - ErrNotFound: record does not exist in the backend state
//   - ErrConflict: a unique key (topic title, unit vote) is already taken
//   - ErrInvalidState: record is in the wrong state for the requested write
//   - ErrUnavailable: store or broker temporarily unavailable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
