package domain

import "errors"

// Sentinel errors shared by the scheduler, session and store.
// Use errors.Is to check: errors.Is(err, domain.ErrNotFound)
var (
	ErrInvalidArgument  = errors.New("flashdeck: invalid argument")
	ErrNotFound         = errors.New("flashdeck: not found")
	ErrNoCardsDue       = errors.New("flashdeck: no cards due")
	ErrStorageExhausted = errors.New("flashdeck: storage exhausted")
)
