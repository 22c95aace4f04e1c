package database

import "errors"

// ErrStaleState is returned when a guarded status-transition UPDATE matches
// no rows: the row either does not exist or is no longer in the state the
// transition requires. Callers that validated state beforehand can treat
// this as a lost race.
var ErrStaleState = errors.New("row not in expected state")

// ErrLimitReached is returned when an atomic counter increment is refused
// because the configured cap has been hit.
var ErrLimitReached = errors.New("counter limit reached")
