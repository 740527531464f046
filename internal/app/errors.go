package app

import "fmt"

// ErrAlreadySent signals that the cadence's notification has already
// gone out for the current calendar date. Expected steady-state
// behavior, not a failure: callers exit without rescheduling.
var ErrAlreadySent = fmt.Errorf("notification already sent today")
