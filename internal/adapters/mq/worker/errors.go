package worker

import "errors"

// ErrAbandoned marks a job the worker received but did not process because
// it was stopping.
var ErrAbandoned = errors.New("job abandoned at shutdown")
