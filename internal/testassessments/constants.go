package testassessments

import "time"

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	DefaultWaitTimeout   = 2 * time.Minute
	DefaultPollInterval  = 250 * time.Millisecond
	PercentageMultiplier = 100
)
