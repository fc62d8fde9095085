package testassessments

import (
	"time"

	"github.com/okian/readiness/internal/domain/engine"
)

// Config holds configuration for the load test.
type Config struct {
	BaseURL        string        // Base URL of the service
	NumAssessments int           // Number of assessments to submit
	NumAthletes    int           // Distinct athletes the assessments are spread over
	Workers        int           // Number of concurrent HTTP workers
	Timeout        time.Duration // HTTP request timeout
	WaitTimeout    time.Duration // How long to wait for reports to appear
	PollInterval   time.Duration // Delay between report polls
	Seed           int64         // Generator seed; zero picks one from the clock
	OutputFile     string        // Output file for submissions
	LogFile        string        // Log file for test output
	Verbose        bool          // Enable verbose logging
}

// Submission is the body of POST /v1/assessments.
type Submission struct {
	SubmissionID string `json:"submission_id"`
	engine.Input
}

// AckResponse is the response to an assessment submission.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds test statistics.
type Stats struct {
	Generated      int
	Submitted      int
	Accepted       int
	Duplicate      int
	Rejected       int
	Failed         int
	ReportsFetched int
	ReportsMissing int
	Violations     int
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}
