package testassessments

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/readiness/pkg/logger"
)

const logFilePermission = 0o600

// SetupLogging sends log output to stdout and a file. If logFile is empty, a
// timestamped filename is generated. The returned closer flushes the file.
func SetupLogging(logFile string, verbose bool) (io.Closer, error) {
	if logFile == "" {
		logFile = "load_test_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	level := "info"
	if verbose {
		level = "debug"
	}
	if err := logger.Init(
		logger.WithWriter(io.MultiWriter(os.Stdout, file)),
		logger.WithLevel(level),
	); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return file, nil
}

// ShowHelp prints usage information for the load test tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Readiness Load Test Tool
========================

Submits generated assessments to a running readiness service, waits for the
reports to be stored and checks them.

Usage:
  go run ./cmd/test-assessments [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -assessments int
        Number of assessments to submit (default 10000)
  -athletes int
        Distinct athletes to spread assessments over (default 2000)
  -workers int
        Number of concurrent HTTP workers (default 2x CPU)
  -timeout duration
        HTTP request timeout (default 30s)
  -wait duration
        How long to wait for reports (default 2m)
  -seed int
        Generator seed, 0 for a random one
  -output string
        Write generated submissions to this JSON file
  -log string
        Log file (default load_test_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help
`)
}
