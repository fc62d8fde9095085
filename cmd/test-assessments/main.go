package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/readiness/internal/testassessments"
)

// Default configuration constants.
const (
	defaultAssessments = 10000
	defaultAthletes    = 2000
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		assessments = flag.Int("assessments", defaultAssessments, "Number of assessments to submit")
		athletes    = flag.Int("athletes", defaultAthletes, "Distinct athletes to spread assessments over")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent HTTP workers")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		wait        = flag.Duration("wait", testassessments.DefaultWaitTimeout, "How long to wait for reports")
		seed        = flag.Int64("seed", 0, "Generator seed, 0 for a random one")
		outputFile  = flag.String("output", "", "Write generated submissions to this JSON file")
		logFile     = flag.String("log", "", "Log file (default load_test_TIMESTAMP.log)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testassessments.ShowHelp()
		return 0
	}

	closer, err := testassessments.SetupLogging(*logFile, *verbose)
	if err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return 1
	}
	defer closer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := &testassessments.Config{
		BaseURL:        *baseURL,
		NumAssessments: *assessments,
		NumAthletes:    *athletes,
		Workers:        *workers,
		Timeout:        *timeout,
		WaitTimeout:    *wait,
		Seed:           *seed,
		OutputFile:     *outputFile,
		LogFile:        *logFile,
		Verbose:        *verbose,
	}

	if _, err := testassessments.Run(ctx, cfg); err != nil {
		_, _ = os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		return 1
	}
	return 0
}
