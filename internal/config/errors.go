package config

import (
	"errors"
	"fmt"
)

// Error kinds returned by Load, Validate and Watch.
var (
	// ErrInvalidConfig wraps every Validate failure, including bad engine tables.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrLoadConfig wraps file, env and decode failures.
	ErrLoadConfig = errors.New("load config failed")

	// ErrNoConfigFile is returned by Watch when there is no file to watch.
	ErrNoConfigFile = errors.New("no config file to watch")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
