package repository

import (
	"errors"
	"fmt"
)

// Sentinel kinds for store errors.
var (
	ErrNotFound      = errors.New("athlete has no reports")
	ErrInvalidLimit  = errors.New("invalid history limit")
	ErrInvalidRecord = errors.New("invalid record")
	ErrDuplicateID   = errors.New("record id already stored")
)

func invalidRecord(rule string) error {
	return fmt.Errorf("%w: %s", ErrInvalidRecord, rule)
}
