package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by repositories when a row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTransferInProgress is returned when another run already holds the user's transfer lock.
	ErrTransferInProgress = errors.New("transfer already in progress")
)

// BatchError means the orchestrator could not even load the unorganized staging set.
// Nothing was marked organized.
type BatchError struct {
	UserID string
	Err    error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("failed to load unorganized bookmarks for user %s: %v", e.UserID, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// ValidationError carries every rule violation of a rejected candidate.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0]
	}
	return fmt.Sprintf("%d validation errors: %v", len(e.Errors), e.Errors)
}
