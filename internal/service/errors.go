// Package service holds the gateway's business operations.
package service

import "errors"

// Service errors. Handlers classify with errors.Is.
var (
	// ErrInternal hides datastore failures from clients.
	ErrInternal = errors.New("internal server error")
	// ErrInvalidRequest marks a request the caller must fix.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidJobID is returned for job ids that are not UUIDs.
	ErrInvalidJobID = errors.New("invalid job id")
	// ErrEngineUnavailable is returned when the workflow engine fails.
	ErrEngineUnavailable = errors.New("workflow engine unavailable")
	// ErrJobNotFound is returned when the engine does not know a job.
	ErrJobNotFound = errors.New("job not found")
)
