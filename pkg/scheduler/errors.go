package scheduler

import "errors"

var (
	ErrJobAlreadyRegistered = errors.New("job already registered")
	ErrJobNotFound          = errors.New("job not found")
	ErrJobRunning           = errors.New("job is already running")
	ErrInvalidJob           = errors.New("job name, schedule and func are required")
	ErrNoJobs               = errors.New("scheduler has no jobs")
	ErrAlreadyRunning       = errors.New("scheduler already running")
)
