package profiler

import (
	"github.com/pkg/errors"
)

var (
	ErrNoOutputHandler         = errors.New("no output handler specified: set one up before starting the profiler")
	ErrInvalidSamplingInterval = errors.New("sampling interval must be greater than zero")
	ErrNoProvider              = errors.New("no stack capture provider specified")
	ErrTerminated              = errors.New("profiler has been terminated")
)
