package profiler

import (
	"time"

	log "github.com/rs/zerolog"

	"github.com/maxgio92/sampleprof/pkg/capture"
	"github.com/maxgio92/sampleprof/pkg/registry"
)

const (
	DefaultSamplingInterval      = 100 * time.Millisecond
	DefaultMaxConcurrentContexts = 4
)

// OutputHandler receives one encoded result per flushed window. It is never
// called concurrently with itself for the same profiler.
type OutputHandler func(data []byte) error

type Options struct {
	samplingInterval time.Duration
	// outputInterval is the sampling time after which a window is flushed.
	// Zero means windows are flushed only when the profiler stops.
	outputInterval time.Duration
	multithreading bool
	maxContexts    int
	// flushTickCount flushes every n ticks in multithreading mode.
	flushTickCount int
	emitEmpty      bool

	outputHandler OutputHandler
	provider      capture.Provider
	registry      *registry.Registry

	logger log.Logger
}

type Option func(*Profiler)

func WithSamplingInterval(interval time.Duration) Option {
	return func(p *Profiler) {
		p.samplingInterval = interval
	}
}

func WithOutputInterval(interval time.Duration) Option {
	return func(p *Profiler) {
		p.outputInterval = interval
	}
}

// WithMultithreading switches between single-context mode, where Stop ends
// the profiling, and multi-context mode, where any number of contexts start
// and stop while the sampling loop keeps running until Terminate.
func WithMultithreading(multithreading bool) Option {
	return func(p *Profiler) {
		p.multithreading = multithreading
	}
}

// WithMaxConcurrentContexts caps the contexts sampled per tick. Above the
// cap a random subset is sampled.
func WithMaxConcurrentContexts(max int) Option {
	return func(p *Profiler) {
		p.maxContexts = max
	}
}

func WithFlushTickCount(ticks int) Option {
	return func(p *Profiler) {
		p.flushTickCount = ticks
	}
}

// WithEmitEmpty makes windows without samples reach the output handler.
func WithEmitEmpty(emit bool) Option {
	return func(p *Profiler) {
		p.emitEmpty = emit
	}
}

func WithOutputHandler(handler OutputHandler) Option {
	return func(p *Profiler) {
		p.outputHandler = handler
	}
}

func WithProvider(provider capture.Provider) Option {
	return func(p *Profiler) {
		p.provider = provider
	}
}

func WithRegistry(r *registry.Registry) Option {
	return func(p *Profiler) {
		p.registry = r
	}
}

func WithLogger(logger log.Logger) Option {
	return func(p *Profiler) {
		p.logger = logger
	}
}
