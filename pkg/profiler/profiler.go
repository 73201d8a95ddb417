// Package profiler drives the periodic stack capture of the monitored
// contexts and flushes the aggregated call graph to an output handler.
package profiler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/rs/zerolog"

	"github.com/maxgio92/sampleprof/pkg/callgraph"
	"github.com/maxgio92/sampleprof/pkg/capture"
	"github.com/maxgio92/sampleprof/pkg/encoding"
	"github.com/maxgio92/sampleprof/pkg/registry"
)

type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Profiler samples the registered contexts from one background goroutine.
// The call graph window is owned by that goroutine; only the registry is
// shared with callers.
type Profiler struct {
	mu         sync.Mutex
	state      State
	terminated bool
	cancel     context.CancelFunc
	done       chan struct{}

	window *callgraph.Window

	ticks   atomic.Uint64
	samples atomic.Uint64
	skipped atomic.Uint64
	flushes atomic.Uint64
	nodes   atomic.Int64

	*Options
}

func NewProfiler(opts ...Option) *Profiler {
	p := &Profiler{
		Options: &Options{
			samplingInterval: DefaultSamplingInterval,
			maxContexts:      DefaultMaxConcurrentContexts,
			logger:           log.Nop(),
		},
		window: callgraph.NewWindow(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.provider == nil {
		p.provider = capture.NewGoroutineProvider()
	}
	if p.registry == nil {
		p.registry = registry.New()
	}
	p.logger = p.logger.With().Str("component", "profiler").Logger()

	return p
}

func (p *Profiler) validate() error {
	if p.samplingInterval <= 0 {
		return ErrInvalidSamplingInterval
	}
	if p.outputHandler == nil {
		return ErrNoOutputHandler
	}
	if p.provider == nil {
		return ErrNoProvider
	}

	return nil
}

// Start registers the context id and starts the sampling loop if needed.
//
// In single-context mode a second Start while running returns false. In
// multi-context mode Start returns false only if id is already registered.
// A configuration error is returned before anything is started.
func (p *Profiler) Start(id capture.ContextID) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.terminated {
		return false, ErrTerminated
	}
	if p.done != nil {
		if !p.multithreading {
			return false, nil
		}
		if p.state != StateRunning {
			return false, nil
		}
		registered := p.registry.Register(id)
		p.logger.Debug().Int64("context", int64(id)).Bool("registered", registered).Msg("registering context")

		return registered, nil
	}

	if err := p.validate(); err != nil {
		return false, err
	}
	p.registry.Register(id)

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	p.state = StateRunning
	go p.loop(ctx, p.done)

	p.logger.Debug().
		Int64("context", int64(id)).
		Dur("sampling_interval", p.samplingInterval).
		Dur("output_interval", p.outputInterval).
		Bool("multithreading", p.multithreading).
		Msg("sampling started")

	return true, nil
}

// Stop ends the observation of id. In single-context mode it also stops the
// sampling loop, waiting for the final flush; the profiler can be started
// again afterwards. In multi-context mode only id is deregistered.
func (p *Profiler) Stop(id capture.ContextID) bool {
	if p.multithreading {
		removed := p.registry.Deregister(id)
		p.logger.Debug().Int64("context", int64(id)).Bool("removed", removed).Msg("deregistering context")

		return removed
	}

	// id stays registered until the loop is joined; shutdown purges it.
	stopped := p.shutdown()
	p.logger.Debug().Int64("context", int64(id)).Bool("stopped", stopped).Msg("stopping context")

	return stopped
}

// Terminate stops the sampling loop and waits for it to flush what is left.
// It must be called by one caller at most once; the profiler cannot be
// started again. It returns false if no loop was running.
func (p *Profiler) Terminate() bool {
	p.mu.Lock()
	p.terminated = true
	p.mu.Unlock()

	return p.shutdown()
}

func (p *Profiler) shutdown() bool {
	p.mu.Lock()
	if p.state != StateRunning {
		p.mu.Unlock()
		return false
	}
	p.state = StateStopping
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	cancel()
	<-done

	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancel = nil
	p.done = nil
	p.state = StateIdle
	p.purge()
	p.logger.Debug().Bool("terminated", p.terminated).Msg("sampling stopped")

	return true
}

// purge drops contexts left registered by a stopped loop so that their time
// is not accounted to the next session.
func (p *Profiler) purge() {
	for _, id := range p.registry.Snapshot(0) {
		p.registry.Deregister(id)
	}
	p.registry.ElapsedSinceLastQuery()
}

// IsRunning reports whether a sampling loop is set, stopping ones included.
func (p *Profiler) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.done != nil
}

func (p *Profiler) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

func (p *Profiler) StartCurrent() (bool, error) {
	return p.Start(capture.CurrentID())
}

func (p *Profiler) StopCurrent() bool {
	return p.Stop(capture.CurrentID())
}

// Profile samples the calling goroutine while fn runs. If a single-context
// session is already running, fn runs without touching it.
func (p *Profiler) Profile(fn func()) error {
	id := capture.CurrentID()
	started, err := p.Start(id)
	if err != nil {
		return err
	}
	if started {
		defer p.Stop(id)
	}

	fn()

	return nil
}

func (p *Profiler) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.samplingInterval)
	defer ticker.Stop()

	var (
		elapsed time.Duration
		ticks   int
	)
	for {
		p.tick()
		elapsed += p.registry.ElapsedSinceLastQuery()
		ticks++

		if p.shouldFlush(elapsed, ticks) {
			p.flush(elapsed)
			elapsed = 0
		}

		select {
		case <-ctx.Done():
			elapsed += p.registry.ElapsedSinceLastQuery()
			p.flush(elapsed)
			return
		case <-ticker.C:
		}
	}
}

func (p *Profiler) tick() {
	p.ticks.Add(1)
	ids := p.registry.Snapshot(p.maxContexts)
	captureFn := p.captureFunc(ids)
	for _, id := range ids {
		sample, ok := captureFn(id)
		if !ok || sample.Len() == 0 {
			p.skipped.Add(1)
			p.logger.Trace().Int64("context", int64(id)).Msg("context not capturable, skipping")
			continue
		}
		p.window.Process(sample)
		p.samples.Add(1)
	}
	p.nodes.Store(int64(p.window.Interner().Len()))
}

// captureFunc captures ids at once when the provider supports it, so that a
// tick costs one capture whatever the number of sampled contexts.
func (p *Profiler) captureFunc(ids []capture.ContextID) func(capture.ContextID) (capture.Sample, bool) {
	batch, ok := p.provider.(capture.BatchProvider)
	if !ok || len(ids) == 0 {
		return p.provider.Capture
	}
	samples := batch.CaptureBatch(ids)

	return func(id capture.ContextID) (capture.Sample, bool) {
		sample, ok := samples[id]
		return sample, ok
	}
}

func (p *Profiler) shouldFlush(elapsed time.Duration, ticks int) bool {
	if p.outputInterval > 0 && elapsed >= p.outputInterval {
		return true
	}

	return p.multithreading && p.flushTickCount > 0 && ticks%p.flushTickCount == 0
}

// flush emits the window and starts a fresh one.
func (p *Profiler) flush(elapsed time.Duration) {
	defer func() {
		p.window.Reset()
		p.nodes.Store(0)
	}()

	if p.window.Empty() && !p.emitEmpty {
		p.logger.Debug().Dur("elapsed", elapsed).Msg("skipping flush of empty window")
		return
	}

	data, err := encoding.Marshal(p.window.Result(elapsed))
	if err != nil {
		p.logger.Warn().Err(err).Msg("failed to encode window")
		return
	}
	if err := p.outputHandler(data); err != nil {
		p.logger.Warn().Err(err).Msg("output handler failed")
	}
	p.flushes.Add(1)

	p.logger.Debug().
		Dur("elapsed", elapsed).
		Int("samples", p.window.Samples()).
		Int("nodes", p.window.Interner().Len()).
		Msg("window flushed")
}
