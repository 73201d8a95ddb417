package callgraph

import (
	"time"

	"github.com/maxgio92/sampleprof/pkg/capture"
)

// Result is the aggregate of one window.
type Result struct {
	Elapsed time.Duration
	Nodes   map[string]int
	Stats   map[int]NodeStats
	Edges   map[Edge]int
}

// Empty reports whether no sample was recorded.
func (r *Result) Empty() bool {
	return len(r.Nodes) == 0 && len(r.Stats) == 0 && len(r.Edges) == 0
}

// Samples returns the number of samples, i.e. the sum of self counts.
func (r *Result) Samples() int {
	var n int
	for _, s := range r.Stats {
		n += s.Self
	}

	return n
}

// Names returns the ID to identity table.
func (r *Result) Names() map[int]string {
	names := make(map[int]string, len(r.Nodes))
	for identity, id := range r.Nodes {
		names[id] = identity
	}

	return names
}

// Window is the aggregation state between two flushes.
type Window struct {
	interner   *Interner
	aggregator *Aggregator
	processor  *Processor
	samples    int
}

func NewWindow() *Window {
	w := &Window{
		interner:   NewInterner(),
		aggregator: NewAggregator(),
	}
	w.processor = NewProcessor(w.interner, w.aggregator)

	return w
}

func (w *Window) Process(s capture.Sample) {
	if s.Len() == 0 {
		return
	}
	w.processor.Process(s)
	w.samples++
}

// Samples returns the number of samples processed in the window.
func (w *Window) Samples() int {
	return w.samples
}

func (w *Window) Empty() bool {
	return w.samples == 0
}

func (w *Window) Interner() *Interner {
	return w.interner
}

func (w *Window) Aggregator() *Aggregator {
	return w.aggregator
}

// Result returns the window aggregate. The returned maps stay valid after
// Reset, which allocates fresh ones.
func (w *Window) Result(elapsed time.Duration) *Result {
	return &Result{
		Elapsed: elapsed,
		Nodes:   w.interner.Nodes(),
		Stats:   w.aggregator.StatsTable(),
		Edges:   w.aggregator.Edges(),
	}
}

// Reset starts a fresh window: node IDs restart at 0 and all counts drop.
func (w *Window) Reset() {
	w.interner.Reset()
	w.aggregator.Reset()
	w.samples = 0
}
