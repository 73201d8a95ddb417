package profiler

// Stats is a point in time view of the sampling loop counters.
type Stats struct {
	State    State
	Contexts int
	Ticks    uint64
	Samples  uint64
	Skipped  uint64
	Flushes  uint64
	// Nodes is the number of distinct frames in the current window.
	Nodes int64
}

func (p *Profiler) Stats() Stats {
	return Stats{
		State:    p.State(),
		Contexts: p.registry.Len(),
		Ticks:    p.ticks.Load(),
		Samples:  p.samples.Load(),
		Skipped:  p.skipped.Load(),
		Flushes:  p.flushes.Load(),
		Nodes:    p.nodes.Load(),
	}
}
