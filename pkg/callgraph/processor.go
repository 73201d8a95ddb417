package callgraph

import (
	"github.com/maxgio92/sampleprof/pkg/capture"
)

// Processor folds samples into an Interner and an Aggregator.
//
// Within one sample an edge and a node total are counted at most once, so
// recursive frames weigh by sampling frequency and not by recursion depth.
type Processor struct {
	interner   *Interner
	aggregator *Aggregator

	// Scratch sets, cleared after every sample.
	seenEdges map[Edge]struct{}
	seenNodes map[int]struct{}
}

func NewProcessor(interner *Interner, aggregator *Aggregator) *Processor {
	return &Processor{
		interner:   interner,
		aggregator: aggregator,
		seenEdges:  make(map[Edge]struct{}),
		seenNodes:  make(map[int]struct{}),
	}
}

// Process records one root-first sample. An empty sample is a no-op.
func (p *Processor) Process(s capture.Sample) {
	if s.Len() == 0 {
		return
	}
	defer func() {
		clear(p.seenEdges)
		clear(p.seenNodes)
	}()

	parent := RootID
	for _, frame := range s.Frames {
		id := p.interner.ID(frame.Identity())

		edge := Edge{From: parent, To: id}
		if _, ok := p.seenEdges[edge]; !ok {
			p.seenEdges[edge] = struct{}{}
			p.aggregator.RecordEdge(parent, id)
		}
		if _, ok := p.seenNodes[id]; !ok {
			p.seenNodes[id] = struct{}{}
			p.aggregator.RecordTotal(id)
		}

		parent = id
	}

	// The last ID walked is the leaf.
	p.aggregator.RecordSelf(parent)
}
