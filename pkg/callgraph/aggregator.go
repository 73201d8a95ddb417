package callgraph

// RootID is the parent ID of the root frame of a sample.
const RootID = -1

// Edge is a parent to child relationship observed within one sample.
type Edge struct {
	From int
	To   int
}

// NodeStats holds the occurrence counts of a node.
type NodeStats struct {
	// Self is the number of samples where the node was the executing frame.
	Self int
	// Total is the number of samples where the node appeared anywhere.
	Total int
}

// Aggregator accumulates node stats and edge counts for one window.
// It has no concurrency control: the caller owns it exclusively.
type Aggregator struct {
	stats map[int]*NodeStats
	edges map[Edge]int
}

func NewAggregator() *Aggregator {
	a := new(Aggregator)
	a.Reset()

	return a
}

func (a *Aggregator) node(id int) *NodeStats {
	s, ok := a.stats[id]
	if !ok {
		s = new(NodeStats)
		a.stats[id] = s
	}

	return s
}

func (a *Aggregator) RecordSelf(id int) {
	a.node(id).Self++
}

func (a *Aggregator) RecordTotal(id int) {
	a.node(id).Total++
}

func (a *Aggregator) RecordEdge(from, to int) {
	a.edges[Edge{From: from, To: to}]++
}

// Stats returns the counts of node id, zero if never recorded.
func (a *Aggregator) Stats(id int) NodeStats {
	if s, ok := a.stats[id]; ok {
		return *s
	}

	return NodeStats{}
}

func (a *Aggregator) EdgeCount(from, to int) int {
	return a.edges[Edge{From: from, To: to}]
}

// Len returns the number of nodes with stats.
func (a *Aggregator) Len() int {
	return len(a.stats)
}

func (a *Aggregator) Empty() bool {
	return len(a.stats) == 0 && len(a.edges) == 0
}

// StatsTable returns a copy of the node stats.
func (a *Aggregator) StatsTable() map[int]NodeStats {
	table := make(map[int]NodeStats, len(a.stats))
	for id, s := range a.stats {
		table[id] = *s
	}

	return table
}

// Edges returns the edge counts. The map is owned by the aggregator until
// the next Reset.
func (a *Aggregator) Edges() map[Edge]int {
	return a.edges
}

// Reset drops all counts. Calling it repeatedly is harmless.
func (a *Aggregator) Reset() {
	a.stats = make(map[int]*NodeStats)
	a.edges = make(map[Edge]int)
}
