package report

import (
	"sort"

	"github.com/maxgio92/sampleprof/pkg/callgraph"
)

// RootName names the synthetic caller of the outermost frames.
const RootName = "<root>"

// EdgeRow is one caller to callee edge of the call graph.
type EdgeRow struct {
	Caller  string  `json:"caller"`
	Callee  string  `json:"callee"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// HotEdges returns the n most traversed edges of result, n <= 0 meaning all.
// Percentages are relative to the number of samples.
func HotEdges(result *callgraph.Result, n int) []EdgeRow {
	if result == nil {
		return []EdgeRow{}
	}

	names := result.Names()
	samples := result.Samples()
	name := func(id int) string {
		if id == callgraph.RootID {
			return RootName
		}
		return names[id]
	}

	rows := make([]EdgeRow, 0, len(result.Edges))
	for edge, count := range result.Edges {
		rows = append(rows, EdgeRow{
			Caller:  name(edge.From),
			Callee:  name(edge.To),
			Count:   count,
			Percent: percent(count, samples),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		if rows[i].Caller != rows[j].Caller {
			return rows[i].Caller < rows[j].Caller
		}
		return rows[i].Callee < rows[j].Callee
	})
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}

	return rows
}
