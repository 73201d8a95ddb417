package report_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/maxgio92/sampleprof/pkg/callgraph"
	"github.com/maxgio92/sampleprof/pkg/report"
)

func twoNodes() *callgraph.Result {
	return &callgraph.Result{
		Elapsed: 2 * time.Second,
		Nodes:   map[string]int{"a": 0, "b": 1},
		Stats: map[int]callgraph.NodeStats{
			0: {Self: 1, Total: 5},
			1: {Self: 4, Total: 4},
		},
		Edges: map[callgraph.Edge]int{
			{From: callgraph.RootID, To: 0}: 5,
			{From: 0, To: 1}:                4,
		},
	}
}

func TestNewFlatReport(t *testing.T) {
	r := report.NewFlatReport(report.WithResult(twoNodes()))

	require.Equal(t, 5, r.TotalSamples)
	require.Equal(t, 2.0, r.RuntimeSecs)
	require.Equal(t, []report.FlatRow{
		{Self: 4, SelfPercent: 80, Total: 4, TotalPercent: 80, Name: "b"},
		{Self: 1, SelfPercent: 20, Total: 5, TotalPercent: 100, Name: "a"},
	}, r.Rows)
}

func TestNewFlatReport_SkipsNodesWithoutSelf(t *testing.T) {
	result := twoNodes()
	result.Stats[0] = callgraph.NodeStats{Self: 0, Total: 4}

	r := report.NewFlatReport(report.WithResult(result))
	require.Equal(t, 4, r.TotalSamples)
	require.Len(t, r.Rows, 1)
	require.Equal(t, "b", r.Rows[0].Name)
}

func TestNewFlatReport_Top(t *testing.T) {
	r := report.NewFlatReport(report.WithResult(twoNodes()), report.WithTop(1))
	require.Len(t, r.Rows, 1)
	require.Equal(t, "b", r.Rows[0].Name)

	r = report.NewFlatReport(report.WithResult(twoNodes()), report.WithTop(0))
	require.Len(t, r.Rows, 2)
}

func TestNewFlatReport_Empty(t *testing.T) {
	r := report.NewFlatReport(report.WithResult(callgraph.NewWindow().Result(0)))
	require.Zero(t, r.TotalSamples)
	require.Empty(t, r.Rows)

	r = report.NewFlatReport()
	require.Empty(t, r.Rows)
}

func TestWriteText(t *testing.T) {
	const file = "test/sampling_prof_test.rb"
	result := &callgraph.Result{
		Elapsed: 1567 * time.Millisecond,
		Nodes: map[string]int{
			file + ":73:fib": 0,
			file + ":69:fib": 1,
			file + ":68:fib": 2,
			file + ":73:-":   3,
			file + ":68:==":  4,
		},
		Stats: map[int]callgraph.NodeStats{
			0: {Self: 6, Total: 15},
			1: {Self: 3, Total: 3},
			2: {Self: 3, Total: 4},
			3: {Self: 2, Total: 2},
			4: {Self: 1, Total: 1},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, report.NewFlatReport(report.WithResult(result)).WriteText(&buf))

	expected := `runtime: 1.567 secs
total samples: 15
self	%	total	%	name
6	40.00%	15	100.00%	test/sampling_prof_test.rb:73:fib
3	20.00%	4	26.67%	test/sampling_prof_test.rb:68:fib
3	20.00%	3	20.00%	test/sampling_prof_test.rb:69:fib
2	13.33%	2	13.33%	test/sampling_prof_test.rb:73:-
1	6.67%	1	6.67%	test/sampling_prof_test.rb:68:==
`
	require.Equal(t, expected, buf.String())
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.NewFlatReport(report.WithResult(twoNodes())).WriteTable(&buf))

	output := buf.String()
	require.Contains(t, output, "runtime: 2.0 secs, total samples: 5")
	require.Contains(t, output, "80.00%")
	require.Contains(t, output, "NAME")
	require.Less(t, strings.Index(output, " b "), strings.Index(output, " a "))
}

var errClosed = errors.New("closed")

// failingWriter fails every write after the first ok ones.
type failingWriter struct {
	ok     int
	writes int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	w.writes++
	if w.writes > w.ok {
		return 0, errClosed
	}
	return len(p), nil
}

func TestWriteTable_WriteError(t *testing.T) {
	r := report.NewFlatReport(report.WithResult(twoNodes()))
	for ok := 0; ok < 3; ok++ {
		w := &failingWriter{ok: ok}
		require.ErrorIs(t, r.WriteTable(w), errClosed)
		require.Equal(t, ok+1, w.writes, "writing stops at the first error")
	}
}

func TestWriteReportJSONOutput(t *testing.T) {
	r := report.NewFlatReport(report.WithResult(twoNodes()))

	var buf bytes.Buffer
	require.NoError(t, r.WriteReport(&buf))

	var parsed report.FlatReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	require.Equal(t, r.Rows, parsed.Rows)
	require.Equal(t, r.TotalSamples, parsed.TotalSamples)
	require.Contains(t, buf.String(), "self_percent")
	require.Contains(t, buf.String(), "runtime_secs")
}

func TestHotEdges(t *testing.T) {
	rows := report.HotEdges(twoNodes(), 0)
	require.Equal(t, []report.EdgeRow{
		{Caller: report.RootName, Callee: "a", Count: 5, Percent: 100},
		{Caller: "a", Callee: "b", Count: 4, Percent: 80},
	}, rows)

	require.Len(t, report.HotEdges(twoNodes(), 1), 1)
	require.Empty(t, report.HotEdges(nil, 10))
}
