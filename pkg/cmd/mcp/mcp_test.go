package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/maxgio92/sampleprof/pkg/callgraph"
	"github.com/maxgio92/sampleprof/pkg/capture"
	"github.com/maxgio92/sampleprof/pkg/cmd/options"
	"github.com/maxgio92/sampleprof/pkg/encoding"
)

func writeResult(t *testing.T, frames ...capture.Frame) string {
	t.Helper()

	w := callgraph.NewWindow()
	for i := 0; i < 4; i++ {
		w.Process(capture.NewSample(frames...))
	}
	data, err := encoding.Marshal(w.Result(2 * time.Second))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "profile.txt")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	return path
}

func request(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	return req
}

func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	content, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)

	return content.Text
}

var (
	frameMain    = capture.Frame{File: "main.go", Line: 10, Method: "main"}
	frameCompute = capture.Frame{File: "main.go", Line: 20, Method: "compute"}
)

func TestNewServer(t *testing.T) {
	s := NewOptions(options.NewOptions()).NewServer()

	tools := s.ListTools()
	require.Contains(t, tools, ToolLoadResult)
	require.Contains(t, tools, ToolFlatReport)
	require.Contains(t, tools, ToolHotEdges)
}

func TestLoadResult(t *testing.T) {
	o := NewOptions(options.NewOptions())
	path := writeResult(t, frameMain, frameCompute)

	result, err := o.LoadResult(context.Background(), request(ToolLoadResult, map[string]any{"file_path": path}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	out := text(t, result)
	require.Contains(t, out, "Result loaded: "+path)
	require.Contains(t, out, "Runtime: 2.000 secs")
	require.Contains(t, out, "Samples: 4")
	require.Contains(t, out, "Nodes: 2")
	require.Contains(t, out, "Edges: 2")
}

func TestLoadResult_DefaultFile(t *testing.T) {
	o := NewOptions(options.NewOptions())
	o.resultFile = writeResult(t, frameMain)

	result, err := o.LoadResult(context.Background(), request(ToolLoadResult, nil))
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Contains(t, text(t, result), "Nodes: 1")
}

func TestLoadResult_Missing(t *testing.T) {
	o := NewOptions(options.NewOptions())

	result, err := o.LoadResult(context.Background(), request(ToolLoadResult, map[string]any{
		"file_path": filepath.Join(t.TempDir(), "missing.txt"),
	}))
	require.NoError(t, err)
	require.True(t, result.IsError)
	require.Contains(t, text(t, result), "Failed to load result")
}

func TestFlatReport(t *testing.T) {
	o := NewOptions(options.NewOptions())
	path := writeResult(t, frameMain, frameCompute)

	result, err := o.FlatReport(context.Background(), request(ToolFlatReport, map[string]any{
		"file_path": path,
		"top_n":     float64(5),
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	out := text(t, result)
	require.Contains(t, out, "total samples: 4")
	require.Contains(t, out, "4\t100.00%\t4\t100.00%\t"+frameCompute.Identity())
	require.NotContains(t, out, frameMain.Identity(), "main never executes by itself")
}

func TestHotEdges(t *testing.T) {
	o := NewOptions(options.NewOptions())
	path := writeResult(t, frameMain, frameCompute)

	result, err := o.HotEdges(context.Background(), request(ToolHotEdges, map[string]any{
		"file_path": path,
		"top_n":     float64(1),
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	out := text(t, result)
	require.Contains(t, out, "1. <root> -> "+frameMain.Identity()+": 4 (100.00%)")
	require.NotContains(t, out, "2. ")
}

func TestResultCache(t *testing.T) {
	o := NewOptions(options.NewOptions())
	path := writeResult(t, frameMain)

	_, err := o.result(path, false)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	_, err = o.result(path, false)
	require.NoError(t, err, "served from cache")

	_, err = o.result(path, true)
	require.Error(t, err)
}
