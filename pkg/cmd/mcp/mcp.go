package mcp

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/maxgio92/sampleprof/internal/settings"
	"github.com/maxgio92/sampleprof/pkg/callgraph"
	"github.com/maxgio92/sampleprof/pkg/cmd/options"
	"github.com/maxgio92/sampleprof/pkg/encoding"
	"github.com/maxgio92/sampleprof/pkg/report"
)

const (
	CmdName = "mcp"

	ToolLoadResult = "load_result"
	ToolFlatReport = "flat_report"
	ToolHotEdges   = "hot_edges"

	defaultHotEdges = 10
)

type Options struct {
	resultFile string

	mu      sync.Mutex
	results map[string]*callgraph.Result

	*options.Options
}

func NewCommand(opts *options.Options) *cobra.Command {
	o := NewOptions(opts)
	cmd := &cobra.Command{
		Use:   CmdName,
		Short: "Serve profiling results to MCP clients over stdio",
		Long: fmt.Sprintf(`
%s serves the tools %s, %s and %s over stdio with the Model Context Protocol.
Every tool reads the result file passed as file_path, or the one set by --output-file.
`, CmdName, ToolLoadResult, ToolFlatReport, ToolHotEdges),
		DisableAutoGenTag: true,
		RunE:              o.Run,
	}

	cmd.Flags().StringVarP(&o.resultFile, "output-file", "f", settings.DefaultOutputFile, "Default result file")

	return cmd
}

func NewOptions(opts *options.Options) *Options {
	return &Options{
		resultFile: settings.DefaultOutputFile,
		results:    make(map[string]*callgraph.Result),
		Options:    opts,
	}
}

func (o *Options) Run(_ *cobra.Command, _ []string) error {
	o.Logger.Info().Str("file", o.resultFile).Msg("serving MCP tools over stdio")
	if err := server.ServeStdio(o.NewServer()); err != nil {
		return errors.Wrap(err, "MCP server failed")
	}

	return nil
}

// NewServer returns an MCP server with the result analysis tools.
func (o *Options) NewServer() *server.MCPServer {
	s := server.NewMCPServer(
		settings.CmdName,
		settings.Version,
		server.WithLogging(),
	)

	s.AddTool(mcp.NewTool(ToolLoadResult,
		mcp.WithDescription("Load a profiling result file and summarize it"),
		mcp.WithString("file_path",
			mcp.Description("Path to the result file (default: the server result file)"),
		),
	), o.LoadResult)

	s.AddTool(mcp.NewTool(ToolFlatReport,
		mcp.WithDescription("Flat report of the frames that were executing when sampled, hottest first"),
		mcp.WithString("file_path",
			mcp.Description("Path to the result file (default: the server result file)"),
		),
		mcp.WithNumber("top_n",
			mcp.Description(fmt.Sprintf("Number of rows to return (default: %d)", report.DefaultTop)),
		),
	), o.FlatReport)

	s.AddTool(mcp.NewTool(ToolHotEdges,
		mcp.WithDescription("Most traversed caller to callee edges of the call graph"),
		mcp.WithString("file_path",
			mcp.Description("Path to the result file (default: the server result file)"),
		),
		mcp.WithNumber("top_n",
			mcp.Description(fmt.Sprintf("Number of edges to return (default: %d)", defaultHotEdges)),
		),
	), o.HotEdges)

	return s
}

// result returns the cached result of path, reading it when reload is set
// or when it is not cached yet.
func (o *Options) result(path string, reload bool) (*callgraph.Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if r, ok := o.results[path]; ok && !reload {
		return r, nil
	}
	r, err := encoding.ReadFile(path)
	if err != nil {
		return nil, err
	}
	o.results[path] = r
	o.Logger.Debug().Str("file", path).Int("nodes", len(r.Nodes)).Msg("result cached")

	return r, nil
}

func (o *Options) LoadResult(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := request.GetString("file_path", o.resultFile)
	r, err := o.result(path, true)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load result: %v", err)), nil
	}

	text := fmt.Sprintf(`Result loaded: %s

Runtime: %.3f secs
Samples: %d
Nodes: %d
Edges: %d
`,
		path,
		r.Elapsed.Seconds(),
		r.Samples(),
		len(r.Nodes),
		len(r.Edges),
	)

	return mcp.NewToolResultText(text), nil
}

func (o *Options) FlatReport(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := request.GetString("file_path", o.resultFile)
	top := int(request.GetFloat("top_n", report.DefaultTop))

	r, err := o.result(path, false)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load result: %v", err)), nil
	}

	var sb strings.Builder
	if err := report.NewFlatReport(report.WithResult(r), report.WithTop(top)).WriteText(&sb); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(sb.String()), nil
}

func (o *Options) HotEdges(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := request.GetString("file_path", o.resultFile)
	top := int(request.GetFloat("top_n", defaultHotEdges))

	r, err := o.result(path, false)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load result: %v", err)), nil
	}

	edges := report.HotEdges(r, top)

	var sb strings.Builder
	if len(edges) == 0 {
		sb.WriteString("No edges found.\n")
	}
	for i, e := range edges {
		sb.WriteString(fmt.Sprintf("%d. %s -> %s: %d (%.2f%%)\n", i+1, e.Caller, e.Callee, e.Count, e.Percent))
	}

	return mcp.NewToolResultText(sb.String()), nil
}
