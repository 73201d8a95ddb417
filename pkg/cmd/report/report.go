package report

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/maxgio92/sampleprof/internal/settings"
	"github.com/maxgio92/sampleprof/pkg/cmd/options"
	"github.com/maxgio92/sampleprof/pkg/encoding"
	"github.com/maxgio92/sampleprof/pkg/report"
)

const (
	CmdName = "report"

	FormatText  = "text"
	FormatTable = "table"
	FormatJSON  = "json"
)

var ErrUnknownFormat = errors.New("unknown report format")

type Options struct {
	resultFile string
	top        int
	format     string

	*options.Options
}

func NewCommand(opts *options.Options) *cobra.Command {
	o := new(Options)
	o.Options = opts
	cmd := &cobra.Command{
		Use:   CmdName,
		Short: "Print the flat report of a profiling result",
		Long: fmt.Sprintf(`
%s prints the frames of a result written by %s run that were executing when sampled,
hottest first, with their self and total sample counts.
`, CmdName, settings.CmdName),
		DisableAutoGenTag: true,
		RunE:              o.Run,
	}

	cmd.Flags().StringVarP(&o.resultFile, "output-file", "f", settings.DefaultOutputFile, "Result file to report on")
	cmd.Flags().IntVarP(&o.top, "top", "n", report.DefaultTop, "Number of rows to print (0 prints all)")
	cmd.Flags().StringVar(&o.format, "format", FormatText, fmt.Sprintf("Output format (%s, %s, %s)", FormatText, FormatTable, FormatJSON))

	return cmd
}

func (o *Options) Run(cmd *cobra.Command, _ []string) error {
	result, err := encoding.ReadFile(o.resultFile)
	if err != nil {
		return err
	}
	o.Logger.Debug().
		Str("file", o.resultFile).
		Int("nodes", len(result.Nodes)).
		Int("edges", len(result.Edges)).
		Msg("result loaded")

	flat := report.NewFlatReport(report.WithResult(result), report.WithTop(o.top))

	return o.write(cmd.OutOrStdout(), flat)
}

func (o *Options) write(w io.Writer, flat *report.FlatReport) error {
	switch o.format {
	case FormatText:
		return flat.WriteText(w)
	case FormatTable:
		return flat.WriteTable(w)
	case FormatJSON:
		return flat.WriteReport(w)
	default:
		return errors.Wrapf(ErrUnknownFormat, "%q", o.format)
	}
}
