// Package report renders human readable views of a profiling result.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/maxgio92/sampleprof/pkg/callgraph"
)

const DefaultTop = 20

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// FlatRow is the line of one node in a flat report.
type FlatRow struct {
	Self         int     `json:"self"`
	SelfPercent  float64 `json:"self_percent"`
	Total        int     `json:"total"`
	TotalPercent float64 `json:"total_percent"`
	Name         string  `json:"name"`
}

// FlatReport lists the nodes with samples of their own, hottest first.
// Percentages are relative to the total number of samples, i.e. the sum of
// self counts.
type FlatReport struct {
	RuntimeSecs  float64   `json:"runtime_secs"`
	TotalSamples int       `json:"total_samples"`
	Rows         []FlatRow `json:"rows"`

	result *callgraph.Result
	top    int
}

type FlatReportOption func(*FlatReport)

func WithResult(result *callgraph.Result) FlatReportOption {
	return func(r *FlatReport) {
		r.result = result
	}
}

// WithTop limits the report to the n hottest rows. Zero or less means all.
func WithTop(n int) FlatReportOption {
	return func(r *FlatReport) {
		r.top = n
	}
}

func NewFlatReport(opts ...FlatReportOption) *FlatReport {
	report := &FlatReport{top: DefaultTop, Rows: []FlatRow{}}
	for _, opt := range opts {
		opt(report)
	}
	if report.result != nil {
		report.build()
	}

	return report
}

func (r *FlatReport) build() {
	r.RuntimeSecs = float64(r.result.Elapsed.Milliseconds()) / 1000
	r.TotalSamples = r.result.Samples()

	names := r.result.Names()
	rows := make([]FlatRow, 0, len(r.result.Stats))
	for id, stats := range r.result.Stats {
		if stats.Self == 0 {
			continue
		}
		rows = append(rows, FlatRow{
			Self:         stats.Self,
			SelfPercent:  percent(stats.Self, r.TotalSamples),
			Total:        stats.Total,
			TotalPercent: percent(stats.Total, r.TotalSamples),
			Name:         names[id],
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Self != rows[j].Self {
			return rows[i].Self > rows[j].Self
		}
		return rows[i].Name < rows[j].Name
	})
	if r.top > 0 && len(rows) > r.top {
		rows = rows[:r.top]
	}
	r.Rows = rows
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}

	return 100 * float64(n) / float64(total)
}

// WriteText writes the report as tab separated columns.
func (r *FlatReport) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "runtime: %s secs\ntotal samples: %d\n", formatSecs(r.RuntimeSecs), r.TotalSamples); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "self\t%\ttotal\t%\tname"); err != nil {
		return err
	}
	for _, row := range r.Rows {
		if _, err := fmt.Fprintf(w, "%d\t%.2f%%\t%d\t%.2f%%\t%s\n",
			row.Self, row.SelfPercent, row.Total, row.TotalPercent, row.Name); err != nil {
			return err
		}
	}

	return nil
}

// WriteTable writes the report as a styled terminal table.
func (r *FlatReport) WriteTable(w io.Writer) error {
	rows := make([][]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		rows = append(rows, []string{
			strconv.Itoa(row.Self),
			fmt.Sprintf("%.2f%%", row.SelfPercent),
			strconv.Itoa(row.Total),
			fmt.Sprintf("%.2f%%", row.TotalPercent),
			row.Name,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("SELF", "%", "TOTAL", "%", "NAME").
		Rows(rows...)

	if _, err := fmt.Fprintln(w, titleStyle.Render("Flat profile")); err != nil {
		return err
	}
	summary := fmt.Sprintf("runtime: %s secs, total samples: %d", formatSecs(r.RuntimeSecs), r.TotalSamples)
	if _, err := fmt.Fprintln(w, dimStyle.Render(summary)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, t)

	return err
}

// WriteReport writes the report as JSON.
func (r *FlatReport) WriteReport(w io.Writer) error {
	encoder := json.NewEncoder(w)
	return encoder.Encode(r)
}

// formatSecs always keeps a fractional part: 2 seconds are "2.0".
func formatSecs(secs float64) string {
	s := strconv.FormatFloat(secs, 'f', -1, 64)
	if strings.Contains(s, ".") {
		return s
	}

	return s + ".0"
}
