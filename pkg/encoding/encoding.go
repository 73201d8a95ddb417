// Package encoding implements the canonical text encoding of a window
// result: four newline-separated sections divided by blank lines.
//
//	<elapsed-ms>
//
//	<identity>,<node-id>
//
//	<node-id>,<self>,<total>
//
//	<from-id>,<to-id>,<count>
//
// Rows within a section have no defined order.
package encoding

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/maxgio92/sampleprof/pkg/callgraph"
)

const (
	sectionSeparator = "\n\n"
	fieldSeparator   = ","
	sections         = 4
)

// Encode writes r to w in the canonical text encoding.
func Encode(w io.Writer, r *callgraph.Result) error {
	if r == nil {
		return ErrResultNil
	}
	bw := bufio.NewWriter(w)

	bw.WriteString(strconv.FormatInt(r.Elapsed.Milliseconds(), 10))
	bw.WriteString("\n\n")

	for identity, id := range r.Nodes {
		bw.WriteString(identity)
		bw.WriteString(fieldSeparator)
		bw.WriteString(strconv.Itoa(id))
		bw.WriteByte('\n')
	}
	bw.WriteByte('\n')

	for id, s := range r.Stats {
		writeInts(bw, id, s.Self, s.Total)
	}
	bw.WriteByte('\n')

	for e, count := range r.Edges {
		writeInts(bw, e.From, e.To, count)
	}

	return errors.Wrap(bw.Flush(), "failed to write result")
}

func writeInts(w *bufio.Writer, values ...int) {
	for i, v := range values {
		if i > 0 {
			w.WriteString(fieldSeparator)
		}
		w.WriteString(strconv.Itoa(v))
	}
	w.WriteByte('\n')
}

// Marshal returns the canonical encoding of r.
func Marshal(r *callgraph.Result) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, r); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a canonically encoded result.
func Decode(r io.Reader) (*callgraph.Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read result")
	}

	return Unmarshal(data)
}

// ReadFile decodes the result file at path.
func ReadFile(path string) (*callgraph.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open result file")
	}
	defer f.Close()

	result, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}

	return result, nil
}

func Unmarshal(data []byte) (*callgraph.Result, error) {
	parts := strings.SplitN(string(data), sectionSeparator, sections)
	if len(parts) < sections-1 {
		return nil, errors.Wrapf(ErrMalformedResult, "expected %d sections, got %d", sections, len(parts))
	}
	for len(parts) < sections {
		parts = append(parts, "")
	}

	ms, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedResult, "invalid elapsed time %q", parts[0])
	}

	result := &callgraph.Result{
		Elapsed: time.Duration(ms) * time.Millisecond,
		Nodes:   make(map[string]int),
		Stats:   make(map[int]callgraph.NodeStats),
		Edges:   make(map[callgraph.Edge]int),
	}

	for _, line := range lines(parts[1]) {
		// Identities may contain commas: the ID is after the last one.
		idx := strings.LastIndex(line, fieldSeparator)
		if idx < 0 {
			return nil, errors.Wrapf(ErrMalformedResult, "invalid node row %q", line)
		}
		id, err := strconv.Atoi(line[idx+1:])
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedResult, "invalid node id in row %q", line)
		}
		result.Nodes[line[:idx]] = id
	}

	for _, line := range lines(parts[2]) {
		v, err := parseInts(line, 3)
		if err != nil {
			return nil, err
		}
		result.Stats[v[0]] = callgraph.NodeStats{Self: v[1], Total: v[2]}
	}

	for _, line := range lines(parts[3]) {
		v, err := parseInts(line, 3)
		if err != nil {
			return nil, err
		}
		result.Edges[callgraph.Edge{From: v[0], To: v[1]}] = v[2]
	}

	return result, nil
}

func lines(section string) []string {
	var out []string
	for _, l := range strings.Split(section, "\n") {
		if l = strings.TrimRight(l, "\r"); l != "" {
			out = append(out, l)
		}
	}

	return out
}

func parseInts(line string, n int) ([]int, error) {
	fields := strings.Split(line, fieldSeparator)
	if len(fields) != n {
		return nil, errors.Wrapf(ErrMalformedResult, "expected %d fields in row %q", n, line)
	}
	values := make([]int, n)
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedResult, "invalid number in row %q", line)
		}
		values[i] = v
	}

	return values, nil
}
