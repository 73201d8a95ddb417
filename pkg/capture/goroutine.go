package capture

import (
	"bytes"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

const (
	goroutinePrefix  = "goroutine "
	createdByPrefix  = "created by "
	elidedPrefix     = "...additional frames elided..."
	runningElsewhere = "goroutine running on other thread"

	initialDumpSize = 64 << 10
	maxDumpSize     = 64 << 20
)

// GoroutineProvider captures the stack of a goroutine, identified by its
// goroutine ID, by parsing the runtime's all-goroutines stack dump.
type GoroutineProvider struct {
	mu  sync.Mutex
	buf []byte

	*GoroutineProviderOptions
}

type GoroutineProviderOptions struct {
	filter func(Frame) bool
}

type GoroutineProviderOption func(*GoroutineProvider)

// WithFrameFilter keeps only the frames for which keep returns true.
func WithFrameFilter(keep func(Frame) bool) GoroutineProviderOption {
	return func(p *GoroutineProvider) {
		p.filter = keep
	}
}

func NewGoroutineProvider(opts ...GoroutineProviderOption) *GoroutineProvider {
	p := &GoroutineProvider{
		GoroutineProviderOptions: &GoroutineProviderOptions{},
		buf:                      make([]byte, initialDumpSize),
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Capture returns the root-first stack of the goroutine id, or false if the
// goroutine does not exist anymore.
func (p *GoroutineProvider) Capture(id ContextID) (Sample, bool) {
	sample, ok := p.CaptureBatch([]ContextID{id})[id]

	return sample, ok
}

// CaptureBatch returns the stacks of the goroutines ids out of a single
// stack dump, so that one stop of the world serves the whole tick.
func (p *GoroutineProvider) CaptureBatch(ids []ContextID) map[ContextID]Sample {
	samples := make(map[ContextID]Sample, len(ids))
	if len(ids) == 0 {
		return samples
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for id, frames := range parseGoroutines(p.dump(), ids) {
		frames = p.keep(frames)
		if len(frames) == 0 {
			continue
		}
		samples[id] = Sample{Frames: frames}
	}

	return samples
}

func (p *GoroutineProvider) keep(frames []Frame) []Frame {
	if p.filter == nil {
		return frames
	}
	kept := frames[:0]
	for _, f := range frames {
		if p.filter(f) {
			kept = append(kept, f)
		}
	}

	return kept
}

// dump writes the stacks of all goroutines into the provider buffer,
// growing it until the dump is not truncated.
func (p *GoroutineProvider) dump() []byte {
	for {
		n := runtime.Stack(p.buf, true)
		if n < len(p.buf) || len(p.buf) >= maxDumpSize {
			return p.buf[:n]
		}
		p.buf = make([]byte, 2*len(p.buf))
	}
}

// CurrentID returns the ID of the calling goroutine.
func CurrentID() ContextID {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	id, _ := parseHeader(buf[:n])

	return id
}

// parseHeader parses the goroutine ID out of a "goroutine N [state]:" line.
func parseHeader(line []byte) (ContextID, bool) {
	if !bytes.HasPrefix(line, []byte(goroutinePrefix)) {
		return 0, false
	}
	line = line[len(goroutinePrefix):]
	end := bytes.IndexByte(line, ' ')
	if end < 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(string(line[:end]), 10, 64)
	if err != nil {
		return 0, false
	}

	return ContextID(id), true
}

// parseGoroutine finds the block of goroutine id in a runtime.Stack dump and
// returns its frames, root first.
func parseGoroutine(dump []byte, id ContextID) ([]Frame, bool) {
	frames, ok := parseGoroutines(dump, []ContextID{id})[id]

	return frames, ok
}

// parseGoroutines returns the root-first frames of every goroutine of ids
// found in a runtime.Stack dump.
func parseGoroutines(dump []byte, ids []ContextID) map[ContextID][]Frame {
	wanted := make(map[ContextID]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	found := make(map[ContextID][]Frame, len(ids))
	for _, block := range bytes.Split(dump, []byte("\n\n")) {
		block = bytes.TrimLeft(block, "\n")
		header, body, _ := bytes.Cut(block, []byte("\n"))
		gid, ok := parseHeader(header)
		if !ok {
			continue
		}
		if _, ok := wanted[gid]; !ok {
			continue
		}
		found[gid] = parseFrames(string(body))
		if len(found) == len(wanted) {
			break
		}
	}

	return found
}

// parseFrames parses the function/location line pairs of one goroutine
// block. The runtime lists frames leaf first: the result is reversed.
func parseFrames(body string) []Frame {
	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")
	frames := make([]Frame, 0, len(lines)/2)

	for i := 0; i < len(lines); i++ {
		fn := strings.TrimSpace(lines[i])
		if fn == "" || strings.HasPrefix(fn, elidedPrefix) || strings.HasPrefix(fn, runningElsewhere) {
			continue
		}
		if strings.HasPrefix(fn, createdByPrefix) {
			// Spawn site of the goroutine, not a frame of its stack.
			i++
			continue
		}
		frame := Frame{Method: trimArgs(fn)}
		if i+1 < len(lines) && strings.HasPrefix(lines[i+1], "\t") {
			frame.File, frame.Line = parseLocation(lines[i+1])
			i++
		}
		frames = append(frames, frame)
	}

	for i, j := 0, len(frames)-1; i < j; i, j = i+1, j-1 {
		frames[i], frames[j] = frames[j], frames[i]
	}

	return frames
}

// trimArgs removes the argument list from "pkg.(*T).method(0x1, 0x2)".
func trimArgs(fn string) string {
	if !strings.HasSuffix(fn, ")") {
		return fn
	}
	if idx := strings.LastIndex(fn, "("); idx > 0 {
		return fn[:idx]
	}

	return fn
}

// parseLocation parses "\t/path/to/file.go:42 +0x1d".
func parseLocation(line string) (string, int) {
	loc := strings.TrimSpace(line)
	if idx := strings.LastIndex(loc, " +0x"); idx > 0 {
		loc = loc[:idx]
	}
	idx := strings.LastIndex(loc, ":")
	if idx < 0 {
		return loc, 0
	}
	n, err := strconv.Atoi(loc[idx+1:])
	if err != nil {
		return loc, 0
	}

	return loc[:idx], n
}
