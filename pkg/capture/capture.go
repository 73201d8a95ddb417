// Package capture defines the stack capture boundary of the profiler: the
// frame and sample types, the opaque handle of a monitored context and the
// Provider interface that freezes a context and returns its call stack.
package capture

import (
	"fmt"
)

const identitySplitter = ":"

// ContextID is the opaque handle of a monitored execution context.
// For the goroutine provider it is the goroutine ID.
type ContextID int64

// Frame is one entry of a captured call stack.
type Frame struct {
	File   string
	Line   int
	Method string
}

// Identity returns the string two frames are compared by when interning
// them into call graph nodes.
func (f Frame) Identity() string {
	return fmt.Sprintf("%s%s%d%s%s", f.File, identitySplitter, f.Line, identitySplitter, f.Method)
}

// Sample is an ordered call stack captured atomically from one context,
// root frame first and leaf (executing) frame last.
type Sample struct {
	Frames []Frame
}

// NewSample returns a sample from root-first frames.
func NewSample(frames ...Frame) Sample {
	return Sample{Frames: frames}
}

func (s Sample) Len() int {
	return len(s.Frames)
}

// Leaf returns the executing frame. It panics on an empty sample.
func (s Sample) Leaf() Frame {
	return s.Frames[len(s.Frames)-1]
}

// Provider returns the current call stack of a monitored context.
// The second return value is false when the context is no longer live.
// Implementations must not block indefinitely.
type Provider interface {
	Capture(id ContextID) (Sample, bool)
}

// BatchProvider captures several contexts from one view of the process.
// Contexts missing from the returned map are not live anymore.
type BatchProvider interface {
	Provider
	CaptureBatch(ids []ContextID) map[ContextID]Sample
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(id ContextID) (Sample, bool)

func (f ProviderFunc) Capture(id ContextID) (Sample, bool) {
	return f(id)
}
