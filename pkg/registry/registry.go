// Package registry holds the set of monitored contexts and accounts for the
// wall-clock time spent sampling them across registrations.
package registry

import (
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maxgio92/sampleprof/internal/utils"
	"github.com/maxgio92/sampleprof/pkg/capture"
)

// Registry is safe for concurrent use.
type Registry struct {
	// contexts maps a capture.ContextID to its *atomic.Int64 active-since
	// timestamp, in unix nanoseconds.
	contexts sync.Map
	// carried is the elapsed time of deregistered contexts not yet queried.
	carried atomic.Int64

	*Options
}

type Options struct {
	now func() time.Time
}

type Option func(*Registry)

// WithClock sets the time source, time.Now by default.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

func New(opts ...Option) *Registry {
	r := &Registry{Options: &Options{now: time.Now}}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *Registry) nanos() int64 {
	return r.now().UnixNano()
}

// Register starts observing id. It returns false if id is already registered.
func (r *Registry) Register(id capture.ContextID) bool {
	since := new(atomic.Int64)
	since.Store(r.nanos())
	_, loaded := r.contexts.LoadOrStore(id, since)

	return !loaded
}

// Deregister stops observing id and carries its elapsed time over to the
// next ElapsedSinceLastQuery. It returns whether id was registered.
func (r *Registry) Deregister(id capture.ContextID) bool {
	v, ok := r.contexts.LoadAndDelete(id)
	if !ok {
		return false
	}
	now := r.nanos()
	r.carried.Add(now - v.(*atomic.Int64).Swap(now))

	return true
}

func (r *Registry) Contains(id capture.ContextID) bool {
	_, ok := r.contexts.Load(id)
	return ok
}

func (r *Registry) Len() int {
	return utils.LenSyncMap(&r.contexts)
}

// ElapsedSinceLastQuery returns the sampling time consumed since the previous
// call: the carried-over time of deregistered contexts plus, for every
// registered context, the time since it was registered or last queried.
func (r *Registry) ElapsedSinceLastQuery() time.Duration {
	now := r.nanos()
	elapsed := r.carried.Swap(0)
	r.contexts.Range(func(_, v any) bool {
		elapsed += now - v.(*atomic.Int64).Swap(now)
		return true
	})

	return time.Duration(elapsed)
}

// Snapshot returns the registered contexts. When more than max are
// registered a uniformly random subset of size max is returned; max <= 0
// disables the cap.
func (r *Registry) Snapshot(max int) []capture.ContextID {
	ids := make([]capture.ContextID, 0)
	r.contexts.Range(func(k, _ any) bool {
		ids = append(ids, k.(capture.ContextID))
		return true
	})
	if max <= 0 || len(ids) <= max {
		return ids
	}
	rand.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})

	return ids[:max]
}
