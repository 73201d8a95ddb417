// Package workload provides CPU bound functions to profile.
package workload

import (
	"context"
	"time"
)

// Fib returns the n-th Fibonacci number, counting fib(1) = 0 and
// fib(2) = 1, with the naive doubly recursive algorithm.
func Fib(n int) int {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		return Fib(n-1) + Fib(n-2)
	}
}

// Spin burns CPU until d elapsed or ctx is done, and returns the number of
// iterations run.
func Spin(ctx context.Context, d time.Duration) uint64 {
	deadline := time.Now().Add(d)

	var n uint64
	for {
		for i := 0; i < 1<<12; i++ {
			n++
		}
		if ctx.Err() != nil || !time.Now().Before(deadline) {
			return n
		}
	}
}
