package output

import (
	"context"
	"fmt"
	"time"
)

func StatusBar(ctx context.Context, refreshRate time.Duration, printF func()) {
	ticker := time.NewTicker(refreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			printF()
		case <-ctx.Done():
			return
		}
	}
}

// PrettyProfileStatus formats one status line. util is the share of the
// per tick context cap in use, in percent.
func PrettyProfileStatus(state string, contexts, util int, rate uint64, nodes int64, flushes uint64) string {
	return fmt.Sprintf("\r%-14s %-36s %-16s %-12s %-12s",
		fmt.Sprintf("State: %s", state),
		fmt.Sprintf("Contexts: %3d [%s] %3d%%", contexts, ProgressBar(util, 10), util),
		fmt.Sprintf("Samples/s: %4d", rate),
		fmt.Sprintf("Nodes: %4d", nodes),
		fmt.Sprintf("Flushes: %3d", flushes),
	)
}
