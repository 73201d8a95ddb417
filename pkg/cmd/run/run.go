package run

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/maxgio92/sampleprof/internal/output"
	"github.com/maxgio92/sampleprof/internal/settings"
	"github.com/maxgio92/sampleprof/pkg/capture"
	"github.com/maxgio92/sampleprof/pkg/cmd/options"
	"github.com/maxgio92/sampleprof/pkg/profiler"
	"github.com/maxgio92/sampleprof/pkg/workload"
)

const (
	CmdName = "run"

	WorkloadFib  = "fib"
	WorkloadSpin = "spin"

	statusRefreshInterval = 1 * time.Second
)

var (
	ErrUnknownWorkload = errors.New("unknown workload")
	ErrInvalidWorkers  = errors.New("workers must be at least 1")
)

type Options struct {
	workload string
	fib      int
	duration time.Duration

	samplingInterval time.Duration
	outputInterval   time.Duration
	outputFile       string
	workers          int
	maxContexts      int
	flushTicks       int
	emitEmpty        bool
	status           bool

	*options.Options
}

func NewCommand(opts *options.Options) *cobra.Command {
	o := new(Options)
	o.Options = opts
	cmd := &cobra.Command{
		Use:   CmdName,
		Short: "Profile a built-in workload",
		Long: fmt.Sprintf(`
%s profiles a built-in CPU bound workload in the %s process itself.
The result of each output window is written to the output file, replacing the previous one.
With more than one worker every worker goroutine is a monitored context.
`, CmdName, settings.CmdName),
		DisableAutoGenTag: true,
		RunE:              o.Run,
	}

	cmd.Flags().StringVarP(&o.workload, "workload", "w", WorkloadFib, fmt.Sprintf("Workload to profile (%s, %s)", WorkloadFib, WorkloadSpin))
	cmd.Flags().IntVar(&o.fib, "fib", 32, "Fibonacci number computed by the fib workload")
	cmd.Flags().DurationVar(&o.duration, "duration", 3*time.Second, "Duration of the spin workload")

	cmd.Flags().DurationVarP(&o.samplingInterval, "sampling-interval", "i", profiler.DefaultSamplingInterval, "Interval between two samples")
	cmd.Flags().DurationVar(&o.outputInterval, "output-interval", 0, "Sampling time after which a result is written (0 writes once at the end)")
	cmd.Flags().StringVarP(&o.outputFile, "output", "o", settings.DefaultOutputFile, "File the result is written to")
	cmd.Flags().IntVar(&o.workers, "workers", 1, "Number of goroutines running the workload")
	cmd.Flags().IntVar(&o.maxContexts, "max-contexts", profiler.DefaultMaxConcurrentContexts, "Maximum number of goroutines sampled per tick")
	cmd.Flags().IntVar(&o.flushTicks, "flush-ticks", 0, "Write a result every n ticks with more than one worker (0 disables)")
	cmd.Flags().BoolVar(&o.emitEmpty, "emit-empty", false, "Write results without samples too")
	cmd.Flags().BoolVar(&o.status, "status", false, "Periodically print a status of the profiling")

	return cmd
}

func (o *Options) workloadFunc() (func(context.Context), error) {
	switch o.workload {
	case WorkloadFib:
		return func(context.Context) { workload.Fib(o.fib) }, nil
	case WorkloadSpin:
		return func(ctx context.Context) { workload.Spin(ctx, o.duration) }, nil
	default:
		return nil, errors.Wrapf(ErrUnknownWorkload, "%q", o.workload)
	}
}

func (o *Options) outputHandler() profiler.OutputHandler {
	return profiler.ChainOutputHandlers(
		profiler.FileOutputHandler(o.outputFile),
		func(data []byte) error {
			o.Logger.Debug().Str("file", o.outputFile).Int("bytes", len(data)).Msg("result written")
			return nil
		},
	)
}

func (o *Options) Run(_ *cobra.Command, _ []string) error {
	work, err := o.workloadFunc()
	if err != nil {
		return err
	}
	if o.workers < 1 {
		return ErrInvalidWorkers
	}

	p := profiler.NewProfiler(
		profiler.WithSamplingInterval(o.samplingInterval),
		profiler.WithOutputInterval(o.outputInterval),
		profiler.WithMultithreading(o.workers > 1),
		profiler.WithMaxConcurrentContexts(o.maxContexts),
		profiler.WithFlushTickCount(o.flushTicks),
		profiler.WithEmitEmpty(o.emitEmpty),
		profiler.WithOutputHandler(o.outputHandler()),
		profiler.WithLogger(o.Logger),
	)

	statusCtx, stopStatus := context.WithCancel(o.Ctx)
	var statusWG sync.WaitGroup
	if o.status {
		statusWG.Add(1)
		go func() {
			defer statusWG.Done()
			output.StatusBar(statusCtx, statusRefreshInterval, o.printStatus(p))
		}()
	}

	o.Logger.Info().
		Str("workload", o.workload).
		Int("workers", o.workers).
		Dur("sampling_interval", o.samplingInterval).
		Str("output", o.outputFile).
		Msg("profiling started")
	start := time.Now()

	g, ctx := errgroup.WithContext(o.Ctx)
	if o.workers == 1 {
		g.Go(func() error {
			return p.Profile(func() { work(ctx) })
		})
	} else {
		for i := 0; i < o.workers; i++ {
			g.Go(func() error {
				id := capture.CurrentID()
				if _, err := p.Start(id); err != nil {
					return errors.Wrap(err, "failed to start profiling worker")
				}
				defer p.Stop(id)
				work(ctx)

				return nil
			})
		}
	}
	err = g.Wait()
	p.Terminate()

	stopStatus()
	statusWG.Wait()
	if err != nil {
		return errors.Wrap(err, "failed to profile workload")
	}

	stats := p.Stats()
	o.Logger.Info().
		Dur("elapsed", time.Since(start)).
		Uint64("ticks", stats.Ticks).
		Uint64("samples", stats.Samples).
		Uint64("results", stats.Flushes).
		Msg("profiling completed")

	return nil
}

func (o *Options) printStatus(p *profiler.Profiler) func() {
	var last uint64

	return func() {
		s := p.Stats()
		rate := s.Samples - last
		last = s.Samples

		var util int
		if o.maxContexts > 0 {
			util = min(s.Contexts, o.maxContexts) * 100 / o.maxContexts
		}
		output.PrintRight(os.Stderr, output.PrettyProfileStatus(s.State.String(), s.Contexts, util, rate, s.Nodes, s.Flushes))
	}
}
