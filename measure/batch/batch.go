// Package batch fits many transitions against one spectrum in parallel.
package batch

import (
	"context"
	"errors"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-spectro/measure/linefit"
	"github.com/cwbudde/algo-spectro/spectro/spectrum"
)

// Job is one transition to fit. Options are appended to the fitter-wide
// options.
type Job struct {
	Transition *linefit.AtomicTransition
	Options    []linefit.Option
}

// Outcome is the result of one job. Exactly one of Result and Err is set.
type Outcome struct {
	Index      int
	Transition *linefit.AtomicTransition
	Result     *linefit.FitResult
	Err        error
	Elapsed    time.Duration
}

// Summary counts outcomes.
type Summary struct {
	Fitted    int
	Failed    int
	Converged int
}

// Fitter runs jobs on a bounded worker pool. The zero value uses one
// worker per CPU and no extra options.
type Fitter struct {
	Workers int
	Options []linefit.Option
	Logger  zerolog.Logger
}

func (f *Fitter) workers() int {
	if f.Workers > 0 {
		return f.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Run fits every job against data. Per-line failures are reported in the
// outcomes and do not stop the batch; cancelling ctx does, and Run then
// returns the context error with the outcomes gathered so far.
func (f *Fitter) Run(ctx context.Context, data *spectrum.Spectrum, jobs []Job) ([]Outcome, error) {
	outcomes := make([]Outcome, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers())

	for i, job := range jobs {
		outcomes[i] = Outcome{Index: i, Transition: job.Transition}
		if gctx.Err() != nil {
			outcomes[i].Err = gctx.Err()
			continue
		}
		g.Go(func() error {
			start := time.Now()
			opts := append(append([]linefit.Option(nil), f.Options...), job.Options...)
			res, err := linefit.Fit(gctx, job.Transition, data, opts...)
			outcomes[i].Result = res
			outcomes[i].Err = err
			outcomes[i].Elapsed = time.Since(start)

			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				f.Logger.Warn().Err(err).Str("transition", job.Transition.String()).Msg("fit failed")
				return nil
			}
			f.Logger.Debug().
				Str("transition", job.Transition.String()).
				Float64("ew", res.EquivalentWidth).
				Bool("converged", res.Diagnostics.Converged).
				Dur("elapsed", outcomes[i].Elapsed).
				Msg("fitted")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, ctx.Err()
}

// Summarize counts successes, failures and converged fits.
func Summarize(outcomes []Outcome) Summary {
	var s Summary
	for _, o := range outcomes {
		if o.Err != nil {
			s.Failed++
			continue
		}
		s.Fitted++
		if o.Result.Diagnostics.Converged {
			s.Converged++
		}
	}
	return s
}
