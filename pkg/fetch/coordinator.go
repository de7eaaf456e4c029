package fetch

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Outcome is the result of a task.
type Outcome struct {
	Job      Job
	State    State
	Err      error
	Duration time.Duration
}

// Succeeded returns true if the task finished successfully.
func (o Outcome) Succeeded() bool {
	return o.Err == nil && o.State.Succeeded()
}

// Run runs a task for each job with at most p.Workers tasks at a time and waits for all of them.
// Outcomes are collected in order of completion. A failing or panicking task never stops the run.
func (p *Pipeline) Run(ctx context.Context, jobs []Job) Summary {
	workers := p.Workers
	if workers < 1 {
		workers = DefaultWorkers
	}
	if p.OnStart != nil {
		p.OnStart(len(jobs))
	}

	results := make(chan Outcome, workers)
	go func() {
		var g errgroup.Group
		g.SetLimit(workers)
		for _, job := range jobs {
			job := job
			g.Go(func() error {
				results <- p.runSafe(ctx, job)
				return nil
			})
		}
		g.Wait()
		close(results)
	}()

	sum := NewSummary(len(jobs))
	for o := range results {
		sum.Add(o)
		logOutcome(o)
		if p.Metrics != nil {
			p.Metrics.Observe(o)
		}
		if p.OnOutcome != nil {
			p.OnOutcome(o)
		}
	}
	return sum
}

// runSafe runs the task of job and turns a panic into the failed state of the step that panicked.
func (p *Pipeline) runSafe(ctx context.Context, job Job) (o Outcome) {
	start := time.Now()
	t := p.newTask(job)
	defer func() {
		if r := recover(); r != nil {
			o = Outcome{Job: job, State: t.state.failure(), Err: errors.Errorf("panic in state %s: %v", t.state, r), Duration: time.Since(start)}
		}
	}()

	state, err := p.runTask(ctx, t)
	return Outcome{Job: job, State: state, Err: err, Duration: time.Since(start)}
}

func logOutcome(o Outcome) {
	l := log.WithFields(log.Fields{"station": o.Job.Station, "day": o.Job.Day.Format("2006-01-02"), "state": o.State})
	switch {
	case o.Succeeded():
		l.Debugln("task finished")
	case o.State == StateSkipped:
		l.Warnf("skipped: %v", o.Err)
	default:
		l.Errorf("failed: %v", o.Err)
	}
}
