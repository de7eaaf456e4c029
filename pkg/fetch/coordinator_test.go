package fetch

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowProber tracks the number of concurrent probes.
type slowProber struct {
	inFlight, maxInFlight int32
}

func (p *slowProber) Probe(ctx context.Context, url string) bool {
	n := atomic.AddInt32(&p.inFlight, 1)
	defer atomic.AddInt32(&p.inFlight, -1)
	for {
		max := atomic.LoadInt32(&p.maxInFlight)
		if n <= max || atomic.CompareAndSwapInt32(&p.maxInFlight, max, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return true
}

func TestRun_allSubmitted(t *testing.T) {
	p, pr, _, co := newTestPipeline(t)
	pr.missing = map[string]bool{"miss": true}
	co.noOutput = false
	co.panicOn = "crsh"

	stations := []string{"abcd", "miss", "crsh", "efgh"}
	jobs := Jobs(day(2025, 4, 10), day(2025, 4, 14), stations)
	require.Len(t, jobs, 20)

	var started int
	var outcomes []Outcome
	p.OnStart = func(total int) { started = total }
	p.OnOutcome = func(o Outcome) { outcomes = append(outcomes, o) }
	p.Metrics = NewMetrics()

	sum := p.Run(context.Background(), jobs)
	assert.Equal(t, 20, started)
	assert.Equal(t, 20, sum.Submitted, "total equals number of jobs")
	assert.Equal(t, 10, sum.Succeeded)
	assert.Equal(t, 10, sum.Failed())
	assert.Equal(t, 5, sum.ByState[StateSkipped])
	assert.Equal(t, 5, sum.ByState[StateConvertFailed], "panic during conversion")
	assert.Zero(t, sum.ByState[StateConverting])
	assert.Equal(t, 10, sum.ByState[StateDone])
	assert.Len(t, outcomes, 20, "every task awaited")

	for _, o := range outcomes {
		assert.True(t, o.State.Terminal(), "%s ends in %s", o.Job, o.State)
		if o.Job.Station == "crsh" {
			assert.Error(t, o.Err)
			assert.Contains(t, o.Err.Error(), "converter crashed")
		}
	}

	assert.Equal(t, 10.0, testutil.ToFloat64(p.Metrics.tasks.WithLabelValues("done")))
	assert.Equal(t, 5.0, testutil.ToFloat64(p.Metrics.tasks.WithLabelValues("skipped")))
	assert.Equal(t, 5.0, testutil.ToFloat64(p.Metrics.tasks.WithLabelValues("convert_failed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(p.Metrics.tasks.WithLabelValues("converting")))
}

func TestRun_workerLimit(t *testing.T) {
	p, _, _, _ := newTestPipeline(t)
	sp := &slowProber{}
	p.Prober = sp
	p.Workers = 4

	var stations []string
	for _, s := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		stations = append(stations, s+"xyz")
	}
	jobs := Jobs(day(2025, 4, 10), day(2025, 4, 12), stations)

	sum := p.Run(context.Background(), jobs)
	assert.Equal(t, len(jobs), sum.Submitted)
	assert.Equal(t, len(jobs), sum.Succeeded)
	assert.LessOrEqual(t, atomic.LoadInt32(&sp.maxInFlight), int32(4))
	assert.Greater(t, atomic.LoadInt32(&sp.maxInFlight), int32(1), "tasks run concurrently")
}

func TestRun_empty(t *testing.T) {
	p, _, _, _ := newTestPipeline(t)
	sum := p.Run(context.Background(), nil)
	assert.Equal(t, 0, sum.Submitted)
	assert.Equal(t, 0, sum.Succeeded)
}

func TestRun_outcomesFromSingleGoroutine(t *testing.T) {
	p, _, _, _ := newTestPipeline(t)
	p.Workers = 8
	var mu sync.Mutex
	busy := false
	p.OnOutcome = func(o Outcome) {
		mu.Lock()
		assert.False(t, busy, "OnOutcome called concurrently")
		busy = true
		mu.Unlock()
		time.Sleep(time.Millisecond)
		mu.Lock()
		busy = false
		mu.Unlock()
	}
	sum := p.Run(context.Background(), Jobs(day(2025, 4, 10), day(2025, 4, 11), []string{"abcd", "efgh", "ijkl"}))
	assert.Equal(t, 6, sum.Succeeded)
}

func TestSummary_Write(t *testing.T) {
	sum := NewSummary(21)
	for i := 0; i < 18; i++ {
		sum.Add(Outcome{State: StateDone})
	}
	sum.Add(Outcome{State: StateSkipped})
	sum.Add(Outcome{State: StateDownloadFailed})
	sum.Add(Outcome{State: StateConvertFailed})

	var buf bytes.Buffer
	require.NoError(t, sum.Write(&buf))
	assert.Equal(t, "Submitted 21 downloads\nCompleted 18 of 21\n", buf.String())
	assert.Equal(t, 3, sum.Failed())
	sum.Log()
}
