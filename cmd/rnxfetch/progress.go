package main

import (
	"context"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"go.uber.org/atomic"

	"github.com/de-bkg/rnxfetch/pkg/fetch"
)

// progress shows a bar of finished tasks. Log output is printed above the bar while it runs.
type progress struct {
	ctr    *mpb.Progress
	bar    *mpb.Bar
	failed atomic.Int64
}

func newProgress(ctx context.Context) *progress {
	ctr := mpb.NewWithContext(ctx, mpb.WithOutput(os.Stderr))
	log.SetOutput(ctr)
	return &progress{ctr: ctr}
}

func (p *progress) start(total int) {
	p.bar = p.ctr.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name("files", decor.WCSyncSpaceR),
			decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Any(func(decor.Statistics) string {
				if n := p.failed.Load(); n > 0 {
					return " failed: " + strconv.FormatInt(n, 10)
				}
				return ""
			}),
			decor.OnComplete(decor.EwmaETA(decor.ET_STYLE_GO, 30), " done!"),
		),
	)
}

func (p *progress) done(o fetch.Outcome) {
	if p.bar == nil {
		return
	}
	if !o.Succeeded() {
		p.failed.Inc()
	}
	p.bar.EwmaIncrement(o.Duration)
}

func (p *progress) shutdown() {
	if p.bar != nil && !p.bar.Completed() {
		p.bar.Abort(false)
	}
	p.ctr.Wait()
	log.SetOutput(os.Stderr)
}
