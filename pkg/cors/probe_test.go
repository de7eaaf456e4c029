package cors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

// recordSleep replaces the probers' sleep and records the requested delays.
func recordSleep(p *Prober) *[]time.Duration {
	var delays []time.Duration
	p.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	}
	return &delays
}

func newServer(t *testing.T, h http.HandlerFunc) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodHead, r.Method)
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestProber_Probe_exists(t *testing.T) {
	srv, calls := newServer(t, func(w http.ResponseWriter, r *http.Request) {})
	p := NewProber(srv.Client())
	delays := recordSleep(p)

	assert.True(t, p.Probe(context.Background(), srv.URL+"/2025/100/abcd/abcd1000.25d.gz"))
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
	assert.Empty(t, *delays)
}

func TestProber_Probe_notFound(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	srv, calls := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	p := NewProber(srv.Client())
	delays := recordSleep(p)

	assert.False(t, p.Probe(context.Background(), srv.URL+"/2025/100/abcd/abcd1000.25d.gz"))
	assert.EqualValues(t, DefaultRetries, atomic.LoadInt32(calls))
	assert.Equal(t, []time.Duration{DefaultRetryDelay, DefaultRetryDelay}, *delays, "delay between attempts")

	warnings := 0
	for _, e := range hook.AllEntries() {
		if e.Level == log.WarnLevel {
			warnings++
		}
	}
	assert.Equal(t, DefaultRetries, warnings, "one diagnostic per failed attempt")
}

func TestProber_Probe_timeout(t *testing.T) {
	srv, calls := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	p := &Prober{Client: srv.Client(), Retries: 3, Delay: 10 * time.Millisecond, Timeout: 20 * time.Millisecond}

	start := time.Now()
	assert.False(t, p.Probe(context.Background(), srv.URL+"/slow"))
	elapsed := time.Since(start)

	assert.EqualValues(t, 3, atomic.LoadInt32(calls))
	assert.GreaterOrEqual(t, elapsed, 3*20*time.Millisecond+2*10*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestProber_Probe_retrySucceeds(t *testing.T) {
	var n int32
	srv, calls := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&n, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})
	p := NewProber(srv.Client())
	delays := recordSleep(p)

	assert.True(t, p.Probe(context.Background(), srv.URL+"/flaky"))
	assert.EqualValues(t, 3, atomic.LoadInt32(calls))
	assert.Len(t, *delays, 2)
}

func TestProber_Probe_transportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/gone"
	srv.Close()

	p := &Prober{Client: http.DefaultClient, Retries: 2, Timeout: time.Second}
	delays := recordSleep(p)
	assert.False(t, p.Probe(context.Background(), url))
	assert.Len(t, *delays, 1)
}

func TestProber_Probe_cancelled(t *testing.T) {
	srv, calls := newServer(t, func(w http.ResponseWriter, r *http.Request) {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &Prober{Client: srv.Client(), Retries: 3, Delay: time.Hour, Timeout: time.Second}
	assert.False(t, p.Probe(ctx, srv.URL+"/x"))
	assert.EqualValues(t, 0, atomic.LoadInt32(calls))
}

func TestProber_Probe_limiter(t *testing.T) {
	srv, calls := newServer(t, func(w http.ResponseWriter, r *http.Request) {})
	p := NewProber(srv.Client())
	p.Limiter = rate.NewLimiter(rate.Limit(1000), 1)

	for i := 0; i < 5; i++ {
		assert.True(t, p.Probe(context.Background(), srv.URL+"/x"))
	}
	assert.EqualValues(t, 5, atomic.LoadInt32(calls))
}
