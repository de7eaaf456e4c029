package cors

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Defaults for probing.
const (
	DefaultRetries      = 3
	DefaultRetryDelay   = 5 * time.Second
	DefaultProbeTimeout = 10 * time.Second
)

// Prober checks whether a remote file exists before it gets downloaded.
// A Prober is safe for concurrent use by multiple goroutines.
type Prober struct {
	Client  *http.Client
	Retries int           // number of attempts
	Delay   time.Duration // pause between attempts
	Timeout time.Duration // per attempt

	// Limiter throttles the HEAD requests of all goroutines sharing the Prober. Nil means no limit.
	Limiter *rate.Limiter

	// sleep waits for d or until ctx is done, replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewProber returns a Prober with the default retries, delay and timeout.
func NewProber(client *http.Client) *Prober {
	if client == nil {
		client = http.DefaultClient
	}
	return &Prober{
		Client:  client,
		Retries: DefaultRetries,
		Delay:   DefaultRetryDelay,
		Timeout: DefaultProbeTimeout,
	}
}

// Probe sends HEAD requests to url until the file is reported to exist or all attempts failed.
// A false result is no proof that the file is missing, it only saves a useless download.
func (p *Prober) Probe(ctx context.Context, url string) bool {
	retries := p.Retries
	if retries < 1 {
		retries = 1
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	for attempt := 1; attempt <= retries; attempt++ {
		err := p.head(ctx, url)
		if err == nil {
			return true
		}
		log.WithFields(log.Fields{"url": url, "attempt": attempt, "of": retries}).Warnf("probe failed: %v", err)

		if ctx.Err() != nil {
			return false
		}
		if attempt < retries {
			if err := sleep(ctx, p.Delay); err != nil {
				return false
			}
		}
	}
	return false
}

func (p *Prober) head(ctx context.Context, url string) error {
	if p.Limiter != nil {
		if err := p.Limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return err
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("bad status %q", resp.Status)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
