package fetch

import (
	"bytes"
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/mholt/archiver/v3"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/de-bkg/rnxfetch/pkg/cors"
	"github.com/de-bkg/rnxfetch/pkg/rinex"
)

const crxContent = "1.0                 COMPACT RINEX FORMAT                    CRINEX VERS   / TYPE\n"

type fakeProber struct {
	missing map[string]bool // stations without data
	calls   int32
}

func (p *fakeProber) Probe(ctx context.Context, url string) bool {
	atomic.AddInt32(&p.calls, 1)
	for sta := range p.missing {
		if strings.Contains(url, "/"+sta+"/") {
			return false
		}
	}
	return true
}

// fakeFetcher writes a gzipped compact RINEX file named after the url.
type fakeFetcher struct {
	err   error
	calls int32
}

func (f *fakeFetcher) Fetch(ctx context.Context, url, dir string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return "", f.err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dest := filepath.Join(dir, path.Base(url))
	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if err := archiver.NewGz().Compress(bytes.NewBufferString(crxContent), out); err != nil {
		return "", err
	}
	return dest, nil
}

// fakeConverter swaps the Hatanaka marker like CRX2RNX does.
type fakeConverter struct {
	noOutput bool
	panicOn  string // station
	calls    int32
}

func (c *fakeConverter) Convert(ctx context.Context, crxFilename string) (string, error) {
	atomic.AddInt32(&c.calls, 1)
	if c.panicOn != "" && strings.HasPrefix(filepath.Base(crxFilename), c.panicOn) {
		panic("converter crashed")
	}
	rnx, err := rinex.RnxFilename(crxFilename)
	if err != nil {
		return "", err
	}
	if c.noOutput {
		return "", errors.Wrap(rinex.ErrNoOutput, rnx)
	}
	return rnx, os.WriteFile(rnx, []byte("     2.11           OBSERVATION DATA\n"), 0o644)
}

func newTestPipeline(t *testing.T) (*Pipeline, *fakeProber, *fakeFetcher, *fakeConverter) {
	t.Helper()
	log.SetLevel(log.DebugLevel)
	pr, fe, co := &fakeProber{}, &fakeFetcher{}, &fakeConverter{}
	p := &Pipeline{
		Archive:   cors.Archive{Root: "https://archive.example/rinex"},
		OutputDir: t.TempDir(),
		Workers:   3,
		Prober:    pr,
		Fetcher:   fe,
		Converter: co,
	}
	return p, pr, fe, co
}

// dirEntries returns the filenames in dir.
func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("%v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
