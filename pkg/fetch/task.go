package fetch

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/de-bkg/rnxfetch/pkg/rinex"
)

// ErrUnavailable is returned for tasks skipped because the remote file could not be found.
var ErrUnavailable = errors.New("file not available")

// Prober checks the existence of a remote file.
type Prober interface {
	Probe(ctx context.Context, url string) bool
}

// Fetcher downloads url into dir and returns the path of the local file.
type Fetcher interface {
	Fetch(ctx context.Context, url, dir string) (string, error)
}

// Converter converts a Hatanaka compressed file into a RINEX file next to it and returns its path.
type Converter interface {
	Convert(ctx context.Context, crxFilename string) (string, error)
}

// task tracks the state of a single job.
type task struct {
	job   Job
	url   string
	state State
	log   *log.Entry
}

func (t *task) set(s State) State {
	t.log.Debugf("%s -> %s", t.state, s)
	t.state = s
	return s
}

// RunTask downloads, decompresses and converts the observation file of job.
// It returns the final state, and an error for any state other than StateDone.
// On success only the RINEX file remains in the jobs' directory.
func (p *Pipeline) RunTask(ctx context.Context, job Job) (State, error) {
	t := p.newTask(job)
	return p.runTask(ctx, t)
}

func (p *Pipeline) newTask(job Job) *task {
	url := p.Archive.URL(job.Day, job.Station)
	return &task{
		job:   job,
		url:   url,
		state: StatePending,
		log:   log.WithFields(log.Fields{"station": job.Station, "day": job.Day.Format("2006-01-02")}),
	}
}

func (p *Pipeline) runTask(ctx context.Context, t *task) (State, error) {
	t.set(StateProbing)
	if !p.Prober.Probe(ctx, t.url) {
		return t.set(StateSkipped), errors.Wrap(ErrUnavailable, t.url)
	}

	t.set(StateDownloading)
	dir := t.job.Dir(p.OutputDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return t.set(StateDownloadFailed), errors.Wrap(err, "create download dir")
	}
	gzFile, err := p.Fetcher.Fetch(ctx, t.url, dir)
	if err != nil {
		return t.set(StateDownloadFailed), errors.Wrap(err, "download")
	}
	t.log.WithField("url", t.url).Infoln("download complete")

	t.set(StateDecompressing)
	decompress := p.Decompress
	if decompress == nil {
		decompress = rinex.Decompress
	}
	obsFile, err := decompress(gzFile)
	if err != nil {
		return t.set(StateDecompressFailed), errors.Wrap(err, "unzip")
	}
	remove(t.log, gzFile)

	if !rinex.IsHatanakaCompressed(obsFile) {
		t.log.WithField("file", filepath.Base(obsFile)).Infoln("done")
		return t.set(StateDone), nil
	}

	t.set(StateConverting)
	rnxFile, err := p.Converter.Convert(ctx, obsFile)
	remove(t.log, obsFile)
	if err != nil {
		return t.set(StateConvertFailed), errors.Wrap(err, "convert")
	}
	t.log.WithField("file", filepath.Base(rnxFile)).Infoln("done")
	return t.set(StateDone), nil
}

// remove deletes an intermediate file. Failures are logged only, the next file is already there.
func remove(l *log.Entry, path string) {
	if err := os.Remove(path); err != nil {
		l.Warnf("could not delete %s: %v", path, err)
	}
}
