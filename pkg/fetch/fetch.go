// Package fetch downloads daily RINEX observation files of a list of stations for a range of days.
//
// Each station-day is a task: the file is probed, downloaded, decompressed and Hatanaka
// decompressed, leaving the RINEX obs file in <OutputDir>/daily/<yyyy>/<ddd>/.
// Tasks run concurrently on a pool of workers.
package fetch

import (
	"context"
	"net/http"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/de-bkg/rnxfetch/pkg/cors"
	"github.com/de-bkg/rnxfetch/pkg/rinex"
	"github.com/de-bkg/rnxfetch/pkg/station"
)

// Pipeline runs the tasks of a run. Use New to create one from a Config.
type Pipeline struct {
	Archive   cors.Archive
	OutputDir string
	Workers   int

	Prober    Prober
	Fetcher   Fetcher
	Converter Converter

	// Decompress defaults to rinex.Decompress.
	Decompress func(path string) (string, error)

	// Metrics is optional.
	Metrics *Metrics

	// OnStart is called with the number of jobs before the first task is submitted.
	OnStart func(total int)

	// OnOutcome is called from a single goroutine for every finished task.
	OnOutcome func(Outcome)

	cfg Config
}

// New returns a pipeline for the given config.
// It fails if the config is invalid or the converter is not an executable file.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	conv, err := rinex.NewCrx2rnx(cfg.Converter)
	if err != nil {
		return nil, err
	}

	prober := cors.NewProber(&http.Client{})
	prober.Retries = cfg.Retries
	prober.Delay = cfg.RetryDelay
	prober.Timeout = cfg.ProbeTimeout
	if cfg.RequestsPerSecond > 0 {
		prober.Limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	var fetcher Fetcher
	switch cfg.Downloader {
	case DownloaderHTTP:
		fetcher = cors.NewHTTP()
	default:
		fetcher = cors.Curl{Silent: cfg.Silent}
	}

	p := &Pipeline{
		Archive:   cors.Archive{Root: cfg.ArchiveRoot},
		OutputDir: cfg.OutputDir,
		Workers:   cfg.Workers,
		Prober:    prober,
		Fetcher:   fetcher,
		Converter: conv,
		cfg:       cfg,
	}
	if cfg.MetricsFile != "" {
		p.Metrics = NewMetrics()
	}
	return p, nil
}

// Jobs loads the stations and returns the jobs for the configured days.
func (p *Pipeline) Jobs() ([]Job, error) {
	return loadJobs(p.cfg)
}

func loadJobs(cfg Config) ([]Job, error) {
	stations, err := station.Load(cfg.StationFile, cfg.StationColumn)
	if err != nil {
		return nil, err
	}
	return Jobs(cfg.Start, cfg.End, stations), nil
}

// Plan returns the URLs of all jobs of cfg in submission order.
// Unlike New it does not require the converter, nothing is downloaded.
func Plan(cfg Config) ([]string, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	jobs, err := loadJobs(cfg)
	if err != nil {
		return nil, err
	}
	archive := cors.Archive{Root: cfg.ArchiveRoot}
	urls := make([]string, 0, len(jobs))
	for _, job := range jobs {
		urls = append(urls, archive.URL(job.Day, job.Station))
	}
	return urls, nil
}

// URL returns the remote location of the jobs' file.
func (p *Pipeline) URL(job Job) string {
	return p.Archive.URL(job.Day, job.Station)
}

// Execute runs all jobs of the configured run. Failing tasks do not cause an error,
// they are reported in the summary. Errors are returned for invalid input only.
func (p *Pipeline) Execute(ctx context.Context) (Summary, error) {
	jobs, err := p.Jobs()
	if err != nil {
		return Summary{}, err
	}
	log.WithFields(log.Fields{"from": p.cfg.Start.Format("2006-01-02"), "to": p.cfg.End.Format("2006-01-02"), "jobs": len(jobs)}).Infoln("start")

	sum := p.Run(ctx, jobs)
	sum.Log()

	if p.Metrics != nil && p.cfg.MetricsFile != "" {
		if err := p.Metrics.WriteTextfile(p.cfg.MetricsFile); err != nil {
			log.Errorf("write metrics: %v", err)
		}
	}
	return sum, nil
}
