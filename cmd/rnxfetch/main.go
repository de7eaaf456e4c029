// rnxfetch downloads daily RINEX observation files of CORS stations and converts them
// from compact RINEX to RINEX.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/de-bkg/rnxfetch/pkg/fetch"
	"github.com/de-bkg/rnxfetch/pkg/rinex"
)

const version = "0.1.0"

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	def := fetch.DefaultConfig()
	return &cli.App{
		Name:    "rnxfetch",
		Usage:   "download daily RINEX obs files from the NOAA CORS archive",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "start", Value: def.Start.Format(dateFormat), Usage: "first day, `YYYY-MM-DD` or YYYY/DDD", EnvVars: []string{"RNXFETCH_START"}},
			&cli.StringFlag{Name: "end", Value: def.End.Format(dateFormat), Usage: "last day (inclusive), `YYYY-MM-DD` or YYYY/DDD", EnvVars: []string{"RNXFETCH_END"}},
			&cli.PathFlag{Name: "stations", Aliases: []string{"s"}, Value: def.StationFile, Usage: "CSV file with the station IDs", EnvVars: []string{"RNXFETCH_STATIONS"}},
			&cli.StringFlag{Name: "column", Value: def.StationColumn, Usage: "CSV column holding the station IDs", EnvVars: []string{"RNXFETCH_COLUMN"}},
			&cli.PathFlag{Name: "output", Aliases: []string{"o"}, Value: def.OutputDir, Usage: "base directory, files are stored in `DIR`/daily/yyyy/ddd", EnvVars: []string{"RNXFETCH_OUTPUT"}},
			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Value: def.Workers, Usage: "number of concurrent downloads", EnvVars: []string{"RNXFETCH_WORKERS"}},
			&cli.IntFlag{Name: "retries", Value: def.Retries, Usage: "attempts to check whether a file exists"},
			&cli.DurationFlag{Name: "retry-delay", Value: def.RetryDelay, Usage: "pause between attempts"},
			&cli.DurationFlag{Name: "probe-timeout", Value: def.ProbeTimeout, Usage: "timeout of an attempt"},
			&cli.Float64Flag{Name: "rate", Usage: "max. existence checks per second, 0 for no limit"},
			&cli.StringFlag{Name: "archive", Value: def.ArchiveRoot, Usage: "root `URL` of the archive", EnvVars: []string{"RNXFETCH_ARCHIVE"}},
			&cli.StringFlag{Name: "downloader", Value: def.Downloader, Usage: "curl or http (built-in)"},
			&cli.BoolFlag{Name: "verbose-curl", Usage: "show curls' progress meter"},
			&cli.PathFlag{Name: "crx2rnx", Usage: "path of the CRX2RNX executable (default: next to rnxfetch)", EnvVars: []string{"RNXFETCH_CRX2RNX"}},
			&cli.PathFlag{Name: "metrics-file", Usage: "write prometheus metrics to `FILE` (textfile collector)"},
			&cli.BoolFlag{Name: "progress", Aliases: []string{"p"}, Usage: "show a progress bar"},
			&cli.BoolFlag{Name: "dry-run", Usage: "list the URLs only"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug, info, warn or error"},
		},
		Before: func(c *cli.Context) error {
			lvl, err := log.ParseLevel(c.String("log-level"))
			if err != nil {
				return cli.Exit(err, 1)
			}
			log.SetLevel(lvl)
			log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
			return nil
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	cfg, err := configFromFlags(c)
	if err != nil {
		return cli.Exit(err, 1)
	}

	if c.Bool("dry-run") {
		urls, err := fetch.Plan(cfg)
		if err != nil {
			return cli.Exit(err, 1)
		}
		for _, u := range urls {
			fmt.Fprintln(c.App.Writer, u)
		}
		return nil
	}

	p, err := fetch.New(cfg)
	if err != nil {
		return cli.Exit(err, 1)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.Bool("progress") {
		bar := newProgress(ctx)
		defer bar.shutdown()
		p.OnStart = bar.start
		p.OnOutcome = bar.done
	}

	sum, err := p.Execute(ctx)
	if err != nil {
		return cli.Exit(err, 1)
	}
	return sum.Write(c.App.Writer)
}

func configFromFlags(c *cli.Context) (fetch.Config, error) {
	cfg := fetch.DefaultConfig()

	var err error
	if cfg.Start, err = parseDay(c.String("start")); err != nil {
		return cfg, errors.Wrap(err, "start")
	}
	if cfg.End, err = parseDay(c.String("end")); err != nil {
		return cfg, errors.Wrap(err, "end")
	}

	cfg.StationFile = c.Path("stations")
	cfg.StationColumn = c.String("column")
	cfg.OutputDir = c.Path("output")
	cfg.Workers = c.Int("workers")
	cfg.Retries = c.Int("retries")
	cfg.RetryDelay = c.Duration("retry-delay")
	cfg.ProbeTimeout = c.Duration("probe-timeout")
	cfg.RequestsPerSecond = c.Float64("rate")
	cfg.ArchiveRoot = c.String("archive")
	cfg.Downloader = c.String("downloader")
	cfg.Silent = !c.Bool("verbose-curl")
	cfg.MetricsFile = c.Path("metrics-file")

	cfg.Converter = c.Path("crx2rnx")
	if cfg.Converter == "" {
		cfg.Converter = defaultConverter()
	}
	return cfg, nil
}

// defaultConverter returns the path of CRX2RNX in the directory of the running executable.
func defaultConverter() string {
	exe, err := os.Executable()
	if err != nil {
		return rinex.DefaultCrx2rnxTool
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), rinex.DefaultCrx2rnxTool)
}

const dateFormat = "2006-01-02"

// parseDay parses a date given as YYYY-MM-DD or YYYY/DDD.
func parseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if yr, doy, ok := strings.Cut(s, "/"); ok {
		y, err := strconv.Atoi(yr)
		if err != nil {
			return time.Time{}, errors.Errorf("invalid year in %q", s)
		}
		d, err := strconv.Atoi(doy)
		if err != nil || d < 1 || d > 366 {
			return time.Time{}, errors.Errorf("invalid day of year in %q", s)
		}
		t := rinex.ParseDoy(y, d)
		if t.Year() != rinex.ParseDoy(y, 1).Year() {
			return time.Time{}, errors.Errorf("invalid day of year in %q", s)
		}
		return t, nil
	}

	t, err := time.Parse(dateFormat, s)
	if err != nil {
		return time.Time{}, errors.Errorf("invalid date %q, use YYYY-MM-DD or YYYY/DDD", s)
	}
	return t, nil
}
