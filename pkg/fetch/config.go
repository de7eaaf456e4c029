package fetch

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/de-bkg/rnxfetch/pkg/cors"
	"github.com/de-bkg/rnxfetch/pkg/rinex"
	"github.com/de-bkg/rnxfetch/pkg/station"
)

// Downloaders.
const (
	DownloaderCurl = "curl"
	DownloaderHTTP = "http"
)

// DefaultWorkers is the number of tasks running concurrently.
const DefaultWorkers = 10

// Config holds the settings of a run.
type Config struct {
	Start time.Time `validate:"required"`
	End   time.Time `validate:"required,gtefield=Start"` // inclusive

	Workers      int           `validate:"min=1"`
	Retries      int           `validate:"min=1"`
	RetryDelay   time.Duration `validate:"min=0"`
	ProbeTimeout time.Duration `validate:"min=0"`

	StationFile   string `validate:"required"`
	StationColumn string `validate:"required"`

	// OutputDir is the base directory, files are stored in OutputDir/daily/yyyy/ddd.
	OutputDir string `validate:"required"`

	ArchiveRoot string `validate:"required,url"`
	Downloader  string `validate:"oneof=curl http"`
	Silent      bool   // curl only

	// Converter is the path of the CRX2RNX executable.
	Converter string `validate:"required"`

	RequestsPerSecond float64 `validate:"min=0"` // 0: no limit
	MetricsFile       string
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{
		Start:         time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC),
		End:           time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC),
		Workers:       DefaultWorkers,
		Retries:       cors.DefaultRetries,
		RetryDelay:    cors.DefaultRetryDelay,
		ProbeTimeout:  cors.DefaultProbeTimeout,
		StationFile:   station.DefaultFilename,
		StationColumn: station.DefaultColumn,
		OutputDir:     ".",
		ArchiveRoot:   cors.DefaultRoot,
		Downloader:    DownloaderCurl,
		Silent:        true,
		Converter:     rinex.DefaultCrx2rnxTool,
	}
}

// use a single instance of Validate, it caches struct info
var validate = validator.New()

// Validate checks the config for missing or contradicting settings.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	return nil
}
