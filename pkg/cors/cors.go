// Package cors provides access to the NOAA CORS archive of daily RINEX observation files.
//
// The archive is organized by year, day of year and station:
//
//	<root>/2025/100/corv/corv1000.25d.gz
//
// Daily observation files are Hatanaka compressed (compact RINEX) and gzipped.
package cors

import (
	"fmt"
	"strings"
	"time"

	"github.com/de-bkg/rnxfetch/pkg/rinex"
)

// DefaultRoot is the root URL of the NOAA CORS archive on AWS.
const DefaultRoot = "https://noaa-cors-pds.s3.amazonaws.com/rinex"

// Archive specifies a remote RINEX archive.
type Archive struct {
	Root string
}

// URL returns the location of the daily Hatanaka compressed observation file of station for day.
// Neither the station nor the day are validated.
func (a Archive) URL(day time.Time, station string) string {
	station = strings.ToLower(station)
	return fmt.Sprintf("%s/%04d/%03d/%s/%s.gz", strings.TrimRight(a.Root, "/"), day.Year(), day.YearDay(),
		station, rinex.DailyObsFilename(station, day, rinex.ObsTypeHatanaka))
}
