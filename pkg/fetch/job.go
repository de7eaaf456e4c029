package fetch

import (
	"fmt"
	"path/filepath"
	"time"
)

// Job identifies the daily observation file of a station.
type Job struct {
	Day     time.Time
	Station string
}

func (j Job) String() string {
	return fmt.Sprintf("%s %s", j.Station, j.Day.Format("2006-01-02"))
}

// Dir returns the local directory for the jobs' day: outputDir/daily/yyyy/ddd.
// All stations of a day share the directory.
func (j Job) Dir(outputDir string) string {
	return filepath.Join(outputDir, "daily", fmt.Sprintf("%04d", j.Day.Year()), fmt.Sprintf("%03d", j.Day.YearDay()))
}

// Jobs returns a job for every day from start to end, both inclusive, and every station.
// The jobs are ordered by day first, then by station in the given order.
func Jobs(start, end time.Time, stations []string) []Job {
	start = truncateDay(start)
	end = truncateDay(end)
	if end.Before(start) || len(stations) == 0 {
		return nil
	}

	days := int(end.Sub(start).Hours()/24) + 1
	jobs := make([]Job, 0, days*len(stations))
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		for _, sta := range stations {
			jobs = append(jobs, Job{Day: day, Station: sta})
		}
	}
	return jobs
}

// truncateDay returns midnight UTC of the calendar day of t.
func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
