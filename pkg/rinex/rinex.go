// Package rinex provides functions for handling RINEX observation files on disk:
// filename conventions, decompression and Hatanaka conversion.
// See RINEX format documentation at
// https://igs.org/formats-and-standards/
package rinex

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// RINEX-2 file type characters for observation files.
const (
	// ObsTypeHatanaka marks a Hatanaka compressed (compact RINEX) obs file, e.g. brux1000.25d.
	ObsTypeHatanaka byte = 'd'

	// ObsTypeRinex marks a plain RINEX obs file, e.g. brux1000.25o.
	ObsTypeRinex byte = 'o'
)

// errors
var (
	// ErrNoStandardExt is returned when a filename does not follow the RINEX naming conventions.
	ErrNoStandardExt = errors.New("RINEX: file has no standard RINEX extension")
)

var (
	// Rnx2FileNamePattern is the regex for RINEX2 filenames.
	Rnx2FileNamePattern = regexp.MustCompile(`(([a-z0-9]{4})(\d{3})([a-x0])(\d{2})?\.(\d{2})([domnglqfph]))\.?([a-zA-Z0-9]+)?`)

	// Rnx3FileNamePattern is the regex for RINEX3 filenames.
	Rnx3FileNamePattern = regexp.MustCompile(`((([A-Z0-9]{4})(\d)(\d)([A-Z]{3})_([RSU])_((\d{4})(\d{3})(\d{2})(\d{2}))_(\d{2}[A-Z])_?(\d{2}[CZSMHDU])?_([GREJCSM][MNO]))\.(rnx|crx))\.?([a-zA-Z0-9]+)?`)

	rnx2UpperPattern = regexp.MustCompile(`(([A-Z0-9]{4})(\d{3})([A-X0])(\d{2})?\.(\d{2})([DO]))`)
)

// DailyObsFilename returns the RINEX2 filename of a daily observation file, e.g. "brux1000.25d".
// The station is the four character ID, typ is ObsTypeHatanaka or ObsTypeRinex.
func DailyObsFilename(station string, day time.Time, typ byte) string {
	var fn strings.Builder
	fn.WriteString(strings.ToLower(station))
	fn.WriteString(fmt.Sprintf("%03d", day.YearDay()))
	fn.WriteString("0") // session char for daily files
	fn.WriteString(fmt.Sprintf(".%02d", day.Year()%100))
	fn.WriteByte(typ)
	return fn.String()
}

// IsHatanakaCompressed returns true if the file given by filename is Hatanaka compressed.
// This is checked by the filenames' extension, so a compression suffix like .gz must be stripped before.
func IsHatanakaCompressed(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".crx" || (len(ext) > 1 && strings.HasSuffix(ext, string(ObsTypeHatanaka))) { // .21d
		return true
	}
	return false
}

// RnxFilename returns the name of the RINEX file that results from Hatanaka decompressing crxFilename.
// The directory part of crxFilename is kept. RINEX2 names keep their case, i.e. .25d becomes .25o and
// .25D becomes .25O, RINEX3 names get the .rnx extension.
func RnxFilename(crxFilename string) (string, error) {
	dir, crxFil := filepath.Split(crxFilename)

	rnxFil := ""
	if Rnx2FileNamePattern.MatchString(crxFil) && strings.HasSuffix(crxFil, string(ObsTypeHatanaka)) {
		rnxFil = crxFil[:len(crxFil)-1] + string(ObsTypeRinex)
	} else if rnx2UpperPattern.MatchString(crxFil) && strings.HasSuffix(crxFil, "D") {
		rnxFil = crxFil[:len(crxFil)-1] + "O"
	} else if Rnx3FileNamePattern.MatchString(crxFil) && strings.HasSuffix(crxFil, ".crx") {
		rnxFil = Rnx3FileNamePattern.ReplaceAllString(crxFil, "${2}.rnx")
	} else {
		return "", errors.Wrap(ErrNoStandardExt, crxFil)
	}

	if rnxFil == "" || rnxFil == crxFil {
		return "", errors.Errorf("could not build uncompressed filename for %s", crxFil)
	}
	return filepath.Join(dir, rnxFil), nil
}

// ParseDoy returns the UTC-Time corresponding to the given year and day of year.
func ParseDoy(year, doy int) time.Time {
	y := year
	if year > 80 && year <= 99 {
		y += 1900
	} else if year <= 80 {
		y += 2000
	}
	t := time.Date(y, 1, 0, 0, 0, 0, 0, time.UTC)
	return t.Add(time.Duration(doy) * time.Hour * 24)
}
