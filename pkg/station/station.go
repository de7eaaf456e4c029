// Package station loads the list of GNSS stations to process.
package station

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Defaults for the station list.
const (
	DefaultFilename = "station_ids.csv"
	DefaultColumn   = "SITEID"
)

// errors
var (
	// ErrNotFound is returned if the station file does not exist.
	ErrNotFound = errors.New("station file not found")

	// ErrInvalidSchema is returned if the station file lacks the requested column.
	ErrInvalidSchema = errors.New("station file has invalid schema")
)

const utf8BOM = "\ufeff"

// Load reads the CSV file filename and returns the values of column as lowercase station IDs.
// The first row of the file must be the header. The result has one entry per data row,
// rows with an empty station ID are rejected with ErrInvalidSchema. Blank lines are ignored.
func Load(filename, column string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrap(ErrNotFound, filename)
		}
		return nil, errors.Wrapf(err, "open station file")
	}
	defer f.Close()

	ids, err := Decode(f, column)
	if err != nil {
		return nil, errors.Wrap(err, filename)
	}
	return ids, nil
}

// Decode reads CSV data from r, see Load.
func Decode(r io.Reader, column string) ([]string, error) {
	rd := csv.NewReader(r)
	rd.FieldsPerRecord = -1
	rd.TrimLeadingSpace = true

	header, err := rd.Read()
	if err == io.EOF {
		return nil, errors.Wrap(ErrInvalidSchema, "empty file")
	}
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}

	col := -1
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		if strings.TrimSpace(name) == column {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, errors.Wrapf(ErrInvalidSchema, "column %q not present", column)
	}

	ids := []string{}
	for {
		rec, err := rd.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read station")
		}
		line, _ := rd.FieldPos(0)
		if col >= len(rec) {
			return nil, errors.Wrapf(ErrInvalidSchema, "line %d: missing column %q", line, column)
		}
		id := strings.ToLower(strings.TrimSpace(rec[col]))
		if id == "" {
			return nil, errors.Wrapf(ErrInvalidSchema, "line %d: empty %q", line, column)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
