package common

import (
	"fmt"
	"time"
)

// Layouts used when rendering result values.
const (
	DateTimeLayout = "2006-01-02 15:04:05"
	DateLayout     = "2006-01-02"
)

var tryFormats = []string{time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.000",
	"06-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02/01/2006",
	"02-01-2006",
	"2006-01-02",
	"15:04:05.000",
	"15:04:05",
	"15:04"}

// TryParseDT parses str with the first layout that accepts it.
func TryParseDT(str string) (time.Time, error) {
	var lasterror error
	for _, f := range tryFormats {
		tx, err := time.Parse(f, str)
		if err == nil {
			return tx, nil
		}
		lasterror = err
	}

	return time.Time{}, fmt.Errorf("unrecognised date/time %q: %w", str, lasterror)
}
