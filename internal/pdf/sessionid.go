package pdf

import (
	"errors"
	"path/filepath"
	"regexp"
	"strconv"
)

// ErrNoSessionID is returned for file names without a digit run
var ErrNoSessionID = errors.New("no session number in file name")

var digitRun = regexp.MustCompile(`\d+`)

// ParseSessionID returns the first run of decimal digits in the base name of
// path, e.g. "TE 184 Angriff.pdf" -> 184
func ParseSessionID(path string) (int, error) {
	m := digitRun.FindString(filepath.Base(path))
	if m == "" {
		return 0, ErrNoSessionID
	}
	id, err := strconv.Atoi(m)
	if err != nil {
		return 0, err
	}
	return id, nil
}
