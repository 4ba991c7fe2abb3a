// Package duration parses, sums, and formats "m:ss" track durations.
package duration

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// Zero is the formatted total of an empty collection.
const Zero = "0:00"

// ErrMalformed matches every *MalformedError.
var ErrMalformed = errors.New("malformed duration")

// MalformedError reports a string that is not a valid minutes:seconds duration.
type MalformedError struct {
	Input string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed duration %q: want minutes:seconds with seconds 0-59", e.Input)
}

// Is reports whether target is ErrMalformed.
func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformed
}

var grammar = regexp.MustCompile(`^([0-9]+):([0-9]{1,2})$`)

// Parse converts a duration such as "4:05" into a number of seconds.
func Parse(s string) (int, error) {
	m := grammar.FindStringSubmatch(s)
	if m == nil {
		return 0, &MalformedError{Input: s}
	}
	minutes, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, &MalformedError{Input: s}
	}
	seconds, _ := strconv.Atoi(m[2])
	if seconds > 59 {
		return 0, &MalformedError{Input: s}
	}
	if minutes > (maxSeconds-seconds)/60 {
		return 0, &MalformedError{Input: s}
	}
	return minutes*60 + seconds, nil
}

const maxSeconds = int(^uint32(0) >> 1)

// Format renders seconds as "m:ss". Negative input formats as Zero.
func Format(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// Canonical re-formats a valid duration so that minutes are unpadded and
// seconds have exactly two digits.
func Canonical(s string) (string, error) {
	secs, err := Parse(s)
	if err != nil {
		return "", err
	}
	return Format(secs), nil
}

// Seconds returns the summed seconds of all durations.
func Seconds(durations []string) (int, error) {
	total := 0
	for _, d := range durations {
		secs, err := Parse(d)
		if err != nil {
			return 0, err
		}
		total += secs
	}
	return total, nil
}

// Sum parses every duration and returns the formatted total. An empty
// collection sums to Zero.
func Sum(durations []string) (string, error) {
	total, err := Seconds(durations)
	if err != nil {
		return "", err
	}
	return Format(total), nil
}
