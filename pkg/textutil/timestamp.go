package textutil

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/turtacn/opgrader/pkg/errors"
)

// timestampRe accepts "MM:SS" and "H:MM:SS" / "HH:MM:SS".
var timestampRe = regexp.MustCompile(`^(\d{1,2}:)?(\d{1,2}):(\d{2})$`)

// ParseTimestamp splits a timestamp string into hour, minute and second
// components.  The hour group is optional; "05:30" parses as 0h 5m 30s.
func ParseTimestamp(ts string) (hours, minutes, seconds int, err error) {
	m := timestampRe.FindStringSubmatch(ts)
	if m == nil {
		return 0, 0, 0, errors.New(errors.ErrCodeTimestampInvalid, "timestamp must be MM:SS or HH:MM:SS").WithDetail(ts)
	}
	if m[1] != "" {
		hours, _ = strconv.Atoi(m[1][:len(m[1])-1])
	}
	minutes, _ = strconv.Atoi(m[2])
	seconds, _ = strconv.Atoi(m[3])
	if minutes > 59 || seconds > 59 {
		return 0, 0, 0, errors.New(errors.ErrCodeTimestampInvalid, "minutes and seconds must be below 60").WithDetail(ts)
	}
	return hours, minutes, seconds, nil
}

// TimestampToSeconds converts a timestamp string to total seconds.
func TimestampToSeconds(ts string) (float64, error) {
	h, m, s, err := ParseTimestamp(ts)
	if err != nil {
		return 0, err
	}
	return float64(h*3600 + m*60 + s), nil
}

// FormatTimestamp renders a second count as "MM:SS", or "H:MM:SS" when the
// duration reaches an hour.  Negative inputs clamp to zero.
//
//	FormatTimestamp(90)   == "01:30"
//	FormatTimestamp(3930) == "1:05:30"
func FormatTimestamp(totalSeconds float64) string {
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	t := int(totalSeconds)
	h := t / 3600
	m := (t % 3600) / 60
	s := t % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// Duration returns end minus start in seconds.  A negative difference is an
// input-ordering error.
func Duration(start, end string) (float64, error) {
	s, err := TimestampToSeconds(start)
	if err != nil {
		return 0, err
	}
	e, err := TimestampToSeconds(end)
	if err != nil {
		return 0, err
	}
	return e - s, nil
}
