package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Clock returns the current time. A nil Clock uses time.Now.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

// newNumber builds identifiers like ORD-20250101-3F9A1C.
func newNumber(prefix string, at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s%s-%s", prefix, at.Local().Format("20060102"), suffix)
}

// dayWindow returns local midnight and the last instant of the local day
// containing t.
func dayWindow(t time.Time) (time.Time, time.Time) {
	local := t.In(time.Local)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.Local)
	end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return start.UTC(), end.UTC()
}
