// Package interval models half-open time ranges [Start, End).
//
// Both endpoints are kept in UTC so that comparisons never depend on the
// location a caller happened to construct its times in.
package interval

import (
	"errors"
	"fmt"
	"time"
)

var ErrEmptyInterval = errors.New("interval start must be before end")

type Interval struct {
	Start time.Time `json:"start" bson:"start"`
	End   time.Time `json:"end" bson:"end"`
}

func New(start, end time.Time) (Interval, error) {
	if !start.Before(end) {
		return Interval{}, fmt.Errorf("%w: %s >= %s", ErrEmptyInterval, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return Interval{Start: start.UTC(), End: end.UTC()}, nil
}

// Around returns [at - before, at + length + after).
func Around(at time.Time, length, before, after time.Duration) Interval {
	return Interval{
		Start: at.Add(-before).UTC(),
		End:   at.Add(length + after).UTC(),
	}
}

// Overlaps reports whether a and b share any instant. Touching ranges
// (a.End == b.Start) do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

func Contains(a Interval, t time.Time) bool {
	return !t.Before(a.Start) && t.Before(a.End)
}

func (i Interval) Overlaps(other Interval) bool {
	return Overlaps(i, other)
}

func (i Interval) Contains(t time.Time) bool {
	return Contains(i, t)
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Shift returns i moved by d.
func (i Interval) Shift(d time.Duration) Interval {
	return Interval{Start: i.Start.Add(d), End: i.End.Add(d)}
}

// Covers reports whether other lies entirely inside i.
func (i Interval) Covers(other Interval) bool {
	return !other.Start.Before(i.Start) && !other.End.After(i.End)
}

func (i Interval) String() string {
	return fmt.Sprintf("[%s, %s)", i.Start.Format(time.RFC3339), i.End.Format(time.RFC3339))
}
