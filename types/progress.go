package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Unreadable marks a progress value that could not be read from the page.
const Unreadable = -1

// ProgressKind selects which counter pair a measurement reads.
type ProgressKind string

const (
	// ProgressDevice is the per-device search quota.
	ProgressDevice ProgressKind = "device"
	// ProgressOffer is the daily bonus offer quota.
	ProgressOffer ProgressKind = "offer"
)

// ProgressMeasurement is a current/maximum pair read from the page.
// Either side may be Unreadable independently.
type ProgressMeasurement struct {
	Current int `json:"current"`
	Maximum int `json:"maximum"`
}

// NewMeasurement normalises negative values to Unreadable.
func NewMeasurement(current, maximum int) ProgressMeasurement {
	if current < 0 {
		current = Unreadable
	}
	if maximum < 0 {
		maximum = Unreadable
	}
	return ProgressMeasurement{Current: current, Maximum: maximum}
}

// UnreadableMeasurement returns a measurement with both sides unreadable.
func UnreadableMeasurement() ProgressMeasurement {
	return ProgressMeasurement{Current: Unreadable, Maximum: Unreadable}
}

func (m ProgressMeasurement) CurrentUnreadable() bool { return m.Current == Unreadable }

func (m ProgressMeasurement) MaximumUnreadable() bool { return m.Maximum == Unreadable }

// BothReadable reports whether neither side carries the sentinel.
func (m ProgressMeasurement) BothReadable() bool {
	return !m.CurrentUnreadable() && !m.MaximumUnreadable()
}

// Met reports whether a fully readable measurement reached its maximum.
func (m ProgressMeasurement) Met() bool {
	return m.BothReadable() && m.Current >= m.Maximum
}

func (m ProgressMeasurement) String() string {
	return fmt.Sprintf("%d/%d", m.Current, m.Maximum)
}

// ParseCount parses a page counter. Anything that is not a non-negative
// integer yields Unreadable. Thousands separators and a leading '/' are
// tolerated.
func ParseCount(s string) int {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "/")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return Unreadable
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return Unreadable
	}
	return n
}

// ParseComposite parses a "current/maximum" text.
func ParseComposite(s string) ProgressMeasurement {
	cur, max, ok := strings.Cut(s, "/")
	if !ok {
		return ProgressMeasurement{Current: ParseCount(s), Maximum: Unreadable}
	}
	return ProgressMeasurement{Current: ParseCount(cur), Maximum: ParseCount(max)}
}
