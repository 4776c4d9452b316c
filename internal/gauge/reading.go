package gauge

import (
	"fmt"
	"time"
)

// DefaultAlertThreshold is the percentage at or below which a reading is low.
const DefaultAlertThreshold = 25

// Reading is the result of one pipeline run. It is created once and never
// modified; persistence is the job of the reading log.
type Reading struct {
	// Percentage is nil when no percentage could be parsed from RawText.
	Percentage *int

	// RawText is the model's full answer.
	RawText string

	// SourceImagePath is the processed image the reading was taken from.
	SourceImagePath string

	// Timestamp is when the frame was acquired.
	Timestamp time.Time
}

// NewReading parses raw and builds a Reading.
func NewReading(raw, sourceImagePath string, ts time.Time) *Reading {
	r := &Reading{RawText: raw, SourceImagePath: sourceImagePath, Timestamp: ts}
	if pct, ok := ExtractPercentage(raw); ok {
		r.Percentage = &pct
	}
	return r
}

// Parsed reports whether a percentage was found.
func (r *Reading) Parsed() bool { return r.Percentage != nil }

// Status is the classification of a parsed reading.
type Status int

const (
	// StatusUnknown means no percentage was parsed.
	StatusUnknown Status = iota
	// StatusOK means the level is above the alert threshold.
	StatusOK
	// StatusWarning means the level is at or below the alert threshold.
	StatusWarning
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Classify compares the reading with threshold. A reading equal to the
// threshold is a warning.
func (r *Reading) Classify(threshold int) Status {
	if r.Percentage == nil {
		return StatusUnknown
	}
	if *r.Percentage <= threshold {
		return StatusWarning
	}
	return StatusOK
}

func (r *Reading) String() string {
	if r.Percentage == nil {
		return "unparsed reading"
	}
	return fmt.Sprintf("%d%%", *r.Percentage)
}
