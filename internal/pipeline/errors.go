package pipeline

import (
	"errors"
	"fmt"

	"github.com/ironsheep/oil-level-monitor/internal/config"
)

var (
	// ErrConfigurationMissing is returned before any network call when a
	// required setting or collaborator is absent.
	ErrConfigurationMissing = config.ErrConfigurationMissing

	ErrAcquisitionFailed  = errors.New("frame acquisition failed")
	ErrTransformFailed    = errors.New("image transform failed")
	ErrAnalysisFailed     = errors.New("gauge analysis failed")
	ErrParseFailed        = errors.New("no percentage found in model response")
	ErrLogFailed          = errors.New("reading log append failed")
	ErrNotificationFailed = errors.New("notification failed")

	// ErrBusy is returned when Run is called while a run is in progress.
	ErrBusy = errors.New("a reading is already in progress")
)

// Stage names a step of the pipeline.
type Stage string

const (
	StageAcquire   Stage = "acquire"
	StageTransform Stage = "transform"
	StageAnalyze   Stage = "analyze"
	StageParse     Stage = "parse"
	StageLog       Stage = "log"
	StageNotify    Stage = "notify"
)

// StageError reports which stage failed. It matches both the stage sentinel
// and the underlying cause with errors.Is.
type StageError struct {
	Stage Stage
	// Err is one of the package sentinels.
	Err error
	// Cause is the collaborator's error, if any.
	Cause error
}

func (e *StageError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Err, e.Cause)
}

func (e *StageError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// Fatal reports whether the run stopped before a reading was produced.
// A parse failure or a failed notification still leaves a usable result.
func (e *StageError) Fatal() bool {
	switch e.Stage {
	case StageParse, StageNotify:
		return false
	}
	return true
}
