// Package pipeline runs one gauge reading end to end: acquire a frame,
// transform it, ask the model, parse the percentage, log it and send the
// status email.
//
// Collaborators are injected as small interfaces so the camera, model, log
// and mailer can be replaced in tests. A Pipeline performs at most one run at
// a time and makes a single attempt at every external call.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ironsheep/oil-level-monitor/internal/gauge"
	"github.com/ironsheep/oil-level-monitor/internal/imaging"
)

// FrameSource returns one encoded camera frame.
type FrameSource interface {
	Snapshot(ctx context.Context) ([]byte, error)
}

// Analyzer turns a processed frame and a prompt into the model's answer.
type Analyzer interface {
	Analyze(ctx context.Context, frame *imaging.ProcessedFrame, prompt string) (string, error)
}

// Recorder persists a parsed reading.
type Recorder interface {
	Record(ctx context.Context, r *gauge.Reading, status gauge.Status) error
}

// Notifier reports a parsed reading.
type Notifier interface {
	Notify(ctx context.Context, r *gauge.Reading, status gauge.Status) error
}

// State is the position of a run in the reading state machine.
type State int

const (
	StateIdle State = iota
	StateFrameAcquired
	StateTransformed
	StateAnalyzed
	StateParsed
	StateLogged
	StateNotified
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFrameAcquired:
		return "frame_acquired"
	case StateTransformed:
		return "transformed"
	case StateAnalyzed:
		return "analyzed"
	case StateParsed:
		return "parsed"
	case StateLogged:
		return "logged"
	case StateNotified:
		return "notified"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

const (
	snapshotPrefix  = "oil_snapshot_"
	processedPrefix = "processed_"
	fileTimeLayout  = "20060102_150405"

	// DefaultPreviewScale and DefaultPreviewQuality size the processed copy
	// kept on disk and attached to the email.
	DefaultPreviewScale   = 0.5
	DefaultPreviewQuality = 90
)

// Options configures a Pipeline.
type Options struct {
	Transform      imaging.TransformOptions
	AlertThreshold int

	// ImagesDir receives the raw snapshot and the processed preview of every
	// run. Empty disables saving; readings then carry no image path.
	ImagesDir string

	// Prompt defaults to gauge.Prompt.
	Prompt string

	PreviewScale   float64
	PreviewQuality int

	// Now defaults to time.Now.
	Now func() time.Time
}

// Result describes a finished run, successful or not.
type Result struct {
	State State

	// Reading is set once the model answered.
	Reading *gauge.Reading
	Status  gauge.Status

	// Frame is the exact image sent to the model.
	Frame *imaging.ProcessedFrame

	SnapshotPath  string
	ProcessedPath string
}

// Pipeline wires the collaborators together.
type Pipeline struct {
	source   FrameSource
	analyzer Analyzer
	log      Recorder
	mirror   Recorder
	notifier Notifier
	opts     Options
	logger   zerolog.Logger

	running atomic.Bool
}

// New validates the collaborators and fills option defaults.
func New(source FrameSource, analyzer Analyzer, log Recorder, notifier Notifier, opts Options, logger zerolog.Logger) (*Pipeline, error) {
	var missing []string
	if source == nil {
		missing = append(missing, "frame source")
	}
	if analyzer == nil {
		missing = append(missing, "analyzer")
	}
	if log == nil {
		missing = append(missing, "reading log")
	}
	if notifier == nil {
		missing = append(missing, "notifier")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrConfigurationMissing, strings.Join(missing, ", "))
	}

	if opts.Prompt == "" {
		opts.Prompt = gauge.Prompt
	}
	if opts.PreviewScale <= 0 {
		opts.PreviewScale = DefaultPreviewScale
	}
	if opts.PreviewQuality <= 0 {
		opts.PreviewQuality = DefaultPreviewQuality
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Pipeline{
		source:   source,
		analyzer: analyzer,
		log:      log,
		notifier: notifier,
		opts:     opts,
		logger:   logger.With().Str("component", "pipeline").Logger(),
	}, nil
}

// WithMirror adds a secondary recorder. Its failures are logged and do not
// fail the run.
func (p *Pipeline) WithMirror(r Recorder) *Pipeline {
	p.mirror = r
	return p
}

// Run performs one reading. The returned Result is never nil; on failure it
// holds everything produced before the failing stage. Errors are
// *StageError values.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if !p.running.CompareAndSwap(false, true) {
		return &Result{State: StateIdle}, ErrBusy
	}
	defer p.running.Store(false)

	res := &Result{State: StateIdle}
	ts := p.opts.Now()

	// Acquire
	raw, err := p.source.Snapshot(ctx)
	if err == nil && len(raw) == 0 {
		err = errors.New("empty frame")
	}
	if err != nil {
		return p.fail(res, StageAcquire, ErrAcquisitionFailed, err)
	}
	res.State = StateFrameAcquired
	p.logger.Info().Int("bytes", len(raw)).Msg("Frame acquired")

	if p.opts.ImagesDir != "" {
		res.SnapshotPath = p.imagePath(snapshotPrefix, ts)
		if err := p.saveSnapshot(res.SnapshotPath, raw); err != nil {
			p.logger.Warn().Err(err).Msg("Could not save snapshot")
			res.SnapshotPath = ""
		}
	}

	// Transform
	frame, err := imaging.Transform(raw, p.opts.Transform)
	if err != nil {
		return p.fail(res, StageTransform, ErrTransformFailed, err)
	}
	res.Frame = frame
	res.State = StateTransformed
	p.logger.Info().
		Int("width", frame.Width).
		Int("height", frame.Height).
		Int("bytes", len(frame.JPEG)).
		Msg("Frame transformed")

	if p.opts.ImagesDir != "" {
		res.ProcessedPath = p.imagePath(processedPrefix, ts)
		if err := p.savePreview(res.ProcessedPath, frame); err != nil {
			p.logger.Warn().Err(err).Msg("Could not save processed image")
			res.ProcessedPath = ""
		}
	}

	// Analyze
	text, err := p.analyzer.Analyze(ctx, frame, p.opts.Prompt)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty response")
	}
	if err != nil {
		return p.fail(res, StageAnalyze, ErrAnalysisFailed, err)
	}
	res.State = StateAnalyzed

	// Parse
	reading := gauge.NewReading(text, res.ProcessedPath, ts)
	res.Reading = reading
	res.State = StateParsed
	if !reading.Parsed() {
		p.logger.Warn().Str("response", text).Msg("Could not parse percentage from response")
		return res, &StageError{Stage: StageParse, Err: ErrParseFailed}
	}
	res.Status = reading.Classify(p.opts.AlertThreshold)
	p.logger.Info().
		Int("percentage", *reading.Percentage).
		Int("threshold", p.opts.AlertThreshold).
		Str("status", res.Status.String()).
		Msg("Reading parsed")

	// Log
	if err := p.log.Record(ctx, reading, res.Status); err != nil {
		return p.fail(res, StageLog, ErrLogFailed, err)
	}
	res.State = StateLogged
	if p.mirror != nil {
		if err := p.mirror.Record(ctx, reading, res.Status); err != nil {
			p.logger.Warn().Err(err).Msg("Could not record reading in history")
		}
	}

	// Notify
	if err := p.notifier.Notify(ctx, reading, res.Status); err != nil {
		return p.fail(res, StageNotify, ErrNotificationFailed, err)
	}
	res.State = StateNotified

	return res, nil
}

func (p *Pipeline) fail(res *Result, stage Stage, sentinel, cause error) (*Result, error) {
	res.State = StateFailed
	serr := &StageError{Stage: stage, Err: sentinel, Cause: cause}
	p.logger.Error().Err(cause).Str("stage", string(stage)).Msg(sentinel.Error())
	return res, serr
}

func (p *Pipeline) imagePath(prefix string, ts time.Time) string {
	return filepath.Join(p.opts.ImagesDir, prefix+ts.Format(fileTimeLayout)+".jpg")
}

func (p *Pipeline) saveSnapshot(path string, raw []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create images directory: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	p.logger.Debug().Str("path", path).Msg("Snapshot saved")
	return nil
}

func (p *Pipeline) savePreview(path string, frame *imaging.ProcessedFrame) error {
	img, err := frame.Image()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create images directory: %w", err)
	}
	if err := imaging.SaveScaledJPEG(img, path, p.opts.PreviewScale, p.opts.PreviewQuality); err != nil {
		return err
	}
	p.logger.Debug().Str("path", path).Msg("Processed image saved")
	return nil
}
