package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/ironsheep/oil-level-monitor/internal/analyzer"
	"github.com/ironsheep/oil-level-monitor/internal/camera"
	"github.com/ironsheep/oil-level-monitor/internal/config"
	"github.com/ironsheep/oil-level-monitor/internal/detection"
	"github.com/ironsheep/oil-level-monitor/internal/gauge"
	"github.com/ironsheep/oil-level-monitor/internal/history"
	"github.com/ironsheep/oil-level-monitor/internal/imaging"
	"github.com/ironsheep/oil-level-monitor/internal/notify"
	"github.com/ironsheep/oil-level-monitor/internal/ocr"
	"github.com/ironsheep/oil-level-monitor/internal/pipeline"
	"github.com/ironsheep/oil-level-monitor/internal/readinglog"
)

// cmdCheck takes one reading.
func cmdCheck(ctx context.Context, a *app, _ []string) int {
	if !a.require(config.NeedCamera | config.NeedAnalyzer | config.NeedNotifier) {
		return exitUsage
	}

	mailer, err := notify.New(a.cfg.SMTP, a.cfg.AlertThreshold, a.logger)
	if err != nil {
		a.logger.Error().Err(err).Msg("Invalid SMTP settings")
		return exitUsage
	}

	p, err := pipeline.New(
		camera.New(a.cfg.Camera, a.logger),
		analyzer.New(a.cfg.Anthropic, a.logger),
		readinglog.New(a.cfg.LogFile),
		mailer,
		pipeline.Options{
			Transform:      a.cfg.Transform,
			AlertThreshold: a.cfg.AlertThreshold,
			ImagesDir:      a.cfg.ImagesDir,
		},
		a.logger,
	)
	if err != nil {
		a.logger.Error().Err(err).Msg("Could not build pipeline")
		return exitUsage
	}

	if a.cfg.HistoryDB != "" {
		store, err := history.Open(a.cfg.HistoryDB)
		if err != nil {
			a.logger.Warn().Err(err).Str("path", a.cfg.HistoryDB).Msg("History database unavailable")
		} else {
			defer store.Close()
			p.WithMirror(store)
		}
	}

	res, err := p.Run(ctx)
	printResult(a, res)
	if err != nil {
		var serr *pipeline.StageError
		if errors.As(err, &serr) && !serr.Fatal() {
			a.logger.Warn().Err(err).Str("state", res.State.String()).Msg("Reading incomplete")
		} else {
			a.logger.Error().Err(err).Str("state", res.State.String()).Msg("Reading failed")
		}
		return exitFailed
	}

	a.logger.Info().Str("log", a.cfg.LogFile).Msg("Reading complete")
	return exitOK
}

func printResult(a *app, res *pipeline.Result) {
	if res == nil || res.Reading == nil {
		return
	}
	r := res.Reading
	if !r.Parsed() {
		a.printf("Could not determine the oil level. Model response:\n%s\n", r.RawText)
		return
	}

	label := "OK"
	if res.Status == gauge.StatusWarning {
		label = "LOW"
	}
	a.printf("Oil level: %d%% (%s, alert threshold %d%%)\n", *r.Percentage, label, a.cfg.AlertThreshold)
	if r.SourceImagePath != "" {
		a.printf("Image: %s\n", r.SourceImagePath)
	}
	a.printf("\nModel response:\n%s\n", r.RawText)
}

// cmdCameras lists the cameras known to the console.
func cmdCameras(ctx context.Context, a *app, _ []string) int {
	cfg := a.cfg.Camera
	if cfg.Host == "" || cfg.APIKey == "" {
		// CAMERA_ID is what this command helps to find
		if !a.require(config.NeedCamera) {
			return exitUsage
		}
	}

	cameras, err := camera.New(cfg, a.logger).ListCameras(ctx)
	if err != nil {
		a.logger.Error().Err(err).Msg("Could not list cameras")
		return exitFailed
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tMODEL\tSTATE\tMAC")
	for _, c := range cameras {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Model, c.State, c.MAC)
	}
	tw.Flush()
	return exitOK
}

// cmdProcess runs only the transform on a saved snapshot.
func cmdProcess(_ context.Context, a *app, args []string) int {
	if len(args) < 1 || len(args) > 2 {
		a.logger.Error().Msg("usage: oil-monitor process <image> [output]")
		return exitUsage
	}
	in := args[0]
	out := siblingPath(in, "processed_")
	if len(args) == 2 {
		out = args[1]
	}

	raw, err := imaging.LoadFrameFile(in)
	if err != nil {
		a.logger.Error().Err(err).Msg("Could not read image")
		return exitFailed
	}
	frame, err := imaging.Transform(raw, a.cfg.Transform)
	if err != nil {
		a.logger.Error().Err(err).Msg("Transform failed")
		return exitFailed
	}
	if err := os.WriteFile(out, frame.JPEG, 0o644); err != nil {
		a.logger.Error().Err(err).Msg("Could not write processed image")
		return exitFailed
	}

	a.printf("Processed %s -> %s (%dx%d, %d bytes)\n", in, out, frame.Width, frame.Height, len(frame.JPEG))
	return exitOK
}

// cmdCalibrate writes the rotated frame with a coordinate grid and the
// processed crop, then reports what the gauge looks like after processing.
func cmdCalibrate(_ context.Context, a *app, args []string, outDir string) int {
	if len(args) != 1 {
		a.logger.Error().Msg("usage: oil-monitor calibrate [-out DIR] <image>")
		return exitUsage
	}
	if outDir == "" {
		outDir = a.cfg.DataDir
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		a.logger.Error().Err(err).Msg("Could not create output directory")
		return exitFailed
	}

	raw, err := imaging.LoadFrameFile(args[0])
	if err != nil {
		a.logger.Error().Err(err).Msg("Could not read image")
		return exitFailed
	}
	src, info, err := imaging.DecodeFrame(raw)
	if err != nil {
		a.logger.Error().Err(err).Msg("Could not decode image")
		return exitFailed
	}
	opts := a.cfg.Transform
	a.printf("Source: %dx%d %s\n", info.Width, info.Height, info.Format)
	a.printf("Calibration: flip=%t rotate=%.1f crop=%v glare=%t enhance=%t\n",
		opts.FlipHorizontal, opts.RotateDegrees, opts.Crop, opts.ReduceGlare, opts.Enhance)

	oriented := imaging.Orient(src, opts.FlipHorizontal, opts.RotateDegrees)
	gridOpts := imaging.DefaultGridOptions()
	gridOpts.Crop = opts.Crop
	grid, err := imaging.GridOverlay(oriented, gridOpts)
	if err != nil {
		a.logger.Error().Err(err).Msg("Could not draw grid")
		return exitFailed
	}
	gridPath := filepath.Join(outDir, "calibration_grid.jpg")
	if err := imaging.SaveScaledJPEG(grid, gridPath, 1.0, 90); err != nil {
		a.logger.Error().Err(err).Msg("Could not save grid image")
		return exitFailed
	}
	a.printf("Rotated frame: %dx%d, grid written to %s (crop outlined in green)\n", oriented.Rect.Dx(), oriented.Rect.Dy(), gridPath)

	processed, err := imaging.TransformImage(src, opts)
	if err != nil {
		a.logger.Error().Err(err).Msg("Transform failed; pick a crop inside the rotated frame using the grid")
		return exitFailed
	}
	cropPath := filepath.Join(outDir, "calibration_crop.jpg")
	if err := imaging.SaveScaledJPEG(processed, cropPath, 1.0, imaging.DefaultJPEGQuality); err != nil {
		a.logger.Error().Err(err).Msg("Could not save processed image")
		return exitFailed
	}
	a.printf("Processed frame: %dx%d, written to %s\n", processed.Rect.Dx(), processed.Rect.Dy(), cropPath)

	// Glare is measured on the crop before suppression
	var before image.Image = oriented
	if opts.Crop != nil {
		if cropped, err := imaging.Crop(oriented, *opts.Crop); err == nil {
			before = cropped
		}
	}
	g := imaging.AnalyzeGlare(before, opts.Glare)
	a.printf("\nGlare (threshold %.0f):\n", opts.Glare.Threshold)
	a.printf("  pixels over threshold: %d (%.2f%%)\n", g.GlarePixels, g.GlarePercent)
	a.printf("  top band: %.2f%% glare, lightness %.2f\n", g.TopBandGlarePercent, g.TopBandLightness)
	a.printf("  lower lightness: %.2f, brightest row %d\n", g.LowerLightness, g.BrightestRow)

	bands := detection.FindBands(processed, detection.DefaultBandOptions())
	a.printf("\nBands (background luma %.1f):\n", bands.Background)
	if bands.Count == 0 {
		a.printf("  none found\n")
	}
	for _, b := range bands.Bands {
		a.printf("  %-10s rows %d-%d  %.1f%% up  contrast %+.1f  edge %.1f\n",
			b.Kind, b.Top, b.Bottom, b.PositionPercent, b.Contrast, b.EdgeSharpness)
	}
	if f := bands.FloatCandidate(); f != nil {
		a.printf("  likely float at rows %d-%d\n", f.Top, f.Bottom)
	}

	a.printf("\nLabels:\n")
	labels, err := ocr.FindLabels(processed, "eng")
	switch {
	case err != nil:
		a.logger.Warn().Err(err).Msg("Label OCR unavailable")
		a.printf("  OCR unavailable\n")
	case len(labels) == 0:
		a.printf("  none recognized\n")
	default:
		for _, l := range labels {
			a.printf("  %-5s (%3d%%) at y=%d  confidence %.2f\n", l.Marker, l.Marker.Percent(), l.Bounds.Y1, l.Confidence)
		}
	}
	return exitOK
}

// cmdConsistency analyzes the same saved snapshot repeatedly.
func cmdConsistency(ctx context.Context, a *app, args []string) int {
	if len(args) != 2 {
		a.logger.Error().Msg("usage: oil-monitor consistency <image> <runs>")
		return exitUsage
	}
	runs, err := strconv.Atoi(args[1])
	if err != nil || runs < 1 {
		a.logger.Error().Str("runs", args[1]).Msg("runs must be a positive integer")
		return exitUsage
	}
	if !a.require(config.NeedAnalyzer) {
		return exitUsage
	}

	raw, err := imaging.LoadFrameFile(args[0])
	if err != nil {
		a.logger.Error().Err(err).Msg("Could not read image")
		return exitFailed
	}
	frame, err := imaging.Transform(raw, a.cfg.Transform)
	if err != nil {
		a.logger.Error().Err(err).Msg("Transform failed")
		return exitFailed
	}

	an := analyzer.New(a.cfg.Anthropic, a.logger)
	var values []int
	for i := 1; i <= runs; i++ {
		if ctx.Err() != nil {
			break
		}
		text, err := an.Analyze(ctx, frame, gauge.Prompt)
		if err != nil {
			a.logger.Warn().Err(err).Int("run", i).Msg("Analysis failed")
			a.printf("run %d: error\n", i)
			continue
		}
		pct, ok := gauge.ExtractPercentage(text)
		if !ok {
			a.printf("run %d: no percentage\n", i)
			continue
		}
		a.printf("run %d: %d%%\n", i, pct)
		values = append(values, pct)
	}

	s, ok := summarize(values)
	if !ok {
		a.printf("\nNo readings parsed in %d runs\n", runs)
		return exitFailed
	}
	a.printf("\nParsed %d of %d runs\n", len(values), runs)
	a.printf("  min %d%%  max %d%%  average %.1f%%  range %d\n", s.Min, s.Max, s.Average, s.Range)
	a.printf("  frequency:")
	for _, v := range s.Values {
		a.printf(" %d%%x%d", v, s.Frequency[v])
	}
	a.printf("\n")
	return exitOK
}

// consistencyStats summarizes repeated readings of one image.
type consistencyStats struct {
	Min, Max  int
	Average   float64
	Range     int
	Frequency map[int]int
	// Values lists the distinct readings in ascending order.
	Values []int
}

func summarize(values []int) (consistencyStats, bool) {
	if len(values) == 0 {
		return consistencyStats{}, false
	}
	s := consistencyStats{Min: values[0], Max: values[0], Frequency: make(map[int]int)}
	sum := 0
	for _, v := range values {
		sum += v
		s.Min = min(s.Min, v)
		s.Max = max(s.Max, v)
		if s.Frequency[v] == 0 {
			s.Values = append(s.Values, v)
		}
		s.Frequency[v]++
	}
	sort.Ints(s.Values)
	s.Average = float64(sum) / float64(len(values))
	s.Range = s.Max - s.Min
	return s, true
}

// cmdHistory prints recent readings from the history database when one is
// configured, otherwise from the CSV log.
func cmdHistory(ctx context.Context, a *app, _ []string, n int) int {
	if n < 1 {
		n = 1
	}

	if a.cfg.HistoryDB != "" {
		store, err := history.Open(a.cfg.HistoryDB)
		if err != nil {
			a.logger.Error().Err(err).Msg("Could not open history database")
			return exitFailed
		}
		defer store.Close()

		stats, err := store.Summary(ctx)
		if err != nil {
			a.logger.Error().Err(err).Msg("Could not summarize history")
			return exitFailed
		}
		entries, err := store.Recent(ctx, n)
		if err != nil {
			a.logger.Error().Err(err).Msg("Could not read history")
			return exitFailed
		}

		a.printf("%d readings stored", stats.Count)
		if stats.Count > 0 {
			a.printf(", min %d%%, max %d%%", stats.Min, stats.Max)
		}
		a.printf("\n\n")
		tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TIMESTAMP\tLEVEL\tSTATUS\tIMAGE")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%d%%\t%s\t%s\n", e.Timestamp.Format(readinglog.TimestampLayout), e.Percentage, e.Status, e.ImagePath)
		}
		tw.Flush()
		return exitOK
	}

	rows, err := readinglog.Tail(a.cfg.LogFile, n)
	if err != nil {
		a.logger.Error().Err(err).Str("path", a.cfg.LogFile).Msg("Could not read reading log")
		return exitFailed
	}
	if len(rows) == 0 {
		a.printf("No readings in %s\n", a.cfg.LogFile)
		return exitOK
	}

	// Newest first, matching the database view
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIMESTAMP\tLEVEL\tSTATUS\tIMAGE")
	for i := len(rows) - 1; i >= 0; i-- {
		r := rows[i]
		status := "ok"
		if r.Percentage <= a.cfg.AlertThreshold {
			status = "warning"
		}
		fmt.Fprintf(tw, "%s\t%d%%\t%s\t%s\n", r.Timestamp.Format(readinglog.TimestampLayout), r.Percentage, status, r.Snapshot)
	}
	tw.Flush()
	return exitOK
}

// siblingPath returns path's directory joined with prefix+base, forcing a
// .jpg extension.
func siblingPath(path, prefix string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base)) + ".jpg"
	return filepath.Join(filepath.Dir(path), prefix+base)
}
