package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/ironsheep/oil-level-monitor/internal/config"
	"github.com/ironsheep/oil-level-monitor/internal/logging"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Exit codes
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd := "check"
	if len(args) > 0 {
		switch args[0] {
		case "--version", "-v", "version":
			printVersion(stdout)
			return exitOK
		case "--help", "-h", "help":
			printUsage(stdout)
			return exitOK
		}
		if !strings.HasPrefix(args[0], "-") {
			cmd, args = args[0], args[1:]
		}
	}

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	dataDir := fs.String("data-dir", "", "directory for images/ and the reading log")

	var handler func(ctx context.Context, a *app, args []string) int
	switch cmd {
	case "check":
		handler = cmdCheck
	case "cameras":
		handler = cmdCameras
	case "process":
		handler = cmdProcess
	case "calibrate":
		outDir := fs.String("out", "", "directory for the calibration images (default: data dir)")
		handler = func(ctx context.Context, a *app, args []string) int {
			return cmdCalibrate(ctx, a, args, *outDir)
		}
	case "consistency":
		handler = cmdConsistency
	case "history":
		n := fs.Int("n", 10, "number of readings to show")
		handler = func(ctx context.Context, a *app, args []string) int {
			return cmdHistory(ctx, a, args, *n)
		}
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
		printUsage(stderr)
		return exitUsage
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	cfg, err := config.Load(*dataDir)
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return exitUsage
	}

	a := &app{
		cfg:    cfg,
		logger: newLogger(stderr, cfg),
		stdout: stdout,
	}
	a.logger.Debug().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("commit", GitCommit).
		Str("command", cmd).
		Str("data_dir", cfg.DataDir).
		Msg("Oil monitor starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return handler(ctx, a, fs.Args())
}

// app carries what every command needs.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	stdout io.Writer
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.stdout, format, args...)
}

// require validates the settings a command depends on, before any network
// call is made.
func (a *app) require(req config.Requirement) bool {
	if err := a.cfg.Validate(req); err != nil {
		a.logger.Error().Err(err).Msg("Missing configuration; set it in the environment or .env")
		return false
	}
	return true
}

func newLogger(w io.Writer, cfg *config.Config) zerolog.Logger {
	if cfg.LogFormat == "json" {
		return logging.NewJSON(w, cfg.LogLevel)
	}
	return logging.New(w, cfg.LogLevel)
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "oil-monitor %s\n", Version)
	fmt.Fprintf(w, "  Build time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "oil-monitor - read an oil tank float gauge from a camera snapshot")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: oil-monitor [command] [options] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  check                      Take a reading, log it and email the status (default)")
	fmt.Fprintln(w, "  cameras                    List cameras on the Protect console")
	fmt.Fprintln(w, "  process <image> [out]      Run the image transform on a saved snapshot")
	fmt.Fprintln(w, "  calibrate <image>          Write a grid overlay and report glare, bands and labels")
	fmt.Fprintln(w, "  consistency <image> <n>    Analyze a saved snapshot n times and summarize")
	fmt.Fprintln(w, "  history [-n N]             Show recent readings")
	fmt.Fprintln(w, "  version                    Print version information")
	fmt.Fprintln(w, "  help                       Print this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  --data-dir DIR             Directory for images/ and oil_level_log.csv")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables (a .env file in the working directory is also read):")
	fmt.Fprintln(w, "  UNIFI_HOST, UNIFI_API_KEY, CAMERA_ID, UNIFI_VERIFY_TLS")
	fmt.Fprintln(w, "  ANTHROPIC_API_KEY, ANTHROPIC_MODEL")
	fmt.Fprintln(w, "  SMTP_SERVER, SMTP_PORT, SMTP_USERNAME, SMTP_PASSWORD, ALERT_EMAIL")
	fmt.Fprintln(w, "  ALERT_THRESHOLD              Warning level in percent (default 25)")
	fmt.Fprintln(w, "  CAMERA_TIMEOUT, ANALYSIS_TIMEOUT, SMTP_TIMEOUT   Seconds")
	fmt.Fprintln(w, "  OIL_DATA_DIR, OIL_HISTORY_DB, OIL_CALIBRATION_FILE")
	fmt.Fprintln(w, "  OIL_MONITOR_LOG_LEVEL=debug  Enable debug logging")
	fmt.Fprintln(w, "  OIL_MONITOR_LOG_FORMAT=json  Log JSON lines instead of console output")
}
