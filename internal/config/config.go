// Package config loads oil-monitor settings from the environment, an optional
// .env file and an optional YAML calibration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/oil-level-monitor/internal/gauge"
	"github.com/ironsheep/oil-level-monitor/internal/imaging"
)

// ErrConfigurationMissing reports required settings that are not set.
var ErrConfigurationMissing = errors.New("configuration missing")

const (
	// LogFileName is the reading log created inside the data directory.
	LogFileName = "oil_level_log.csv"
	// ImagesDirName holds snapshots and processed frames.
	ImagesDirName = "images"

	DefaultModel     = "claude-sonnet-4-5"
	DefaultMaxTokens = 2048
)

// CameraConfig addresses the UniFi Protect snapshot endpoint.
type CameraConfig struct {
	Host      string
	APIKey    string
	CameraID  string
	VerifyTLS bool
	Timeout   time.Duration
}

// AnthropicConfig configures the vision model.
type AnthropicConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// SMTPConfig configures the status email.
type SMTPConfig struct {
	Server    string
	Port      int
	Username  string
	Password  string
	Recipient string
	Timeout   time.Duration
}

// Config is the complete runtime configuration. It is built once at startup
// and passed explicitly to every component.
type Config struct {
	Camera    CameraConfig
	Anthropic AnthropicConfig
	SMTP      SMTPConfig

	// AlertThreshold is the percentage at or below which a warning is sent.
	AlertThreshold int

	// DataDir holds ImagesDir and LogFile.
	DataDir   string
	ImagesDir string
	LogFile   string

	// HistoryDB is an optional SQLite database mirroring the reading log.
	HistoryDB string

	// CalibrationFile is the YAML file Transform was loaded from, if any.
	CalibrationFile string
	Transform       imaging.TransformOptions

	LogLevel  string
	LogFormat string
}

// Load reads .env (if present) and the process environment.
//
// dataDir overrides OIL_DATA_DIR; when both are empty, images and the log are
// stored beside the executable.
func Load(dataDir string) (*Config, error) {
	// Missing .env is fine; the environment may be set by the scheduler
	_ = godotenv.Load()

	cfg := &Config{
		Camera: CameraConfig{
			Host:     getEnv("UNIFI_HOST", ""),
			APIKey:   getEnv("UNIFI_API_KEY", ""),
			CameraID: getEnv("CAMERA_ID", ""),
		},
		Anthropic: AnthropicConfig{
			APIKey:    getEnv("ANTHROPIC_API_KEY", ""),
			Model:     getEnv("ANTHROPIC_MODEL", DefaultModel),
			MaxTokens: DefaultMaxTokens,
		},
		SMTP: SMTPConfig{
			Server:    getEnv("SMTP_SERVER", "smtp.gmail.com"),
			Username:  getEnv("SMTP_USERNAME", ""),
			Password:  getEnv("SMTP_PASSWORD", ""),
			Recipient: getEnv("ALERT_EMAIL", ""),
		},
		HistoryDB:       getEnv("OIL_HISTORY_DB", ""),
		CalibrationFile: getEnv("OIL_CALIBRATION_FILE", ""),
		LogLevel:        getEnv("OIL_MONITOR_LOG_LEVEL", "info"),
		LogFormat:       getEnv("OIL_MONITOR_LOG_FORMAT", "console"),
		Transform:       imaging.DefaultTransformOptions(),
	}

	var err error
	if cfg.Camera.VerifyTLS, err = getEnvAsBool("UNIFI_VERIFY_TLS", false); err != nil {
		return nil, err
	}
	if cfg.SMTP.Port, err = getEnvAsInt("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	if cfg.AlertThreshold, err = getEnvAsInt("ALERT_THRESHOLD", gauge.DefaultAlertThreshold); err != nil {
		return nil, err
	}
	if cfg.AlertThreshold < 0 || cfg.AlertThreshold > 100 {
		return nil, fmt.Errorf("ALERT_THRESHOLD must be between 0 and 100, got %d", cfg.AlertThreshold)
	}
	if cfg.Camera.Timeout, err = getEnvAsSeconds("CAMERA_TIMEOUT", 10); err != nil {
		return nil, err
	}
	if cfg.Anthropic.Timeout, err = getEnvAsSeconds("ANALYSIS_TIMEOUT", 120); err != nil {
		return nil, err
	}
	if cfg.SMTP.Timeout, err = getEnvAsSeconds("SMTP_TIMEOUT", 30); err != nil {
		return nil, err
	}

	if dataDir == "" {
		dataDir = getEnv("OIL_DATA_DIR", "")
	}
	if err := cfg.setDataDir(dataDir); err != nil {
		return nil, err
	}

	if cfg.CalibrationFile != "" {
		opts, err := LoadCalibration(cfg.CalibrationFile)
		if err != nil {
			return nil, err
		}
		cfg.Transform = *opts
	}

	return cfg, nil
}

// setDataDir resolves the image directory and log file locations.
func (c *Config) setDataDir(dir string) error {
	if dir == "" {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get executable path: %w", err)
		}
		if real, err := filepath.EvalSymlinks(exe); err == nil {
			exe = real
		}
		dir = filepath.Dir(exe)
	}
	c.DataDir = dir
	c.ImagesDir = filepath.Join(dir, ImagesDirName)
	c.LogFile = filepath.Join(dir, LogFileName)
	return nil
}

// LoadCalibration reads transform calibration from a YAML file. Keys that are
// absent keep their default values; "crop: null" disables cropping.
//
//	rotate_degrees: 55
//	crop: {left: 700, top: 650, right: 1300, bottom: 1600}
//	reduce_glare: true
//	glare: {threshold: 220}
func LoadCalibration(path string) (*imaging.TransformOptions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read calibration file: %w", err)
	}

	opts := imaging.DefaultTransformOptions()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return nil, fmt.Errorf("failed to parse calibration file %s: %w", path, err)
	}
	if opts.JPEGQuality < 1 || opts.JPEGQuality > 100 {
		return nil, fmt.Errorf("calibration jpeg_quality must be between 1 and 100, got %d", opts.JPEGQuality)
	}
	return &opts, nil
}

// Requirement selects which collaborators a command needs configured.
type Requirement int

const (
	NeedCamera Requirement = 1 << iota
	NeedAnalyzer
	NeedNotifier
)

// Validate reports every missing setting the given requirements depend on.
// The error wraps ErrConfigurationMissing and names the environment variables.
func (c *Config) Validate(req Requirement) error {
	var missing []string
	check := func(value, name string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}

	if req&NeedCamera != 0 {
		check(c.Camera.Host, "UNIFI_HOST")
		check(c.Camera.APIKey, "UNIFI_API_KEY")
		check(c.Camera.CameraID, "CAMERA_ID")
	}
	if req&NeedAnalyzer != 0 {
		check(c.Anthropic.APIKey, "ANTHROPIC_API_KEY")
		check(c.Anthropic.Model, "ANTHROPIC_MODEL")
	}
	if req&NeedNotifier != 0 {
		check(c.SMTP.Server, "SMTP_SERVER")
		check(c.SMTP.Recipient, "ALERT_EMAIL")
		if c.SMTP.Username == "" && c.SMTP.Password != "" {
			missing = append(missing, "SMTP_USERNAME")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrConfigurationMissing, strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}

func getEnvAsSeconds(key string, defaultSeconds int) (time.Duration, error) {
	n, err := getEnvAsInt(key, defaultSeconds)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, n)
	}
	return time.Duration(n) * time.Second, nil
}
