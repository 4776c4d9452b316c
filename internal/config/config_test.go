package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ironsheep/oil-level-monitor/internal/imaging"
)

// setEnv sets every known variable so the host environment cannot leak in.
func setEnv(t *testing.T, overrides map[string]string) {
	t.Helper()
	vars := map[string]string{
		"UNIFI_HOST":             "unifi.local",
		"UNIFI_API_KEY":          "unifi-key",
		"CAMERA_ID":              "cam-1",
		"UNIFI_VERIFY_TLS":       "",
		"ANTHROPIC_API_KEY":      "sk-test",
		"ANTHROPIC_MODEL":        "",
		"SMTP_SERVER":            "",
		"SMTP_PORT":              "",
		"SMTP_USERNAME":          "monitor@example.com",
		"SMTP_PASSWORD":          "secret",
		"ALERT_EMAIL":            "owner@example.com",
		"ALERT_THRESHOLD":        "",
		"OIL_DATA_DIR":           "",
		"OIL_HISTORY_DB":         "",
		"OIL_CALIBRATION_FILE":   "",
		"OIL_MONITOR_LOG_LEVEL":  "",
		"OIL_MONITOR_LOG_FORMAT": "",
		"CAMERA_TIMEOUT":         "",
		"ANALYSIS_TIMEOUT":       "",
		"SMTP_TIMEOUT":           "",
	}
	for k, v := range overrides {
		vars[k] = v
	}
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, nil)
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)

	require.Equal(t, "unifi.local", cfg.Camera.Host)
	require.False(t, cfg.Camera.VerifyTLS)
	require.Equal(t, 10*time.Second, cfg.Camera.Timeout)
	require.Equal(t, DefaultModel, cfg.Anthropic.Model)
	require.Equal(t, DefaultMaxTokens, cfg.Anthropic.MaxTokens)
	require.Equal(t, "smtp.gmail.com", cfg.SMTP.Server)
	require.Equal(t, 587, cfg.SMTP.Port)
	require.Equal(t, 25, cfg.AlertThreshold)
	require.Equal(t, filepath.Join(dir, "images"), cfg.ImagesDir)
	require.Equal(t, filepath.Join(dir, "oil_level_log.csv"), cfg.LogFile)
	require.Equal(t, imaging.DefaultTransformOptions(), cfg.Transform)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "console", cfg.LogFormat)
	require.NoError(t, cfg.Validate(NeedCamera|NeedAnalyzer|NeedNotifier))
}

func TestLoad_Overrides(t *testing.T) {
	dataDir := t.TempDir()
	setEnv(t, map[string]string{
		"UNIFI_VERIFY_TLS": "true",
		"SMTP_PORT":        "2525",
		"ALERT_THRESHOLD":  "30",
		"ANTHROPIC_MODEL":  "claude-opus-4-1",
		"OIL_DATA_DIR":     dataDir,
		"CAMERA_TIMEOUT":   "3",
	})

	cfg, err := Load("")
	require.NoError(t, err)

	require.True(t, cfg.Camera.VerifyTLS)
	require.Equal(t, 2525, cfg.SMTP.Port)
	require.Equal(t, 30, cfg.AlertThreshold)
	require.Equal(t, "claude-opus-4-1", cfg.Anthropic.Model)
	require.Equal(t, dataDir, cfg.DataDir)
	require.Equal(t, 3*time.Second, cfg.Camera.Timeout)
}

func TestLoad_FlagOverridesEnvDataDir(t *testing.T) {
	setEnv(t, map[string]string{"OIL_DATA_DIR": "/from/env"})

	cfg, err := Load("/from/flag")
	require.NoError(t, err)
	require.Equal(t, "/from/flag", cfg.DataDir)
}

func TestLoad_DefaultsBesideExecutable(t *testing.T) {
	setEnv(t, nil)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "images", filepath.Base(cfg.ImagesDir))
	require.Equal(t, filepath.Dir(cfg.ImagesDir), filepath.Dir(cfg.LogFile))
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"threshold not a number", map[string]string{"ALERT_THRESHOLD": "low"}},
		{"threshold out of range", map[string]string{"ALERT_THRESHOLD": "120"}},
		{"port not a number", map[string]string{"SMTP_PORT": "smtp"}},
		{"verify tls not a bool", map[string]string{"UNIFI_VERIFY_TLS": "maybe"}},
		{"zero timeout", map[string]string{"CAMERA_TIMEOUT": "0"}},
		{"missing calibration file", map[string]string{"OIL_CALIBRATION_FILE": "/nonexistent/calibration.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnv(t, tt.env)
			_, err := Load(t.TempDir())
			require.Error(t, err)
		})
	}
}

func TestValidate_Missing(t *testing.T) {
	setEnv(t, map[string]string{
		"UNIFI_HOST":        "",
		"CAMERA_ID":         "",
		"ANTHROPIC_API_KEY": "",
		"ALERT_EMAIL":       "",
	})
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	err = cfg.Validate(NeedCamera | NeedAnalyzer | NeedNotifier)
	require.ErrorIs(t, err, ErrConfigurationMissing)
	for _, name := range []string{"UNIFI_HOST", "CAMERA_ID", "ANTHROPIC_API_KEY", "ALERT_EMAIL"} {
		require.True(t, strings.Contains(err.Error(), name), "error should name %s: %v", name, err)
	}
	require.False(t, strings.Contains(err.Error(), "UNIFI_API_KEY"))

	// Commands that only talk to the camera do not need the model or SMTP
	cfg.Camera.Host = "unifi.local"
	cfg.Camera.CameraID = "cam-1"
	require.NoError(t, cfg.Validate(NeedCamera))
}

func TestValidate_PasswordWithoutUsername(t *testing.T) {
	setEnv(t, map[string]string{"SMTP_USERNAME": ""})
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	require.ErrorIs(t, cfg.Validate(NeedNotifier), ErrConfigurationMissing)
}

func TestLoadCalibration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.yaml")
	yaml := `flip_horizontal: true
rotate_degrees: -12.5
crop:
  left: 10
  top: 20
  right: 410
  bottom: 820
glare:
  threshold: 200
enhance: true
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	opts, err := LoadCalibration(path)
	require.NoError(t, err)

	require.True(t, opts.FlipHorizontal)
	require.Equal(t, -12.5, opts.RotateDegrees)
	require.Equal(t, &imaging.CropRegion{Left: 10, Top: 20, Right: 410, Bottom: 820}, opts.Crop)
	require.Equal(t, 200.0, opts.Glare.Threshold)
	// Unset keys keep their defaults
	require.Equal(t, 0.7, opts.Glare.Reduction)
	require.True(t, opts.ReduceGlare)
	require.True(t, opts.Enhance)
	require.Equal(t, 1.3, opts.Enhancement.Brightness)
	require.Equal(t, imaging.DefaultJPEGQuality, opts.JPEGQuality)
}

func TestLoadCalibration_DisableCrop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.yaml")
	require.NoError(t, os.WriteFile(path, []byte("crop: null\n"), 0o644))

	opts, err := LoadCalibration(path)
	require.NoError(t, err)
	require.Nil(t, opts.Crop)
}

func TestLoadCalibration_Invalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("rotate_degrees: [1, 2\n"), 0o644))
	_, err := LoadCalibration(bad)
	require.Error(t, err)

	quality := filepath.Join(dir, "quality.yaml")
	require.NoError(t, os.WriteFile(quality, []byte("jpeg_quality: 0\n"), 0o644))
	_, err = LoadCalibration(quality)
	require.Error(t, err)
}

func TestLoad_WithCalibrationFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rotate_degrees: 40\n"), 0o644))
	setEnv(t, map[string]string{"OIL_CALIBRATION_FILE": path})

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 40.0, cfg.Transform.RotateDegrees)
	require.Equal(t, path, cfg.CalibrationFile)
}
