// Package analyzer asks an Anthropic vision model to read the gauge in a
// processed frame.
package analyzer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"github.com/ironsheep/oil-level-monitor/internal/config"
	"github.com/ironsheep/oil-level-monitor/internal/imaging"
)

// ErrEmptyResponse is returned when the model answers without any text.
var ErrEmptyResponse = errors.New("model returned no text")

// Analyzer sends one image and one prompt per call. Requests are made once;
// the SDK's automatic retries are disabled.
type Analyzer struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
	logger    zerolog.Logger
}

// New creates an analyzer from cfg. Extra options are applied after the
// defaults (tests use option.WithBaseURL).
func New(cfg config.AnthropicConfig, logger zerolog.Logger, opts ...option.RequestOption) *Analyzer {
	base := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = config.DefaultMaxTokens
	}
	model := cfg.Model
	if model == "" {
		model = config.DefaultModel
	}

	return &Analyzer{
		client:    anthropic.NewClient(append(base, opts...)...),
		model:     model,
		maxTokens: int64(maxTokens),
		timeout:   cfg.Timeout,
		logger:    logger.With().Str("component", "analyzer").Logger(),
	}
}

// Model returns the model identifier requests are sent to.
func (a *Analyzer) Model() string { return a.model }

// Analyze sends frame and prompt in a single user message at temperature 0
// and returns the text of the answer.
func (a *Analyzer) Analyze(ctx context.Context, frame *imaging.ProcessedFrame, prompt string) (string, error) {
	if frame == nil || len(frame.JPEG) == 0 {
		return "", fmt.Errorf("no image to analyze")
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	encoded := base64.StdEncoding.EncodeToString(frame.JPEG)

	a.logger.Debug().
		Str("model", a.model).
		Int("image_bytes", len(frame.JPEG)).
		Int("width", frame.Width).
		Int("height", frame.Height).
		Msg("Sending frame to model")

	start := time.Now()
	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   a.maxTokens,
		Temperature: anthropic.Float(0),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(frame.MimeType(), encoded),
				anthropic.NewTextBlock(prompt),
			),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to call model %s: %w", a.model, err)
	}

	answer, ok := firstText(msg.Content)
	if !ok {
		return "", ErrEmptyResponse
	}

	a.logger.Info().
		Dur("elapsed", time.Since(start)).
		Int64("input_tokens", msg.Usage.InputTokens).
		Int64("output_tokens", msg.Usage.OutputTokens).
		Str("stop_reason", string(msg.StopReason)).
		Msg("Model answered")

	return answer, nil
}

// firstText returns the first non-blank text block. Later blocks are ignored.
func firstText(blocks []anthropic.ContentBlockUnion) (string, bool) {
	for _, block := range blocks {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			return block.Text, true
		}
	}
	return "", false
}
