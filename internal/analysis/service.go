package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oukeidos/xraylens/internal/apperrors"
	"github.com/oukeidos/xraylens/internal/imaging"
	"github.com/oukeidos/xraylens/internal/language"
	"github.com/oukeidos/xraylens/internal/llm"
	"github.com/oukeidos/xraylens/internal/logger"
	"github.com/oukeidos/xraylens/internal/metrics"
	"github.com/oukeidos/xraylens/internal/retry"
	"github.com/rivo/uniseg"
)

// DefaultMaxPromptGraphemes caps user prompt length in user-perceived characters.
const DefaultMaxPromptGraphemes = 4000

type Mode string

const (
	ModeText  Mode = "text"
	ModeImage Mode = "image"
)

// Request is one analysis or translation. An empty ImageSource selects
// text-only mode; an empty Language means English.
type Request struct {
	ImageSource string
	Prompt      string
	Language    string
}

// Result is the model's markdown reply with accounting details.
type Result struct {
	RequestID string
	Mode      Mode
	Language  language.Language
	Text      string
	Usage     llm.Usage
	Attempts  int
	Model     string
	Duration  time.Duration
}

// Service turns requests into model calls. It holds no per-request state and
// is safe for concurrent use.
type Service struct {
	Generator llm.Generator
	Loader    imaging.Loader
	Policy    retry.Policy

	MaxPromptGraphemes int
	// MaxOutputTokens caps each reply; zero leaves the provider default.
	MaxOutputTokens int

	// Sleep and Jitter override the backoff timer and its random component.
	Sleep  func(ctx context.Context, d time.Duration) error
	Jitter func() time.Duration
}

func NewService(gen llm.Generator, loader imaging.Loader, policy retry.Policy) *Service {
	return &Service{
		Generator:          gen,
		Loader:             loader,
		Policy:             policy,
		MaxPromptGraphemes: DefaultMaxPromptGraphemes,
	}
}

// Analyze returns the model's markdown reply for req.
func (s *Service) Analyze(ctx context.Context, req Request) (string, error) {
	res, err := s.AnalyzeDetailed(ctx, req)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// Translate asks for text, typically a prior analysis, in another language.
func (s *Service) Translate(ctx context.Context, text, lang string) (string, error) {
	return s.Analyze(ctx, Request{Prompt: text, Language: lang})
}

// AnalyzeDetailed is Analyze with usage and attempt accounting.
func (s *Service) AnalyzeDetailed(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res := &Result{RequestID: uuid.NewString(), Mode: ModeText}
	if strings.TrimSpace(req.ImageSource) != "" {
		res.Mode = ModeImage
	}
	if s.Generator != nil {
		res.Model = s.Generator.ModelID()
	}
	log := logger.L().With("request_id", res.RequestID, "mode", res.Mode)

	err := s.run(ctx, req, res, log)
	res.Duration = time.Since(start)
	metrics.AnalysisDurationSeconds.WithLabelValues(string(res.Mode), outcome(err)).Observe(res.Duration.Seconds())
	if err != nil {
		log.Error("Analysis failed", "error", err, "cause", causeOf(err), "attempts", res.Attempts)
		return nil, err
	}
	log.Info("Analysis completed",
		"language", res.Language.ID,
		"attempts", res.Attempts,
		"usage_in", res.Usage.PromptTokens,
		"usage_out", res.Usage.CompletionTokens,
		"duration", res.Duration.Round(time.Millisecond),
	)
	return res, nil
}

func (s *Service) run(ctx context.Context, req Request, res *Result, log *slog.Logger) error {
	if s.Generator == nil {
		return apperrors.New(apperrors.KindUnexpected, "", fmt.Errorf("analysis service has no model client"))
	}

	lang, err := language.Resolve(req.Language)
	if err != nil {
		return apperrors.Validation(err.Error())
	}
	res.Language = lang

	prompt := strings.TrimSpace(req.Prompt)
	if err := s.validatePrompt(prompt, res.Mode); err != nil {
		return err
	}

	llmReq := llm.Request{MaxOutputTokens: s.MaxOutputTokens}
	switch res.Mode {
	case ModeImage:
		if s.Loader == nil {
			return apperrors.New(apperrors.KindUnexpected, "", fmt.Errorf("analysis service has no image loader"))
		}
		// The image is loaded once, before any model call.
		img, err := s.Loader.Load(ctx, req.ImageSource)
		if err != nil {
			return normalizeError(ctx, err)
		}
		log.Debug("Image loaded", "mime_type", img.MIMEType, "bytes", img.ByteSize)
		if prompt == "" {
			prompt = DefaultImagePrompt
		}
		llmReq.Parts = []llm.Part{
			llm.TextPart(imageInstruction(prompt, lang)),
			llm.ImagePart(img.MIMEType, img.Payload),
		}
	default:
		llmReq.Parts = []llm.Part{llm.TextPart(textInstruction(prompt, lang))}
	}

	retrier := &retry.Retrier{
		Policy: s.policy(),
		Sleep:  s.Sleep,
		Jitter: s.Jitter,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			metrics.RetriesTotal.Inc()
			log.Warn("Model call failed, retrying", "attempt", attempt, "delay", delay.Round(time.Millisecond), "error", err)
		},
	}
	resp, err := retry.Do(ctx, retrier, func(ctx context.Context) (*llm.Response, error) {
		res.Attempts++
		resp, err := s.Generator.Generate(ctx, llmReq)
		metrics.ModelAttemptsTotal.WithLabelValues(outcome(err)).Inc()
		return resp, err
	})
	if err != nil {
		if apperrors.Is(err, apperrors.KindRetriesExhausted) {
			metrics.RetriesExhaustedTotal.Inc()
		}
		return normalizeError(ctx, err)
	}
	if resp == nil {
		return apperrors.EmptyResponse()
	}
	res.Text = resp.Text
	res.Usage = resp.Usage
	return nil
}

func (s *Service) validatePrompt(prompt string, mode Mode) error {
	if prompt == "" && mode == ModeText {
		return apperrors.Validation("a prompt is required when no image is provided")
	}
	limit := s.MaxPromptGraphemes
	if limit <= 0 {
		limit = DefaultMaxPromptGraphemes
	}
	if n := uniseg.GraphemeClusterCount(prompt); n > limit {
		return apperrors.Validation(fmt.Sprintf("prompt is too long: %d characters (max %d)", n, limit))
	}
	return nil
}

func (s *Service) policy() retry.Policy {
	if s.Policy.MaxAttempts < 1 {
		return retry.DefaultPolicy()
	}
	return s.Policy
}

// causeOf returns the internal cause for logs; it is never shown to users.
func causeOf(err error) string {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && appErr.Cause != nil {
		return appErr.Cause.Error()
	}
	return ""
}
