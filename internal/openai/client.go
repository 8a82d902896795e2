package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/oukeidos/xraylens/internal/apperrors"
	"github.com/oukeidos/xraylens/internal/httpclient"
	"github.com/oukeidos/xraylens/internal/llm"
	goopenai "github.com/sashabaranov/go-openai"
)

const DefaultBaseURL = "https://api.openai.com/v1"

type Client struct {
	api   *goopenai.Client
	model string
}

var _ llm.Generator = (*Client)(nil)

func NewClient(apiKey, model string) *Client {
	return NewClientWithBaseURL(apiKey, model, DefaultBaseURL)
}

// NewClientWithBaseURL targets an OpenAI-compatible endpoint.
func NewClientWithBaseURL(apiKey, model, baseURL string) *Client {
	return NewClientWithHTTPClient(apiKey, model, baseURL, httpclient.GetDefaultClient())
}

// NewClientWithHTTPClient is NewClientWithBaseURL with a caller-supplied
// transport, typically one carrying the configured request timeout.
func NewClientWithHTTPClient(apiKey, model, baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = httpclient.GetDefaultClient()
	}
	cfg := goopenai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	cfg.HTTPClient = hc
	return &Client{
		api:   goopenai.NewClientWithConfig(cfg),
		model: model,
	}
}

// ModelID returns the configured model identifier.
func (c *Client) ModelID() string {
	return c.model
}

func (c *Client) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	chatReq, err := buildChatRequest(c.model, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.api.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}

	slog.Debug("OpenAI API Response", "usage_total", resp.Usage.TotalTokens, "response_id", resp.ID)

	if len(resp.Choices) == 0 {
		return nil, nil
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.New(apperrors.KindEmptyResponse, "", fmt.Errorf("finish_reason=%s", resp.Choices[0].FinishReason))
	}
	return &llm.Response{
		Text: text,
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// buildChatRequest sends text-only requests as plain content and anything
// with an image as multi-part content with a data URL.
func buildChatRequest(model string, req llm.Request) (goopenai.ChatCompletionRequest, error) {
	if len(req.Parts) == 0 {
		return goopenai.ChatCompletionRequest{}, apperrors.New(apperrors.KindBadRequest, "OpenAI request has no content.", nil)
	}

	msg := goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser}
	if !req.HasImage() {
		texts := make([]string, 0, len(req.Parts))
		for _, p := range req.Parts {
			texts = append(texts, p.Text)
		}
		msg.Content = strings.Join(texts, "\n")
	} else {
		for _, p := range req.Parts {
			if !p.IsImage() {
				msg.MultiContent = append(msg.MultiContent, goopenai.ChatMessagePart{
					Type: goopenai.ChatMessagePartTypeText,
					Text: p.Text,
				})
				continue
			}
			msg.MultiContent = append(msg.MultiContent, goopenai.ChatMessagePart{
				Type: goopenai.ChatMessagePartTypeImageURL,
				ImageURL: &goopenai.ChatMessageImageURL{
					URL:    "data:" + p.Image.MIMEType + ";base64," + p.Image.Data,
					Detail: goopenai.ImageURLDetailHigh,
				},
			})
		}
	}

	chatReq := goopenai.ChatCompletionRequest{
		Model:    model,
		Messages: []goopenai.ChatCompletionMessage{msg},
	}
	if req.MaxOutputTokens > 0 {
		// Reasoning models (o1/o3/o4/gpt-5*) reject max_tokens.
		if isReasoningModel(model) {
			chatReq.MaxCompletionTokens = req.MaxOutputTokens
		} else {
			chatReq.MaxTokens = req.MaxOutputTokens
		}
	}
	return chatReq, nil
}

func isReasoningModel(model string) bool {
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

func classifyOpenAIError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return apperrors.New(apperrors.KindCanceled, "", err)
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		cause := fmt.Errorf("openai status=%d type=%s code=%v: %w", apiErr.HTTPStatusCode, apiErr.Type, apiErr.Code, err)
		return classifyStatus(apiErr.HTTPStatusCode, isOpenAIModelNotFound(apiErr), cause)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		cause := fmt.Errorf("openai status=%d: %w", reqErr.HTTPStatusCode, err)
		return classifyStatus(reqErr.HTTPStatusCode, false, cause)
	}

	return apperrors.New(
		apperrors.KindTransient,
		"OpenAI request failed due to a temporary network/runtime error.",
		fmt.Errorf("request failed: %w", err),
	)
}

func classifyStatus(statusCode int, modelNotFound bool, cause error) error {
	switch statusCode {
	case http.StatusTooManyRequests:
		return apperrors.New(
			apperrors.KindRateLimit,
			"OpenAI API rate limit exceeded (429): please try again later.",
			cause,
		)
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.New(
			apperrors.KindAuth,
			fmt.Sprintf("OpenAI API authentication/authorization failed (%d): please verify your API key and permissions.", statusCode),
			cause,
		)
	case http.StatusNotFound:
		if modelNotFound {
			return apperrors.New(
				apperrors.KindBadRequest,
				"The model does not exist or you do not have access to it.",
				cause,
			)
		}
		return apperrors.New(apperrors.KindBadRequest, "OpenAI resource not found (404).", cause)
	default:
		if statusCode >= 500 {
			return apperrors.New(
				apperrors.KindTransient,
				fmt.Sprintf("OpenAI server error (%d): please try again later.", statusCode),
				cause,
			)
		}
		if statusCode == 0 {
			return apperrors.New(apperrors.KindTransient, "OpenAI request failed due to a temporary network/runtime error.", cause)
		}
		return apperrors.New(
			apperrors.KindBadRequest,
			fmt.Sprintf("OpenAI API error (%d).", statusCode),
			cause,
		)
	}
}

func isOpenAIModelNotFound(apiErr *goopenai.APIError) bool {
	needle := strings.ToLower(fmt.Sprint(apiErr.Code) + " " + apiErr.Type + " " + apiErr.Message)
	if strings.Contains(needle, "model_not_found") {
		return true
	}
	return strings.Contains(needle, "does not exist or you do not have access to it")
}
