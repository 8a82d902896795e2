package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/oukeidos/xraylens/internal/apperrors"
	"github.com/oukeidos/xraylens/internal/httpclient"
	"github.com/oukeidos/xraylens/internal/llm"
	"google.golang.org/api/option"
)

// Client handles communication with the Gemini API.
type Client struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
	timeout   time.Duration
}

var _ llm.Generator = (*Client)(nil)

// NewClient creates a new Gemini client.
func NewClient(ctx context.Context, apiKey string, modelName string) (*Client, error) {
	// option.WithHTTPClient breaks the API key header injection in genai, so
	// timeouts are enforced via context in Generate.
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &Client{
		client:    client,
		model:     client.GenerativeModel(modelName),
		modelName: modelName,
		timeout:   httpclient.DefaultTimeout,
	}, nil
}

// SetTimeout bounds each Generate call. Non-positive values restore the default.
func (c *Client) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = httpclient.DefaultTimeout
	}
	c.timeout = d
}

// Close closes the underlying genai client.
func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) ModelID() string {
	return c.modelName
}

// Generate sends the parts to Gemini and returns the combined text.
func (c *Client) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.attemptTimeout())
	defer cancel()

	parts, err := toGenaiParts(req.Parts)
	if err != nil {
		return nil, err
	}

	model := c.model
	if req.MaxOutputTokens > 0 {
		clone := *c.model
		clone.SetMaxOutputTokens(int32(req.MaxOutputTokens))
		model = &clone
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, classifyGeminiError(err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, nil
	}

	text, err := extractResponseText(resp)
	if err != nil {
		return nil, apperrors.New(apperrors.KindEmptyResponse, "", err)
	}

	out := &llm.Response{Text: text}
	if resp.UsageMetadata != nil {
		out.Usage = llm.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}

func (c *Client) attemptTimeout() time.Duration {
	if c.timeout <= 0 {
		return httpclient.DefaultTimeout
	}
	return c.timeout
}

// toGenaiParts maps text to genai.Text and inline images to genai.Blob.
func toGenaiParts(parts []llm.Part) ([]genai.Part, error) {
	if len(parts) == 0 {
		return nil, apperrors.New(apperrors.KindBadRequest, "Gemini request has no content.", nil)
	}
	out := make([]genai.Part, 0, len(parts))
	for i, p := range parts {
		if !p.IsImage() {
			out = append(out, genai.Text(p.Text))
			continue
		}
		data, err := base64.StdEncoding.DecodeString(p.Image.Data)
		if err != nil {
			return nil, apperrors.Encoding("malformed image payload", fmt.Errorf("decode part %d: %w", i, err))
		}
		out = append(out, genai.Blob{MIMEType: p.Image.MIMEType, Data: data})
	}
	return out, nil
}

func extractResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("no response received from Gemini")
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
			continue
		}
		var combined string
		for _, part := range candidate.Content.Parts {
			text, ok := part.(genai.Text)
			if !ok {
				continue
			}
			combined += string(text)
		}
		if combined != "" {
			return combined, nil
		}
	}
	return "", fmt.Errorf("no text parts found in Gemini response")
}
