package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/oukeidos/xraylens/internal/apperrors"
	"github.com/oukeidos/xraylens/internal/llm"
	goopenai "github.com/sashabaranov/go-openai"
)

const successBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "## Findings\nNo fracture."}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 120, "completion_tokens": 30, "total_tokens": 150}
}`

func TestClient_Generate_Success(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("invalid request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, successBody)
	}))
	defer server.Close()

	client := NewClientWithBaseURL("test-key", "gpt-4o", server.URL)
	resp, err := client.Generate(context.Background(), llm.Request{Parts: []llm.Part{
		llm.TextPart("describe"),
		llm.ImagePart("image/png", "AQID"),
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "## Findings\nNo fracture." {
		t.Fatalf("unexpected text %q", resp.Text)
	}
	if resp.Usage.PromptTokens != 120 || resp.Usage.CompletionTokens != 30 || resp.Usage.TotalTokens != 150 {
		t.Fatalf("unexpected usage %+v", resp.Usage)
	}

	if captured["model"] != "gpt-4o" {
		t.Fatalf("unexpected model %v", captured["model"])
	}
	messages := captured["messages"].([]any)
	content := messages[0].(map[string]any)["content"].([]any)
	if len(content) != 2 {
		t.Fatalf("expected 2 content parts, got %d", len(content))
	}
	image := content[1].(map[string]any)["image_url"].(map[string]any)
	if image["url"] != "data:image/png;base64,AQID" {
		t.Fatalf("unexpected image url %v", image["url"])
	}
}

func TestClient_Generate_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "chatcmpl-2", "choices": []}`)
	}))
	defer server.Close()

	client := NewClientWithBaseURL("test-key", "gpt-4o", server.URL)
	resp, err := client.Generate(context.Background(), llm.Request{Parts: []llm.Part{llm.TextPart("ping")}})
	if err != nil || resp != nil {
		t.Fatalf("expected nil response and nil error, got %v, %v", resp, err)
	}
}

func TestClient_Generate_Errors(t *testing.T) {
	tests := []struct {
		name           string
		status         int
		responseBody   string
		kind           apperrors.Kind
		expectedErrMsg string
		sensitiveMark  string
	}{
		{
			name:           "429 Too Many Requests",
			status:         http.StatusTooManyRequests,
			responseBody:   `{"error": {"message": "Rate limit reached: SECRET_PROMPT", "type": "rate_limit_error", "code": "rate_limit_exceeded"}}`,
			kind:           apperrors.KindRateLimit,
			expectedErrMsg: "OpenAI API rate limit exceeded (429)",
			sensitiveMark:  "SECRET_PROMPT",
		},
		{
			name:           "401 Unauthorized",
			status:         http.StatusUnauthorized,
			responseBody:   `{"error": {"message": "Invalid API Key: SECRET_PROMPT", "type": "auth_error"}}`,
			kind:           apperrors.KindAuth,
			expectedErrMsg: "OpenAI API authentication/authorization failed (401)",
			sensitiveMark:  "SECRET_PROMPT",
		},
		{
			name:           "404 model not found",
			status:         http.StatusNotFound,
			responseBody:   `{"error": {"message": "The model does not exist", "type": "invalid_request_error", "code": "model_not_found"}}`,
			kind:           apperrors.KindBadRequest,
			expectedErrMsg: "The model does not exist or you do not have access to it.",
		},
		{
			name:           "500 Internal Server Error",
			status:         http.StatusInternalServerError,
			responseBody:   "server down SECRET_PROMPT",
			kind:           apperrors.KindTransient,
			expectedErrMsg: "OpenAI server error (500)",
			sensitiveMark:  "SECRET_PROMPT",
		},
		{
			name:           "503 overloaded",
			status:         http.StatusServiceUnavailable,
			responseBody:   `{"error": {"message": "overloaded", "type": "server_error"}}`,
			kind:           apperrors.KindTransient,
			expectedErrMsg: "OpenAI server error (503)",
		},
		{
			name:           "403 Forbidden",
			status:         http.StatusForbidden,
			responseBody:   "restricted SECRET_PROMPT",
			kind:           apperrors.KindAuth,
			expectedErrMsg: "OpenAI API authentication/authorization failed (403)",
			sensitiveMark:  "SECRET_PROMPT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.responseBody)
			}))
			defer server.Close()

			client := NewClientWithBaseURL("test-key", "test-model", server.URL)
			_, err := client.Generate(context.Background(), llm.Request{Parts: []llm.Part{llm.TextPart("hi")}})
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !apperrors.Is(err, tt.kind) {
				t.Errorf("Expected kind %s, got %v", tt.kind, err)
			}
			if !strings.Contains(err.Error(), tt.expectedErrMsg) {
				t.Errorf("Expected error message to contain %q, got %q", tt.expectedErrMsg, err.Error())
			}
			if tt.sensitiveMark != "" && strings.Contains(err.Error(), tt.sensitiveMark) {
				t.Errorf("Expected error message to redact sensitive content, got %q", err.Error())
			}
		})
	}
}

func TestBuildChatRequest(t *testing.T) {
	t.Run("text only uses plain content", func(t *testing.T) {
		req, err := buildChatRequest("gpt-4o", llm.Request{Parts: []llm.Part{llm.TextPart("translate")}, MaxOutputTokens: 8})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		msg := req.Messages[0]
		if msg.Content != "translate" || len(msg.MultiContent) != 0 {
			t.Fatalf("unexpected message %+v", msg)
		}
		if req.MaxTokens != 8 || req.MaxCompletionTokens != 0 {
			t.Fatalf("expected max_tokens for chat models, got %+v", req)
		}
	})

	t.Run("reasoning models use max completion tokens", func(t *testing.T) {
		req, err := buildChatRequest("o4-mini", llm.Request{Parts: []llm.Part{llm.TextPart("x")}, MaxOutputTokens: 8})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if req.MaxCompletionTokens != 8 || req.MaxTokens != 0 {
			t.Fatalf("expected max_completion_tokens, got %+v", req)
		}
	})

	t.Run("image uses multi content", func(t *testing.T) {
		req, err := buildChatRequest("gpt-4o", llm.Request{Parts: []llm.Part{
			llm.TextPart("describe"),
			llm.ImagePart("image/jpeg", "AAAA"),
		}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		parts := req.Messages[0].MultiContent
		if len(parts) != 2 || parts[1].Type != goopenai.ChatMessagePartTypeImageURL {
			t.Fatalf("unexpected parts %+v", parts)
		}
		if parts[1].ImageURL.URL != "data:image/jpeg;base64,AAAA" {
			t.Fatalf("unexpected url %q", parts[1].ImageURL.URL)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if _, err := buildChatRequest("gpt-4o", llm.Request{}); !apperrors.Is(err, apperrors.KindBadRequest) {
			t.Fatalf("expected bad request error, got %v", err)
		}
	})
}

func TestClient_Generate_AttemptTimeoutIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	hc := &http.Client{Timeout: 50 * time.Millisecond}
	client := NewClientWithHTTPClient("test-key", "test-model", server.URL, hc)
	_, err := client.Generate(context.Background(), llm.Request{Parts: []llm.Part{llm.TextPart("hi")}})
	if !apperrors.Is(err, apperrors.KindTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if !apperrors.IsRetryable(err) {
		t.Fatalf("expected attempt timeout to be retryable, got %v", err)
	}
}
