package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/oukeidos/xraylens/internal/analysis"
	"github.com/oukeidos/xraylens/internal/apperrors"
	"github.com/oukeidos/xraylens/internal/imaging"
	"github.com/oukeidos/xraylens/internal/llm"
	"github.com/oukeidos/xraylens/internal/retry"
)

const pngDataURL = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUg=="

func newTestRouter(gen *llm.MockClient, opts Options) http.Handler {
	return newTestRouterWithLoader(gen, &imaging.Fetcher{}, opts)
}

func newTestRouterWithLoader(gen *llm.MockClient, loader imaging.Loader, opts Options) http.Handler {
	svc := analysis.NewService(gen, loader, retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond})
	svc.Sleep = func(context.Context, time.Duration) error { return nil }
	return NewRouter(svc, opts)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid error body %q: %v", rec.Body.String(), err)
	}
	return body.Error
}

func TestHealthz(t *testing.T) {
	rec := do(t, newTestRouter(llm.NewMockText("ok"), Options{}), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	h := newTestRouter(llm.NewMockText("ok"), Options{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "6f1c2f4e-6a53-4d59-9a9e-2b8f6f0f4a11")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "6f1c2f4e-6a53-4d59-9a9e-2b8f6f0f4a11" {
		t.Fatalf("expected echoed request id, got %q", got)
	}
}

func TestLanguages(t *testing.T) {
	rec := do(t, newTestRouter(llm.NewMockText("ok"), Options{}), http.MethodGet, "/v1/languages", "")
	var langs []languageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &langs); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if len(langs) != 3 {
		t.Fatalf("expected 3 languages, got %+v", langs)
	}
	found := false
	for _, l := range langs {
		if l.ID == "hindi" && l.Code == "hi" {
			found = true
		}
	}
	if !found {
		t.Fatalf("hindi missing from %+v", langs)
	}
}

func TestAnalyze_DataURL(t *testing.T) {
	gen := llm.NewMockText("## Findings")
	h := newTestRouter(gen, Options{})

	rec := do(t, h, http.MethodPost, "/v1/analyze", `{"image": "`+pngDataURL+`", "prompt": "Check the ribs", "language": "hindi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var body analysisResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body.Text != "## Findings" || body.Mode != analysis.ModeImage || body.Language != "hindi" || body.Attempts != 1 {
		t.Fatalf("unexpected body %+v", body)
	}
	parts := gen.Requests()[0].Parts
	if len(parts) != 2 || parts[1].Image.MIMEType != "image/png" {
		t.Fatalf("unexpected model request %+v", parts)
	}
	if !strings.Contains(parts[0].Text, "Provide the analysis in Hindi language.") {
		t.Fatalf("missing directive in %q", parts[0].Text)
	}
}

func TestAnalyze_LocalFilesRejected(t *testing.T) {
	gen := llm.NewMockText("unused")
	rec := do(t, newTestRouter(gen, Options{}), http.MethodPost, "/v1/analyze", `{"image": "/etc/passwd", "prompt": "x"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if gen.Calls() != 0 {
		t.Fatalf("model must not be called")
	}
}

func TestAnalyze_ImageFetch404(t *testing.T) {
	images := httptest.NewServer(http.NotFoundHandler())
	defer images.Close()

	gen := llm.NewMockText("unused")
	loader := &imaging.Fetcher{Client: images.Client(), AllowPrivateHosts: true}
	rec := do(t, newTestRouterWithLoader(gen, loader, Options{}), http.MethodPost, "/v1/analyze", `{"image": "`+images.URL+`/chest.png", "prompt": "x"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "failed to fetch image" {
		t.Fatalf("unexpected message %q", msg)
	}
	if gen.Calls() != 0 {
		t.Fatalf("model must not be called")
	}
}

func TestAnalyze_ImageOnInternalHostRefused(t *testing.T) {
	hits := 0
	images := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.NotFound(w, r)
	}))
	defer images.Close()

	gen := llm.NewMockText("unused")
	rec := do(t, newTestRouter(gen, Options{}), http.MethodPost, "/v1/analyze", `{"image": "`+images.URL+`/admin", "prompt": "x"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "image host is not allowed" {
		t.Fatalf("unexpected message %q", msg)
	}
	if hits != 0 || gen.Calls() != 0 {
		t.Fatalf("expected no upstream traffic, got %d image hits and %d model calls", hits, gen.Calls())
	}
}

func TestAnalyze_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		msg  string
	}{
		{name: "unsupported language", body: `{"prompt": "x", "language": "klingon"}`, msg: "unsupported language: klingon"},
		{name: "empty request", body: `{}`, msg: "a prompt is required when no image is provided"},
		{name: "malformed json", body: `{"prompt": `, msg: "invalid JSON body"},
		{name: "unknown field", body: `{"promt": "x"}`, msg: "invalid JSON body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestRouter(llm.NewMockText("unused"), Options{}), http.MethodPost, "/v1/analyze", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if msg := decodeError(t, rec); msg != tt.msg {
				t.Fatalf("expected %q, got %q", tt.msg, msg)
			}
		})
	}
}

func TestAnalyze_BodyTooLarge(t *testing.T) {
	h := newTestRouter(llm.NewMockText("unused"), Options{MaxBodyBytes: 32})
	rec := do(t, h, http.MethodPost, "/v1/analyze", `{"prompt": "`+strings.Repeat("a", 64)+`"}`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestAnalyze_RetriesExhausted(t *testing.T) {
	gen := &llm.MockClient{Results: []llm.MockResult{{Err: apperrors.Transient(errors.New("503 SECRET"))}}}
	rec := do(t, newTestRouter(gen, Options{}), http.MethodPost, "/v1/analyze", `{"prompt": "x"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != apperrors.MsgRetriesExhausted {
		t.Fatalf("unexpected message %q", msg)
	}
	if gen.Calls() != 3 {
		t.Fatalf("expected 3 attempts, got %d", gen.Calls())
	}
}

func TestAnalyze_UnexpectedErrorIsHidden(t *testing.T) {
	gen := &llm.MockClient{Results: []llm.MockResult{{Err: errors.New("stack trace SECRET")}}}
	rec := do(t, newTestRouter(gen, Options{}), http.MethodPost, "/v1/analyze", `{"prompt": "x"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != apperrors.MsgUnexpected {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestTranslate(t *testing.T) {
	gen := llm.NewMockText("अनुवाद")
	rec := do(t, newTestRouter(gen, Options{}), http.MethodPost, "/v1/translate", `{"text": "No fracture.", "language": "mr"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var body analysisResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body.Text != "अनुवाद" || body.Mode != analysis.ModeText || body.Language != "marathi" {
		t.Fatalf("unexpected body %+v", body)
	}
	if gen.Requests()[0].HasImage() {
		t.Fatalf("translation must not carry an image")
	}
}

func TestConnectivity(t *testing.T) {
	rec := do(t, newTestRouter(llm.NewMockText("ok"), Options{}), http.MethodGet, "/v1/connectivity", "")
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte(`"connected":true`)) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	failing := &llm.MockClient{Results: []llm.MockResult{{Err: errors.New("dial tcp")}}}
	rec = do(t, newTestRouter(failing, Options{}), http.MethodGet, "/v1/connectivity", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != apperrors.MsgConnectivity {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(t, newTestRouter(llm.NewMockText("ok"), Options{}), http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestRouter(llm.NewMockText("ok"), Options{AllowedOrigins: []string{"http://localhost:3000"}})
	req := httptest.NewRequest(http.MethodOptions, "/v1/analyze", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("expected allowed origin header, got %q", got)
	}
}

func TestServe_Shutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, "127.0.0.1:0", http.NotFoundHandler())
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not shut down")
	}
}
