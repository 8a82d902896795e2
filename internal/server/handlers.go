package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/oukeidos/xraylens/internal/analysis"
	"github.com/oukeidos/xraylens/internal/apperrors"
	"github.com/oukeidos/xraylens/internal/language"
	"github.com/oukeidos/xraylens/internal/llm"
)

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap renders handler errors as {"error": msg} with a status derived from
// the error kind. Internal causes never reach the client.
func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			writeError(w, err)
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := apperrors.MsgUnexpected
	if kind, ok := apperrors.KindOf(err); ok {
		status = apperrors.HTTPStatus(kind)
		msg = apperrors.PublicMessage(err)
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		status = http.StatusRequestEntityTooLarge
		msg = fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func (r *Router) decode(w http.ResponseWriter, req *http.Request, v any) error {
	body := http.MaxBytesReader(w, req.Body, r.opts.MaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return apperrors.New(apperrors.KindValidation, "invalid JSON body", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return apperrors.Validation("invalid JSON body: trailing data")
	}
	return nil
}

type usageResponse struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type analysisResponse struct {
	RequestID string        `json:"request_id"`
	Mode      analysis.Mode `json:"mode"`
	Language  string        `json:"language"`
	Model     string        `json:"model"`
	Attempts  int           `json:"attempts"`
	Text      string        `json:"text"`
	Usage     usageResponse `json:"usage"`
}

func newAnalysisResponse(res *analysis.Result) analysisResponse {
	return analysisResponse{
		RequestID: res.RequestID,
		Mode:      res.Mode,
		Language:  res.Language.ID,
		Model:     res.Model,
		Attempts:  res.Attempts,
		Text:      res.Text,
		Usage:     toUsage(res.Usage),
	}
}

func toUsage(u llm.Usage) usageResponse {
	return usageResponse{PromptTokens: u.PromptTokens, CompletionTokens: u.CompletionTokens, TotalTokens: u.TotalTokens}
}

// POST /v1/analyze
// Body: {"image": "<http(s) URL or data URI>", "prompt": "...", "language": "hindi"}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Image    string `json:"image"`
		Prompt   string `json:"prompt"`
		Language string `json:"language"`
	}
	if err := r.decode(w, req, &body); err != nil {
		return err
	}
	res, err := r.svc.AnalyzeDetailed(req.Context(), analysis.Request{
		ImageSource: body.Image,
		Prompt:      body.Prompt,
		Language:    body.Language,
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, newAnalysisResponse(res))
}

// POST /v1/translate
// Body: {"text": "<prior analysis>", "language": "marathi"}
func (r *Router) handleTranslate(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := r.decode(w, req, &body); err != nil {
		return err
	}
	res, err := r.svc.AnalyzeDetailed(req.Context(), analysis.Request{Prompt: body.Text, Language: body.Language})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, newAnalysisResponse(res))
}

// GET /v1/connectivity
func (r *Router) handleConnectivity(w http.ResponseWriter, req *http.Request) error {
	if _, err := r.svc.CheckConnectivity(req.Context()); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]bool{"connected": true})
}

type languageResponse struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// GET /v1/languages
func (r *Router) handleLanguages(w http.ResponseWriter, _ *http.Request) error {
	langs := language.Supported()
	out := make([]languageResponse, 0, len(langs))
	for _, l := range langs {
		out = append(out, languageResponse{ID: l.ID, Code: l.Code, Name: l.Name})
	}
	return writeJSON(w, http.StatusOK, out)
}
