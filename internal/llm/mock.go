package llm

import (
	"context"
	"sync"
)

// MockResult is one scripted reply.
type MockResult struct {
	Response *Response
	Err      error
}

// MockClient replays Results in order, repeating the last one once they run
// out, and records every request.
type MockClient struct {
	Model   string
	Results []MockResult

	mu       sync.Mutex
	requests []Request
}

var _ Generator = (*MockClient)(nil)

// NewMockText returns a mock that always answers with text.
func NewMockText(text string) *MockClient {
	return &MockClient{Results: []MockResult{{Response: &Response{Text: text}}}}
}

func (m *MockClient) Generate(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := len(m.requests)
	m.requests = append(m.requests, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(m.Results) == 0 {
		return nil, nil
	}
	if idx >= len(m.Results) {
		idx = len(m.Results) - 1
	}
	r := m.Results[idx]
	return r.Response, r.Err
}

func (m *MockClient) ModelID() string {
	if m.Model == "" {
		return "mock"
	}
	return m.Model
}

// Requests returns a copy of the recorded requests.
func (m *MockClient) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Calls returns the number of Generate invocations.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
