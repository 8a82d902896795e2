package httpclient

import (
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const (
	// DefaultTimeout bounds a single image fetch or model call.
	DefaultTimeout = 2 * time.Minute
	// MaxResponseBytes caps response bodies; X-ray exports rarely exceed a few MiB.
	MaxResponseBytes = 20 * 1024 * 1024

	MaxIdleConns          = 50
	MaxIdleConnsPerHost   = 10
	IdleConnTimeout       = 90 * time.Second
	TLSHandshakeTimeout   = 15 * time.Second
	ExpectContinueTimeout = 2 * time.Second
)

var (
	defaultClient     *http.Client
	defaultClientOnce sync.Once
	overrideClient    *http.Client
)

// NewClient returns an http.Client with tuned transport and the given timeout.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          MaxIdleConns,
			MaxIdleConnsPerHost:   MaxIdleConnsPerHost,
			IdleConnTimeout:       IdleConnTimeout,
			TLSHandshakeTimeout:   TLSHandshakeTimeout,
			ExpectContinueTimeout: ExpectContinueTimeout,
		},
	}
}

// GetDefaultClient returns the process-wide client.
func GetDefaultClient() *http.Client {
	if overrideClient != nil {
		return overrideClient
	}
	defaultClientOnce.Do(func() {
		defaultClient = NewClient(DefaultTimeout)
	})
	return defaultClient
}

// SetDefaultClientForTesting overrides the shared client and returns a restore func.
func SetDefaultClientForTesting(client *http.Client) func() {
	prev := overrideClient
	overrideClient = client
	return func() {
		overrideClient = prev
	}
}

// ErrTooLarge is returned by DoAndRead when the body exceeds the limit.
type ErrTooLarge struct {
	Limit int64
}

func (e *ErrTooLarge) Error() string {
	return fmt.Sprintf("response body too large (limit %d bytes)", e.Limit)
}

// DoAndRead performs req, reads at most limit bytes of the body and always
// closes it. A non-positive limit means MaxResponseBytes.
func DoAndRead(client *http.Client, req *http.Request, limit int64) ([]byte, *http.Response, error) {
	if limit <= 0 {
		limit = MaxResponseBytes
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.ContentLength > limit {
		return nil, resp, &ErrTooLarge{Limit: limit}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, resp, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, resp, &ErrTooLarge{Limit: limit}
	}
	return body, resp, nil
}
