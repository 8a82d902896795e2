package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/oukeidos/xraylens/internal/apperrors"
	"github.com/oukeidos/xraylens/internal/httpclient"
	"github.com/oukeidos/xraylens/internal/version"
)

// Loader turns an image source into an encoded image.
type Loader interface {
	Load(ctx context.Context, source string) (*EncodedImage, error)
}

// Fetcher loads images from http(s) URLs, data URIs and, when enabled,
// local files.
type Fetcher struct {
	Client   *http.Client
	MaxBytes int64
	// AllowLocalFiles permits plain paths and file:// URLs. Keep it off for
	// sources supplied by remote callers.
	AllowLocalFiles bool
	// AllowPrivateHosts permits URLs that resolve to loopback, private or
	// link-local addresses.
	AllowPrivateHosts bool

	guardOnce sync.Once
	guarded   *http.Client
}

var _ Loader = (*Fetcher)(nil)

// NewFetcher returns a Fetcher using the shared HTTP client. Local callers
// get files and internal hosts; remote callers get neither.
func NewFetcher(maxBytes int64, local bool) *Fetcher {
	return &Fetcher{
		Client:            httpclient.GetDefaultClient(),
		MaxBytes:          maxBytes,
		AllowLocalFiles:   local,
		AllowPrivateHosts: local,
	}
}

// Load fetches source and encodes it.
func (f *Fetcher) Load(ctx context.Context, source string) (*EncodedImage, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, apperrors.Validation("image source is empty")
	}
	if IsDataURL(source) {
		img, err := ParseDataURL(source)
		if err != nil {
			return nil, err
		}
		if int64(img.ByteSize) > f.limit() {
			return nil, tooLarge(f.limit())
		}
		return img, nil
	}

	u, err := url.Parse(source)
	if err == nil {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return f.fetchHTTP(ctx, u.String())
		case "file":
			return f.readFile(u.Path)
		case "":
		default:
			if len(u.Scheme) > 1 {
				return nil, apperrors.Fetch(fmt.Sprintf("unsupported image source scheme %q", u.Scheme), nil)
			}
			// Single-letter scheme: a Windows drive path.
		}
	}
	return f.readFile(source)
}

func (f *Fetcher) limit() int64 {
	if f.MaxBytes <= 0 {
		return MaxImageBytes
	}
	return f.MaxBytes
}

func (f *Fetcher) client() *http.Client {
	base := f.Client
	if base == nil {
		base = httpclient.GetDefaultClient()
	}
	if f.AllowPrivateHosts {
		return base
	}
	f.guardOnce.Do(func() {
		f.guarded = guardedClient(base)
	})
	return f.guarded
}

func (f *Fetcher) fetchHTTP(ctx context.Context, rawURL string) (*EncodedImage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, apperrors.Fetch("invalid image URL", err)
	}
	req.Header.Set("Accept", "image/*")
	req.Header.Set("User-Agent", version.UserAgent())

	body, resp, err := httpclient.DoAndRead(f.client(), req, f.limit())
	if resp != nil && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		return nil, apperrors.Fetch("failed to fetch image", fmt.Errorf("GET image: HTTP %d", resp.StatusCode))
	}
	if err != nil {
		var tl *httpclient.ErrTooLarge
		if errors.As(err, &tl) {
			return nil, tooLarge(tl.Limit)
		}
		if errors.Is(err, errBlockedHost) {
			return nil, apperrors.Fetch("image host is not allowed", err)
		}
		return nil, apperrors.Fetch("failed to fetch image", fmt.Errorf("GET image: %w", err))
	}
	return EncodeLimit(bytes.NewReader(body), resp.Header.Get("Content-Type"), f.limit())
}

func (f *Fetcher) readFile(path string) (*EncodedImage, error) {
	if !f.AllowLocalFiles {
		return nil, apperrors.Fetch("local image files are not allowed here", nil)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Fetch("failed to open image file", err)
	}
	defer file.Close()
	return EncodeLimit(file, mime.TypeByExtension(strings.ToLower(filepath.Ext(path))), f.limit())
}
