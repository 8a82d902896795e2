package imaging

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/oukeidos/xraylens/internal/apperrors"
	"github.com/oukeidos/xraylens/internal/httpclient"
)

// MaxImageBytes is the default upper bound for an encoded image.
const MaxImageBytes = httpclient.MaxResponseBytes

const octetStream = "application/octet-stream"

// EncodedImage is a transport-safe copy of an image. It belongs to the
// request that produced it and is dropped once the model call returns.
type EncodedImage struct {
	MIMEType string
	// Payload is standard base64 without any data-URI prefix.
	Payload  string
	ByteSize int
}

// DataURL renders the image as a data URI.
func (e *EncodedImage) DataURL() string {
	return "data:" + e.MIMEType + ";base64," + e.Payload
}

// Decode returns the raw image bytes.
func (e *EncodedImage) Decode() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(e.Payload)
	if err != nil {
		return nil, apperrors.Encoding("malformed image payload", err)
	}
	return data, nil
}

// Encode reads r completely and base64-encodes it. contentType is carried
// through unchanged apart from dropped parameters; when it is empty or
// generic the type is sniffed from the bytes.
func Encode(r io.Reader, contentType string) (*EncodedImage, error) {
	return EncodeLimit(r, contentType, MaxImageBytes)
}

// EncodeLimit is Encode with an explicit size bound.
func EncodeLimit(r io.Reader, contentType string, limit int64) (*EncodedImage, error) {
	if limit <= 0 {
		limit = MaxImageBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, apperrors.Encoding("the image could not be read", fmt.Errorf("read image: %w", err))
	}
	if len(data) == 0 {
		return nil, apperrors.Encoding("the image is empty", nil)
	}
	if int64(len(data)) > limit {
		return nil, tooLarge(limit)
	}

	mimeType := normalizeMIME(contentType, data)
	payload, err := stripPrefix("data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data))
	if err != nil {
		return nil, err
	}
	return &EncodedImage{
		MIMEType: mimeType,
		Payload:  payload,
		ByteSize: len(data),
	}, nil
}

func tooLarge(limit int64) error {
	if limit >= 1024*1024 {
		return apperrors.Encoding(fmt.Sprintf("the image exceeds the %d MiB limit", limit/(1024*1024)), nil)
	}
	return apperrors.Encoding(fmt.Sprintf("the image exceeds the %d byte limit", limit), nil)
}

// stripPrefix drops everything up to and including the first comma.
func stripPrefix(dataURL string) (string, error) {
	idx := strings.IndexByte(dataURL, ',')
	if idx < 0 {
		return "", apperrors.Encoding("malformed encoded image", fmt.Errorf("data URI delimiter not found"))
	}
	return dataURL[idx+1:], nil
}

// normalizeMIME keeps the declared media type without parameters. An empty
// or generic type is sniffed from data.
func normalizeMIME(contentType string, data []byte) string {
	mediaType := ""
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			mediaType = strings.ToLower(mt)
		}
	}
	if mediaType == "" || mediaType == octetStream {
		sniffed, _, err := mime.ParseMediaType(http.DetectContentType(data))
		if err == nil {
			mediaType = sniffed
		}
	}
	if mediaType == "" {
		mediaType = octetStream
	}
	return mediaType
}
