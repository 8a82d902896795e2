package imaging

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/oukeidos/xraylens/internal/apperrors"
)

// ParseDataURL accepts the "data:<mime>;base64,<payload>" form produced by
// browser file readers.
func ParseDataURL(s string) (*EncodedImage, error) {
	if !IsDataURL(s) {
		return nil, apperrors.Encoding("malformed encoded image", fmt.Errorf("missing data: scheme"))
	}
	payload, err := stripPrefix(s)
	if err != nil {
		return nil, err
	}
	header := s[len("data:") : len(s)-len(payload)-1]
	params := strings.Split(header, ";")
	if len(params) < 2 || !strings.EqualFold(params[len(params)-1], "base64") {
		return nil, apperrors.Encoding("malformed encoded image", fmt.Errorf("data URI is not base64"))
	}

	payload = strings.TrimSpace(payload)
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, apperrors.Encoding("malformed encoded image", fmt.Errorf("decode payload: %w", err))
	}
	if len(data) == 0 {
		return nil, apperrors.Encoding("the image is empty", nil)
	}
	return &EncodedImage{
		MIMEType: normalizeMIME(params[0], data),
		Payload:  payload,
		ByteSize: len(data),
	}, nil
}

// IsDataURL reports whether s uses the data: scheme.
func IsDataURL(s string) bool {
	return len(s) >= 5 && strings.EqualFold(s[:5], "data:")
}
