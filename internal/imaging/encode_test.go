package imaging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/oukeidos/xraylens/internal/apperrors"
)

// Minimal PNG signature followed by arbitrary bytes.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), []byte{0x00, 0x01, 0x02, 0xfe, 0xff, ','}...)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestEncode_RoundTrip(t *testing.T) {
	img, err := Encode(bytes.NewReader(pngBytes), "image/png")
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if strings.HasPrefix(img.Payload, "data:") || strings.Contains(img.Payload, ",") {
		t.Fatalf("payload leaked data URI prefix: %q", img.Payload)
	}
	if img.MIMEType != "image/png" {
		t.Fatalf("expected image/png, got %q", img.MIMEType)
	}
	if img.ByteSize != len(pngBytes) {
		t.Fatalf("expected byte size %d, got %d", len(pngBytes), img.ByteSize)
	}
	decoded, err := img.Decode()
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(decoded, pngBytes) {
		t.Fatalf("round trip mismatch: got %v, want %v", decoded, pngBytes)
	}
}

func TestEncode_ContentTypeHandling(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		want        string
	}{
		{name: "declared type kept", contentType: "image/jpeg", want: "image/jpeg"},
		{name: "parameters dropped", contentType: "image/png; charset=binary", want: "image/png"},
		{name: "empty is sniffed", contentType: "", want: "image/png"},
		{name: "octet stream is sniffed", contentType: "application/octet-stream", want: "image/png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Encode(bytes.NewReader(pngBytes), tt.contentType)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if img.MIMEType != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, img.MIMEType)
			}
		})
	}
}

func TestEncode_Errors(t *testing.T) {
	t.Run("unreadable", func(t *testing.T) {
		img, err := Encode(failingReader{}, "image/png")
		if img != nil {
			t.Fatalf("expected no partial image on error")
		}
		if !apperrors.Is(err, apperrors.KindEncoding) {
			t.Fatalf("expected encoding error, got %v", err)
		}
	})

	t.Run("empty", func(t *testing.T) {
		_, err := Encode(bytes.NewReader(nil), "image/png")
		if !apperrors.Is(err, apperrors.KindEncoding) {
			t.Fatalf("expected encoding error, got %v", err)
		}
	})

	t.Run("too large", func(t *testing.T) {
		_, err := EncodeLimit(bytes.NewReader(make([]byte, 32)), "image/png", 16)
		if !apperrors.Is(err, apperrors.KindEncoding) {
			t.Fatalf("expected encoding error, got %v", err)
		}
		if !strings.Contains(err.Error(), "16 byte limit") {
			t.Fatalf("unexpected message: %q", err.Error())
		}
	})
}

func TestStripPrefix_MissingDelimiter(t *testing.T) {
	_, err := stripPrefix("data:image/png;base64")
	if !apperrors.Is(err, apperrors.KindEncoding) {
		t.Fatalf("expected encoding error, got %v", err)
	}
}

func TestParseDataURL(t *testing.T) {
	src, err := Encode(bytes.NewReader(pngBytes), "image/png")
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	t.Run("round trip", func(t *testing.T) {
		img, err := ParseDataURL(src.DataURL())
		if err != nil {
			t.Fatalf("ParseDataURL failed: %v", err)
		}
		if img.MIMEType != "image/png" || img.Payload != src.Payload || img.ByteSize != len(pngBytes) {
			t.Fatalf("unexpected image: %+v", img)
		}
	})

	bad := map[string]string{
		"no scheme":     "image/png;base64," + src.Payload,
		"no delimiter":  "data:image/png;base64",
		"not base64":    "data:image/png," + src.Payload,
		"corrupt":       "data:image/png;base64,!!!",
		"empty payload": "data:image/png;base64,",
	}
	for name, input := range bad {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseDataURL(input); !apperrors.Is(err, apperrors.KindEncoding) {
				t.Fatalf("expected encoding error, got %v", err)
			}
		})
	}
}
