package licenses

import (
	"strings"
	"testing"
)

func TestDisclaimerTextEmbedded(t *testing.T) {
	text := DisclaimerText()
	if !strings.Contains(text, "not a medical diagnosis") {
		t.Fatalf("embedded disclaimer missing or stale: %q", text)
	}
}
