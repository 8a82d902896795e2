// Package llm defines the narrow contract between the analysis layer and a
// remote multimodal model: submit parts, get text or an error.
package llm

import "context"

// InlineData is an image sent alongside the prompt. Data is base64 without
// any data-URI prefix.
type InlineData struct {
	MIMEType string
	Data     string
}

// Part is either text or inline image data.
type Part struct {
	Text  string
	Image *InlineData
}

func TextPart(text string) Part {
	return Part{Text: text}
}

func ImagePart(mimeType, data string) Part {
	return Part{Image: &InlineData{MIMEType: mimeType, Data: data}}
}

// IsImage reports whether the part carries inline data.
func (p Part) IsImage() bool {
	return p.Image != nil
}

type Request struct {
	Parts []Part
	// MaxOutputTokens caps the reply when positive.
	MaxOutputTokens int
}

// HasImage reports whether any part carries inline data.
func (r Request) HasImage() bool {
	for _, p := range r.Parts {
		if p.IsImage() {
			return true
		}
	}
	return false
}

// Usage holds token usage information.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type Response struct {
	Text  string
	Usage Usage
}

// Generator is implemented by every provider client. A nil Response with a
// nil error means the provider returned nothing.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	ModelID() string
}
