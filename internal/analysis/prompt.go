package analysis

import (
	"fmt"
	"strings"

	"github.com/oukeidos/xraylens/internal/language"
)

// DefaultImagePrompt is used when an image arrives without any prompt text.
const DefaultImagePrompt = "Identify any abnormalities and summarize the key findings"

const (
	textPreamble  = "You are a medical professional."
	imagePreamble = "You are a medical professional analyzing an X-ray image. Please provide a detailed analysis based on the following prompt:"
)

// textInstruction builds the single text block sent when no image is attached.
func textInstruction(prompt string, lang language.Language) string {
	return fmt.Sprintf("%s %s %s", textPreamble, prompt, lang.ResponseDirective())
}

// imageInstruction builds the text block sent alongside an image. English
// carries no language directive.
func imageInstruction(prompt string, lang language.Language) string {
	return strings.TrimSpace(fmt.Sprintf("%s %s. %s", imagePreamble, prompt, lang.AnalysisDirective()))
}
