package language

import (
	"fmt"
	"sort"
	"strings"
)

// Language is a supported output language for analyses.
type Language struct {
	ID   string // canonical key, e.g. "hindi"
	Code string // ISO 639-1
	Name string // display name used in prompts
}

// Default is the language used when the caller does not pick one.
const Default = "english"

// Languages maps canonical IDs to languages. Add an entry here to support a
// new output language.
var Languages = map[string]Language{
	"english": {ID: "english", Code: "en", Name: "English"},
	"hindi":   {ID: "hindi", Code: "hi", Name: "Hindi"},
	"marathi": {ID: "marathi", Code: "mr", Name: "Marathi"},
}

// IsDefault reports whether l needs no language directive.
func (l Language) IsDefault() bool {
	return l.ID == Default
}

// AnalysisDirective is appended to image-grounded prompts. English analyses
// carry no directive.
func (l Language) AnalysisDirective() string {
	if l.IsDefault() {
		return ""
	}
	return fmt.Sprintf("Provide the analysis in %s language.", l.Name)
}

// ResponseDirective is appended to text-only prompts.
func (l Language) ResponseDirective() string {
	return fmt.Sprintf("Provide the response in %s language.", l.Name)
}

// Resolve accepts an ID, ISO code or display name, case-insensitively. An
// empty input resolves to Default.
func Resolve(input string) (Language, error) {
	needle := strings.ToLower(strings.TrimSpace(input))
	if needle == "" {
		return Languages[Default], nil
	}
	if lang, ok := Languages[needle]; ok {
		return lang, nil
	}
	for _, lang := range Languages {
		if lang.Code == needle || strings.ToLower(lang.Name) == needle {
			return lang, nil
		}
	}
	return Language{}, fmt.Errorf("unsupported language: %s", input)
}

// Supported returns all languages sorted by name.
func Supported() []Language {
	out := make([]Language, 0, len(Languages))
	for _, l := range Languages {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}
