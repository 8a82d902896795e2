// Package licenses embeds the usage disclaimer shipped with the binary.
package licenses

import _ "embed"

//go:embed embedded/DISCLAIMER.md
var disclaimerText string

func DisclaimerText() string {
	return disclaimerText
}
