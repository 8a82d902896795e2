package auth

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/oukeidos/xraylens/internal/metadata"
	"github.com/zalando/go-keyring"
	"golang.org/x/term"
)

const serviceName = "xraylens"

// Source describes where a key was found.
type Source string

const (
	SourceNone     Source = ""
	SourceKeychain Source = "Keychain"
	SourceEnv      Source = "Environment Variable"
	SourcePrompt   Source = "Prompt"
)

type credential struct {
	account string
	envVar  string
}

var credentials = map[metadata.Provider]credential{
	metadata.ProviderGemini: {account: "gemini-api-key", envVar: "GEMINI_API_KEY"},
	metadata.ProviderOpenAI: {account: "openai-api-key", envVar: "OPENAI_API_KEY"},
}

// Overridable in tests.
var (
	readPassword = term.ReadPassword
	stdinFd      = func() int { return int(os.Stdin.Fd()) }
)

func lookup(p metadata.Provider) credential {
	if c, ok := credentials[p]; ok {
		return c
	}
	return credentials[metadata.ProviderGemini]
}

// EnvVar returns the environment variable consulted for p.
func EnvVar(p metadata.Provider) string {
	return lookup(p).envVar
}

// GetKey retrieves the API key for p from the keychain and, when allowEnv is
// set, the environment. It returns an empty key when neither has one.
func GetKey(p metadata.Provider, allowEnv bool) (string, Source) {
	c := lookup(p)
	key, err := keyring.Get(serviceName, c.account)
	if err == nil && strings.TrimSpace(key) != "" {
		return strings.TrimSpace(key), SourceKeychain
	}
	if allowEnv {
		if key, ok := GetEnvKey(p); ok {
			return key, SourceEnv
		}
	}
	return "", SourceNone
}

// SaveKey saves the key for p to the OS keychain.
func SaveKey(p metadata.Provider, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("API key is empty")
	}
	return keyring.Set(serviceName, lookup(p).account, key)
}

// DeleteKey removes the key for p from the OS keychain.
func DeleteKey(p metadata.Provider) error {
	return keyring.Delete(serviceName, lookup(p).account)
}

// GetStatus reports whether the keychain holds a key for p.
func GetStatus(p metadata.Provider) bool {
	key, err := keyring.Get(serviceName, lookup(p).account)
	return err == nil && key != ""
}

// GetEnvKey retrieves the key from environment variables only.
func GetEnvKey(p metadata.Provider) (string, bool) {
	key := strings.TrimSpace(os.Getenv(lookup(p).envVar))
	if key == "" {
		return "", false
	}
	return key, true
}

// PromptForAPIKey reads a key from the terminal without echo.
func PromptForAPIKey(out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	secret, err := readPassword(stdinFd())
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(secret)), nil
}
