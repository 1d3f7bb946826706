package credentials

import (
	"fmt"
	"os"
)

// EnvSource resolves the API key from the environment. Key management beyond
// the process environment is out of scope here; whatever keychain or secret
// store populates the environment has already decrypted the key.
type EnvSource struct {
	variable string
}

// NewEnvSource creates a credential source reading the given variable,
// defaulting to GEMINI_API_KEY.
func NewEnvSource(variable string) *EnvSource {
	if variable == "" {
		variable = "GEMINI_API_KEY"
	}
	return &EnvSource{variable: variable}
}

// APIKey returns the key or an error if the variable is unset
func (e *EnvSource) APIKey() (string, error) {
	key := os.Getenv(e.variable)
	if key == "" {
		return "", fmt.Errorf("%s environment variable is required", e.variable)
	}
	return key, nil
}
