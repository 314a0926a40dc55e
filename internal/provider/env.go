// Package provider resolves model-provider credentials from the environment.
package provider

import (
	"fmt"
	"os"
	"strings"
)

// providerEnvVars maps canonical provider names to the environment
// variables that can supply their API keys, in lookup order.
var providerEnvVars = map[string][]string{
	"claude": {"ANTHROPIC_API_KEY"},
	"openai": {"OPENAI_API_KEY"},
	"gemini": {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

// CanonicalName folds provider aliases onto the names the CLI accepts.
func CanonicalName(name string) string {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "anthropic", "claude":
		return "claude"
	case "google", "googleai", "gemini":
		return "gemini"
	default:
		return n
	}
}

func resolveAPIKey(providerName, explicit string) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}
	for _, envVar := range providerEnvVars[CanonicalName(providerName)] {
		if value := strings.TrimSpace(os.Getenv(envVar)); value != "" {
			return value
		}
	}
	return ""
}

// ResolveAPIKey returns the trimmed key for a provider from the
// environment, or "" when none is set.
func ResolveAPIKey(providerName string) string {
	return resolveAPIKey(providerName, "")
}

// EnvVarHints returns the environment variables consulted for a provider.
func EnvVarHints(providerName string) []string {
	hints := providerEnvVars[CanonicalName(providerName)]
	out := make([]string, len(hints))
	copy(out, hints)
	return out
}

// MissingKeyError explains which variables to set for a provider.
func MissingKeyError(providerName string) error {
	hints := EnvVarHints(providerName)
	if len(hints) == 0 {
		return fmt.Errorf("unknown provider: %s", providerName)
	}
	return fmt.Errorf("no API key for %s: set %s", CanonicalName(providerName), strings.Join(hints, " or "))
}
