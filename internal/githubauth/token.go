package githubauth

import (
	"errors"
	"os"
	"strings"
)

// Environment variable names used by GitHub authentication helpers.
const (
	EnvGitHubCLIToken = "GH_TOKEN"
	EnvGitHubToken    = "GITHUB_TOKEN"
	EnvGitHubAPIToken = "GITHUB_API_TOKEN"
)

const tokenNotFoundMessageConstant = "github token not found in GH_TOKEN, GITHUB_TOKEN, or GITHUB_API_TOKEN"

// ErrTokenNotFound indicates none of the recognized environment variables carried a token.
var ErrTokenNotFound = errors.New(tokenNotFoundMessageConstant)

var tokenPreference = []string{
	EnvGitHubCLIToken,
	EnvGitHubToken,
	EnvGitHubAPIToken,
}

// EnvironmentLookup mirrors os.LookupEnv.
type EnvironmentLookup func(key string) (string, bool)

// ResolveToken returns the first non-empty GitHub authentication token observed
// in the provided environment map or the process environment.
func ResolveToken(environment map[string]string) (string, bool) {
	if token, found := resolveFrom(mapLookup(environment)); found {
		return token, true
	}
	return resolveFrom(os.LookupEnv)
}

// RequireToken behaves like ResolveToken but reports a missing token as ErrTokenNotFound.
func RequireToken(environment map[string]string) (string, error) {
	token, found := ResolveToken(environment)
	if !found {
		return "", ErrTokenNotFound
	}
	return token, nil
}

func resolveFrom(lookup EnvironmentLookup) (string, bool) {
	for _, key := range tokenPreference {
		value, exists := lookup(key)
		if !exists {
			continue
		}
		value = strings.TrimSpace(value)
		if len(value) > 0 {
			return value, true
		}
	}
	return "", false
}

func mapLookup(environment map[string]string) EnvironmentLookup {
	return func(key string) (string, bool) {
		if environment == nil {
			return "", false
		}
		value, exists := environment[key]
		return value, exists
	}
}
