// Package githubauth locates GitHub API tokens in the environment.
package githubauth
