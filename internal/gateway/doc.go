// Package gateway implements the repository boundary used by the branch audit.
//
// CLIGateway drives the GitHub CLI through execshell and githubcli, while
// APIGateway talks to the GitHub REST API with a token taken from the
// environment. Factory selects one of them from the branches configuration.
package gateway
