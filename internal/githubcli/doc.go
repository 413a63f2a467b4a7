// Package githubcli wraps the GitHub CLI for branch auditing workflows.
//
// It issues gh repo view, gh pr list, and gh api calls through execshell,
// decodes their JSON output into typed structures, and classifies missing
// branch references so callers can tell them apart from other failures.
package githubcli
