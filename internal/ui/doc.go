// Package ui renders human-readable traces of the GitHub CLI invocations issued while fetching
// and deleting branches.
package ui
