// Package execshell provides structured helpers for invoking external tools.
//
// ShellExecutor wraps a CommandRunner with zap logging and lifecycle
// observers, and ProcessRunner launches gh without interactive prompts.
package execshell
