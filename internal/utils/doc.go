// Package utils exposes the configuration loader, logger factory, and small
// path and context helpers shared by the branchprune commands.
package utils
