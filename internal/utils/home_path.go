package utils

import (
	"os"
	"path/filepath"
	"strings"
)

const homeShortcutConstant = "~"

// HomeDirectoryResolver returns the home directory of the current user.
type HomeDirectoryResolver func() (string, error)

// ExpandHomePath replaces a leading "~" in configured file paths such as log_file with the home directory.
// Paths without the shortcut, and paths that cannot be resolved, are returned unchanged.
func ExpandHomePath(candidatePath string, resolver HomeDirectoryResolver) string {
	trimmedPath := strings.TrimSpace(candidatePath)
	if !strings.HasPrefix(trimmedPath, homeShortcutConstant) {
		return trimmedPath
	}

	remainder := strings.TrimPrefix(trimmedPath, homeShortcutConstant)
	if len(remainder) > 0 && remainder[0] != '/' && remainder[0] != os.PathSeparator {
		return trimmedPath
	}

	if resolver == nil {
		resolver = os.UserHomeDir
	}
	homeDirectory, resolveError := resolver()
	if resolveError != nil || len(homeDirectory) == 0 {
		return trimmedPath
	}

	return filepath.Join(homeDirectory, remainder)
}
