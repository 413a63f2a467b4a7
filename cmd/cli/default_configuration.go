package cli

import (
	"bytes"
	_ "embed"
	"os"
	"path/filepath"
)

//go:embed default_config.yaml
var defaultConfigurationDocument []byte

// EmbeddedDefaultConfiguration returns a copy of the compiled-in defaults and their format.
func EmbeddedDefaultConfiguration() ([]byte, string) {
	return bytes.Clone(defaultConfigurationDocument), configurationTypeConstant
}

// configurationSearchPaths lists where config.yaml is looked up: the working directory first,
// then the branchprune directory under the user configuration directory when one exists.
func configurationSearchPaths() []string {
	searchPaths := []string{defaultConfigurationSearchPathConstant}
	if userConfigurationDirectory, lookupError := os.UserConfigDir(); lookupError == nil {
		searchPaths = append(searchPaths, filepath.Join(userConfigurationDirectory, applicationNameConstant))
	}
	return searchPaths
}
