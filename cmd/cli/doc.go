// Package cli constructs the branchprune command-line interface. It wires the
// Cobra command hierarchy to the Viper configuration loader and the zap logger,
// and opens the interactive branch browser when no subcommand is given.
package cli
