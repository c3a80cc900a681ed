package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/srg/bluectl/manager"
)

// configureLogger builds the CLI logger from the persistent flags.
// --log-level wins over --verbose; with neither, the logger is all but
// silent so command output stays clean.
func configureLogger(cmd *cobra.Command) (*logrus.Logger, error) {
	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = "debug"
		} else {
			level = "panic"
		}
	}

	cfg := manager.Config{LogLevel: level}
	return cfg.NewLogger()
}
