package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	os.Exit(runMain(newRootCmd(), logrus.StandardLogger()))
}

// runMain executes cmd and reports a failure once, at error level.
func runMain(cmd *cobra.Command, logger logrus.FieldLogger) int {
	if err := cmd.Execute(); err != nil {
		logger.WithError(err).Error("command failed")
		return 1
	}
	return 0
}
