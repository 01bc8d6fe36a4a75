package main

import (
	"context"

	"github.com/grupomaster/raqs/internal/logging"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logging.LogFatal(cliLogger(), "Command failed", err)
	}
}

// cliLogger falls back to the standard logger when the configuration could
// not be loaded.
func cliLogger() logrus.FieldLogger {
	if logger != nil {
		return logger
	}
	return logrus.StandardLogger()
}
