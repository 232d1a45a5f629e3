// Package main is the entry point for the municipal administration service.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/samber/oops"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	cmd := NewRootCmd()
	cmd.Version = fmt.Sprintf("%s (commit: %s)", version, commit)

	if err := cmd.Execute(); err != nil {
		logCommandError(slog.Default(), err)
		os.Exit(1)
	}
}

func logCommandError(logger *slog.Logger, err error) {
	if oopsErr, ok := oops.AsOops(err); ok {
		logger.Error("command failed",
			slog.String("code", fmt.Sprint(oopsErr.Code())),
			slog.Any("context", oopsErr.Context()),
			slog.Any("error", err))
		return
	}
	logger.Error("command failed", slog.Any("error", err))
}
