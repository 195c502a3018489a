package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
)

func getLogFilePath() (string, error) {
	return gap.NewScope(gap.User, appName).DataPath(appName + ".log")
}

// setupLog sends log output to stderr, so stdout carries only command
// results. With debug set, everything is also appended to the log file.
func setupLog(debug bool) (func() error, error) {
	log.SetOutput(os.Stderr)
	log.SetReportTimestamp(false)
	log.SetLevel(log.InfoLevel)

	if !debug {
		return func() error { return nil }, nil
	}

	logFile, err := getLogFilePath()
	if err != nil {
		return nil, fmt.Errorf("unable to find log directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return nil, fmt.Errorf("unable to create log directory: %w", err)
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("unable to open log file: %w", err)
	}

	log.SetOutput(io.MultiWriter(os.Stderr, f))
	log.SetLevel(log.DebugLevel)
	log.Debug("Logging to file", "path", logFile)
	return f.Close, nil
}
