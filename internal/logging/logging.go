// Package logging builds the process logger. Events always land in a
// file so they survive the dashboard clearing the terminal; headless
// modes mirror them to stderr.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

const (
	logDirEnvVar  = "SOCTOP_LOG_DIR"
	logFileEnvVar = "SOCTOP_LOG_FILE"

	logFileName = "soctop.log"
)

// Options configure Setup.
type Options struct {
	// Debug lowers the level from info to debug.
	Debug bool

	// File overrides the resolved log file path.
	File string

	// Console mirrors events to stderr. Leave off while the dashboard
	// owns the terminal.
	Console bool
}

// Setup opens the log file and returns the root logger, a close
// function and the file's path. The path resolves in order: the File
// option, SOCTOP_LOG_FILE, SOCTOP_LOG_DIR, the executable's directory.
func Setup(opts Options) (zerolog.Logger, func() error, string, error) {
	path := opts.File
	if path == "" {
		var err error
		path, err = resolveLogFilePath()
		if err != nil {
			return zerolog.Nop(), nil, "", err
		}
	} else if err := ensureLogDir(filepath.Dir(path)); err != nil {
		return zerolog.Nop(), nil, "", err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, "", fmt.Errorf("opening log file %q: %w", path, err)
	}

	zerolog.TimestampFieldName = "timestamp"
	zerolog.TimeFieldFormat = time.RFC3339Nano

	level := zerolog.InfoLevel
	if opts.Debug {
		level = zerolog.DebugLevel
	}

	var w io.Writer = file
	if opts.Console {
		w = io.MultiWriter(file, os.Stderr)
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()

	closeFn := func() error {
		if err := file.Close(); err != nil {
			return fmt.Errorf("closing log file: %w", err)
		}
		return nil
	}
	return logger, closeFn, path, nil
}

func resolveLogFilePath() (string, error) {
	if path := os.Getenv(logFileEnvVar); path != "" {
		if err := ensureLogDir(filepath.Dir(path)); err != nil {
			return "", err
		}
		return path, nil
	}

	if dir := os.Getenv(logDirEnvVar); dir != "" {
		if err := ensureLogDir(dir); err != nil {
			return "", err
		}
		return filepath.Join(dir, logFileName), nil
	}

	exePath, err := os.Executable()
	if err != nil {
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
			return "", fmt.Errorf("determining log directory: %w", err)
		}
		if err := ensureLogDir(cwd); err != nil {
			return "", err
		}
		return filepath.Join(cwd, logFileName), nil
	}

	dir := filepath.Dir(exePath)
	if err := ensureLogDir(dir); err != nil {
		return "", err
	}
	return filepath.Join(dir, logFileName), nil
}

func ensureLogDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("log directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating log dir %q: %w", dir, err)
	}
	return nil
}
