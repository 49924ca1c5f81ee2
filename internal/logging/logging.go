// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Options selects where logs go and how verbose they are.
type Options struct {
	Verbose bool
	File    string
	Stderr  io.Writer
}

// Setup installs a text logger as the slog default. When File is set the output is
// duplicated into it. The returned function closes the file.
func Setup(opts Options) (*slog.Logger, func() error, error) {
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	out := stderr
	closer := func() error { return nil }

	if opts.File != "" {
		err := os.MkdirAll(filepath.Dir(opts.File), 0o755)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "unable to create log directory for %s", opts.File)
		}

		logFile, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "unable to open log file %s", opts.File)
		}

		out = io.MultiWriter(logFile, stderr)
		closer = logFile.Close
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	log.SetFlags(log.Ltime | log.Ldate)

	return logger, closer, nil
}
