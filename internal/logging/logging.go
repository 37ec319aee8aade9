// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Setup applies level and format ("text" or "json") to the standard logger and returns it.
func Setup(level, format string, out io.Writer) (*log.Logger, error) {
	logger := log.StandardLogger()
	if err := configure(logger, level, format, out); err != nil {
		return nil, err
	}
	return logger, nil
}

func configure(logger *log.Logger, level, format string, out io.Writer) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	switch strings.ToLower(format) {
	case "", "text":
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("invalid log format %q (want text or json)", format)
	}

	if out != nil {
		logger.SetOutput(out)
	}
	logger.SetLevel(lvl)
	return nil
}
