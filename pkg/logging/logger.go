// Package logging constructs the hclog loggers used by the npk tools.
//
// Log level resolution order: explicit CLI flag, tool-specific environment
// variable (e.g. NPK_BUILDER_LOG_LEVEL), NPK_LOG_LEVEL, then the default.
// A "json:" prefix on any level selects JSON output, e.g. "json:debug".
// NPK_LOG_PATH redirects output to a file.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

const linePrefix = "📦 "

// Resolve determines the effective log level and whether JSON output was
// requested. cliLevel wins over toolEnv, which wins over NPK_LOG_LEVEL.
func Resolve(cliLevel, toolEnv, fallback string) (level string, jsonFormat bool, source string) {
	switch {
	case cliLevel != "":
		level, source = cliLevel, "CLI --log-level"
	case toolEnv != "" && os.Getenv(toolEnv) != "":
		level, source = os.Getenv(toolEnv), toolEnv
	case os.Getenv("NPK_LOG_LEVEL") != "":
		level, source = os.Getenv("NPK_LOG_LEVEL"), "NPK_LOG_LEVEL"
	default:
		level, source = fallback, "default"
	}

	if strings.HasPrefix(level, "json") {
		jsonFormat = true
		if parts := strings.SplitN(level, ":", 2); len(parts) == 2 {
			level = parts[1]
		} else {
			level = "info"
		}
	}

	return level, jsonFormat, source
}

// NewLogger creates an hclog logger with the standard npk settings.
func NewLogger(name, level string, jsonFormat bool) hclog.Logger {
	var output io.Writer = os.Stderr

	if logPath := os.Getenv("NPK_LOG_PATH"); logPath != "" {
		if file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
			output = file
		}
	}

	if !jsonFormat {
		output = NewPrefixWriter(linePrefix, output)
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(level),
		JSONFormat: jsonFormat,
		Output:     output,
		TimeFormat: "2006-01-02T15:04:05Z", // UTC ISO format
		TimeFn: func() time.Time {
			return time.Now().UTC()
		},
	})
}
