package slogobs

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Format represents the output format for logs.
type Format string

const (
	// FormatText is a human-readable single-line format (default for development).
	FormatText Format = "text"

	// FormatJSON is standard JSON format (for production/log aggregation).
	FormatJSON Format = "json"
)

// String returns the string representation of the Format.
func (f Format) String() string {
	return string(f)
}

// ParseFormat parses a format string and returns the corresponding Format.
// Unknown values fall back to FormatText.
func ParseFormat(s string) Format {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "json":
		return FormatJSON
	case "text", "compact":
		return FormatText
	default:
		return FormatText
	}
}

// GetFormatFromEnv retrieves the log format from environment variables.
// It checks EINO_LOG_FORMAT first, then falls back to LOG_FORMAT.
// If neither is set, it returns FormatText.
func GetFormatFromEnv() Format {
	if format := os.Getenv("EINO_LOG_FORMAT"); format != "" {
		return ParseFormat(format)
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		return ParseFormat(format)
	}
	return FormatText
}

// GetLogLevelFromEnv returns the log level configured via environment
// variables. It checks EINO_LOG_LEVEL first, then falls back to LOG_LEVEL.
// Supported values: DEBUG, INFO, WARN, WARNING, ERROR. Default: INFO.
func GetLogLevelFromEnv() slog.Level {
	level := os.Getenv("EINO_LOG_LEVEL")
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if level == "" {
		return slog.LevelInfo
	}
	return ParseLogLevel(level)
}

// ParseLogLevel parses a log level string into slog.Level (case-insensitive).
// Returns INFO for unknown values and prints a warning to stderr.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		fmt.Fprintf(os.Stderr, "Warning: Unknown log level '%s', using INFO\n", level)
		return slog.LevelInfo
	}
}
