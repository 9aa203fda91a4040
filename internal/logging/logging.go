// Package logging builds the slog logger used by the pwm command.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Levels accepted by New, lowest first.
var Levels = []string{"trace", "debug", "info", "warn", "error"}

// TextHandler returns a charmbracelet/log handler writing to w (stderr if nil).
func TextHandler(level string, w io.Writer) slog.Handler {
	if w == nil {
		w = os.Stderr
	}
	reportCaller := false
	reportTimestamp := false
	lvl := log.InfoLevel
	switch strings.ToLower(level) {
	case "trace":
		reportCaller = true
		reportTimestamp = true
		lvl = log.DebugLevel
	case "debug":
		reportTimestamp = true
		lvl = log.DebugLevel
	case "info":
		lvl = log.InfoLevel
	case "warn", "warning":
		lvl = log.WarnLevel
	case "error":
		lvl = log.ErrorLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: reportTimestamp,
		ReportCaller:    reportCaller,
		Level:           lvl,
		Prefix:          "pwm",
	})
}

// JSONHandler returns a slog JSON handler writing to w (stderr if nil).
func JSONHandler(level string, w io.Writer) slog.Handler {
	if w == nil {
		w = os.Stderr
	}
	var lvl slog.Level
	addSource := false
	switch strings.ToLower(level) {
	case "trace":
		addSource = true
		lvl = slog.LevelDebug
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl, AddSource: addSource})
}

// New validates level and format ("text" or "json") and returns a logger.
func New(level, format string, w io.Writer) (*slog.Logger, error) {
	if !validLevel(level) {
		return nil, fmt.Errorf("unknown log level %q (want one of %s)", level, strings.Join(Levels, ", "))
	}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(TextHandler(level, w)), nil
	case "json":
		return slog.New(JSONHandler(level, w)), nil
	}
	return nil, fmt.Errorf("unknown log format %q (want text or json)", format)
}

func validLevel(level string) bool {
	l := strings.ToLower(level)
	if l == "warning" {
		return true
	}
	for _, v := range Levels {
		if v == l {
			return true
		}
	}
	return false
}
