// SPDX-License-Identifier: MPL-2.0

package config

import (
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// NewLogger returns a slog.Logger rendered by charmbracelet/log with the
// application prefix. A nil w writes to stderr; an unknown level means warn.
func NewLogger(level LogLevel, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	handler := log.NewWithOptions(w, log.Options{
		Prefix:          AppName,
		Level:           level.charmLevel(),
		ReportTimestamp: true,
	})
	handler.SetStyles(loggerStyles())
	return slog.New(handler)
}

// Logger is NewLogger at the configured level, writing to stderr.
func (c Config) Logger() *slog.Logger {
	return NewLogger(c.Log.Level, nil)
}

func (l LogLevel) charmLevel() log.Level {
	switch l {
	case LogLevelDebug:
		return log.DebugLevel
	case LogLevelInfo:
		return log.InfoLevel
	case LogLevelError:
		return log.ErrorLevel
	default:
		return log.WarnLevel
	}
}

// loggerStyles highlights the prefix and the container/image keys the
// container package logs with.
func loggerStyles() *log.Styles {
	styles := log.DefaultStyles()
	styles.Prefix = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	styles.Keys["container"] = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	styles.Keys["image"] = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	return styles
}
