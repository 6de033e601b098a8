// Package logging builds the slog loggers used across Blockfall.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Mode selects the handler a logger is built with
type Mode uint8

const (
	// ModeDev writes human-readable text at debug level
	ModeDev Mode = iota
	// ModeProd writes JSON at info level
	ModeProd
	// ModeSilent discards everything
	ModeSilent
)

func (m Mode) String() string {
	switch m {
	case ModeDev:
		return "dev"
	case ModeProd:
		return "prod"
	case ModeSilent:
		return "silent"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// ParseMode resolves a mode name
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dev", "text", "debug":
		return ModeDev, nil
	case "prod", "json":
		return ModeProd, nil
	case "silent", "off", "none":
		return ModeSilent, nil
	}
	return ModeDev, fmt.Errorf("unknown log mode %q (want dev, prod or silent)", s)
}

// New returns a logger for mode writing to w. A nil w writes to stderr so
// that stdout stays free for protocols such as MCP over stdio.
func New(mode Mode, w io.Writer) *slog.Logger {
	return slog.New(NewHandler(mode, w))
}

// NewHandler returns the handler New would use
func NewHandler(mode Mode, w io.Writer) slog.Handler {
	if w == nil {
		w = os.Stderr
	}
	switch mode {
	case ModeProd:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	case ModeSilent:
		return slog.NewTextHandler(io.Discard, nil)
	default:
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
}

// Discard returns a logger that drops every record
func Discard() *slog.Logger {
	return New(ModeSilent, nil)
}
