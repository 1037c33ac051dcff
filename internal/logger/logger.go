package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// L is the global logger instance. It discards all output until Init is called.
var L *slog.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Options configures the logger initialization.
type Options struct {
	Enabled bool       // If false, all logging is discarded
	Writer  io.Writer  // Destination. Default: os.Stderr
	Level   slog.Level // Minimum log level. Default: LevelInfo when enabled
	JSON    bool       // JSON handler instead of text
}

// Init configures logging. Call from main() before rendering starts.
func Init(opts Options) {
	if !opts.Enabled {
		L = slog.New(slog.NewTextHandler(io.Discard, nil))
		return
	}
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	level := opts.Level
	if level == 0 {
		level = slog.LevelInfo
	}
	hopts := &slog.HandlerOptions{Level: level}
	if opts.JSON {
		L = slog.New(slog.NewJSONHandler(w, hopts))
		return
	}
	L = slog.New(slog.NewTextHandler(w, hopts))
}

// ParseLevel maps a flag value to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InteractionLog receives complete, pre-formatted report blocks from effects
// finalizing on different goroutines. A block is written with a single call
// under the lock so concurrent reports never interleave.
type InteractionLog struct {
	mu sync.Mutex
	w  io.Writer
}

func NewInteractionLog(w io.Writer) *InteractionLog {
	if w == nil {
		w = io.Discard
	}
	return &InteractionLog{w: w}
}

// WriteBlock appends one report block, adding a trailing newline if missing.
func (l *InteractionLog) WriteBlock(block string) error {
	if l == nil {
		return nil
	}
	if !strings.HasSuffix(block, "\n") {
		block += "\n"
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := io.WriteString(l.w, block)
	return err
}
