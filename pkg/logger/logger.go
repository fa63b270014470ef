// Package logger provides the leveled console logger used by the scanner,
// the watcher and the CLI.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// LogLevel controls which messages are written.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelOff
)

// String returns the level name.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "debug"
	case LogLevelInfo:
		return "info"
	case LogLevelWarn:
		return "warn"
	case LogLevelError:
		return "error"
	case LogLevelOff:
		return "off"
	default:
		return "info"
	}
}

// ParseLogLevel parses a level name. Unknown names default to info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug
	case "info":
		return LogLevelInfo
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	case "off", "none", "disabled":
		return LogLevelOff
	default:
		return LogLevelInfo
	}
}

// Config configures a Logger.
type Config struct {
	// Level is the minimum level written.
	Level LogLevel

	// Output is where lines are written. Default is os.Stdout.
	Output io.Writer

	// DisableColors turns off ANSI colors. Colors are also off when
	// Output is not a terminal.
	DisableColors bool

	// ShowTime prefixes each line with a [15:04:05] timestamp.
	ShowTime bool
}

// Logger writes leveled, colored lines in the CLI's "  → message" style.
// A nil *Logger is valid and discards everything.
type Logger struct {
	config Config
	mu     sync.Mutex
	now    func() time.Time

	tones [4]*color.Color
}

type tone int

const (
	toneCyan tone = iota
	toneGreen
	toneYellow
	toneRed
)

// New creates a Logger.
func New(config Config) *Logger {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if !isTerminal(config.Output) {
		config.DisableColors = true
	}

	l := &Logger{
		config: config,
		now:    time.Now,
		tones: [4]*color.Color{
			toneCyan:   color.New(color.FgCyan),
			toneGreen:  color.New(color.FgGreen),
			toneYellow: color.New(color.FgYellow),
			toneRed:    color.New(color.FgRed),
		},
	}
	for _, c := range l.tones {
		if config.DisableColors {
			c.DisableColor()
		} else {
			c.EnableColor()
		}
	}
	return l
}

// Level returns the configured level.
func (l *Logger) Level() LogLevel {
	if l == nil {
		return LogLevelOff
	}
	return l.config.Level
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level LogLevel) bool {
	return l != nil && l.config.Level != LogLevelOff && level >= l.config.Level
}

// Debugf logs a debug message.
func (l *Logger) Debugf(format string, args ...any) {
	l.write(LogLevelDebug, toneCyan, "ℹ", format, args...)
}

// Infof logs a progress message.
func (l *Logger) Infof(format string, args ...any) {
	l.write(LogLevelInfo, toneYellow, "→", format, args...)
}

// Successf logs a completed step at info level.
func (l *Logger) Successf(format string, args ...any) {
	l.write(LogLevelInfo, toneGreen, "✓", format, args...)
}

// Warnf logs a warning.
func (l *Logger) Warnf(format string, args ...any) {
	l.write(LogLevelWarn, toneYellow, "⚠", format, args...)
}

// Errorf logs an error.
func (l *Logger) Errorf(format string, args ...any) {
	l.write(LogLevelError, toneRed, "✗", format, args...)
}

func (l *Logger) write(level LogLevel, t tone, symbol, format string, args ...any) {
	if !l.Enabled(level) {
		return
	}

	var b strings.Builder
	b.WriteString("  ")
	if l.config.ShowTime {
		b.WriteString("[" + l.now().Format("15:04:05") + "] ")
	}
	b.WriteString(l.tones[t].Sprint(symbol))
	b.WriteString(" ")
	b.WriteString(fmt.Sprintf(format, args...))
	b.WriteString("\n")

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.config.Output, b.String())
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
