package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Logger struct {
	mu   sync.RWMutex
	out  io.Writer
	json bool
	lvl  zerolog.Level
	zl   zerolog.Logger
}

type Field struct {
	Key string
	Val any
}

func New(jsonEnabled bool) *Logger {
	return NewWithWriter(os.Stdout, jsonEnabled)
}

func NewWithWriter(w io.Writer, jsonEnabled bool) *Logger {
	lg := &Logger{out: w, json: jsonEnabled, lvl: zerolog.InfoLevel}
	lg.rebuild()
	return lg
}

func (lg *Logger) SetJSON(enabled bool) {
	if lg == nil {
		return
	}
	lg.mu.Lock()
	defer lg.mu.Unlock()
	lg.json = enabled
	lg.rebuild()
}

// SetLevel accepts debug, info, warn or error. Unknown names fall back to info.
func (lg *Logger) SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if lg == nil {
		return
	}
	lg.mu.Lock()
	defer lg.mu.Unlock()
	lg.lvl = lvl
	lg.rebuild()
}

func (lg *Logger) Debug(msg string, fields ...Field) {
	lg.print(zerolog.DebugLevel, msg, fields...)
}

func (lg *Logger) Info(msg string, fields ...Field) {
	lg.print(zerolog.InfoLevel, msg, fields...)
}

func (lg *Logger) Warn(msg string, fields ...Field) {
	lg.print(zerolog.WarnLevel, msg, fields...)
}

func (lg *Logger) Error(msg string, fields ...Field) {
	lg.print(zerolog.ErrorLevel, msg, fields...)
}

// Printf lets the logger stand in where a Printf-style logger is expected.
func (lg *Logger) Printf(format string, args ...any) {
	if lg == nil {
		return
	}
	lg.mu.RLock()
	zl := lg.zl
	lg.mu.RUnlock()
	zl.Info().Msgf(format, args...)
}

func (lg *Logger) print(level zerolog.Level, msg string, fields ...Field) {
	if lg == nil {
		return
	}
	lg.mu.RLock()
	zl := lg.zl
	lg.mu.RUnlock()

	ev := zl.WithLevel(level)
	if ev == nil {
		return
	}
	for _, f := range fields {
		switch v := f.Val.(type) {
		case error:
			ev = ev.AnErr(f.Key, v)
		case string:
			ev = ev.Str(f.Key, v)
		case time.Duration:
			ev = ev.Dur(f.Key, v)
		default:
			ev = ev.Interface(f.Key, v)
		}
	}
	ev.Msg(msg)
}

// caller holds mu for writing
func (lg *Logger) rebuild() {
	w := lg.out
	if !lg.json {
		w = zerolog.ConsoleWriter{Out: lg.out, TimeFormat: time.RFC3339, NoColor: true}
	}
	lg.zl = zerolog.New(w).Level(lg.lvl).With().Timestamp().Logger()
}
