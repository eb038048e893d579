package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

type Logger struct {
	serviceName string
}

var (
	// INFO_EMOJI Emoji constants
	INFO_EMOJI    = "ℹ️ "
	SUCCESS_EMOJI = "✅ "
	WARN_EMOJI    = "⚠️ "
	ERROR_EMOJI   = "❌ "
	DEBUG_EMOJI   = "🔍 "
)

// sink state shared by every service logger
var (
	sinkMu   sync.RWMutex
	jsonSink *zerolog.Logger
	minLevel = zerolog.DebugLevel
)

// Configure switches every logger between the colored console output and JSON
// lines. format is "console" or "json"; level is debug, info, warn or error.
func Configure(format, level string, out io.Writer) {
	if out == nil {
		out = os.Stdout
	}
	lvl := parseLevel(level)

	sinkMu.Lock()
	defer sinkMu.Unlock()
	minLevel = lvl
	if strings.EqualFold(format, "json") {
		zl := zerolog.New(out).Level(lvl).With().Timestamp().Logger()
		jsonSink = &zl
		return
	}
	jsonSink = nil
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "info":
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}

func New(serviceName string) *Logger {
	return &Logger{
		serviceName: serviceName,
	}
}

// caller reports the file and line of the code that called a Logger method.
func caller() (string, int) {
	_, file, line, _ := runtime.Caller(3)
	return filepath.Base(file), line
}

func (l *Logger) formatMessage(level, emoji, msg, file string, line int) string {
	timestamp := time.Now().Format("2006-01-02 15:04:05")

	return fmt.Sprintf("%s | %s | %s | %s:%d | %s | %s",
		emoji,
		timestamp,
		level,
		file,
		line,
		l.serviceName,
		msg,
	)
}

func (l *Logger) print(lvl zerolog.Level, label, emoji string, paint func(string, ...interface{}), msg string, err error) {
	sinkMu.RLock()
	sink, threshold := jsonSink, minLevel
	sinkMu.RUnlock()

	if lvl < threshold {
		return
	}
	file, line := caller()
	if sink != nil {
		ev := sink.WithLevel(lvl).
			Str("service", l.serviceName).
			Str("caller", fmt.Sprintf("%s:%d", file, line))
		if err != nil {
			ev = ev.Err(err)
		}
		ev.Msg(msg)
		return
	}
	paint("%s", l.formatMessage(label, emoji, msg, file, line))
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.print(zerolog.InfoLevel, "INFO", INFO_EMOJI, color.Cyan, fmt.Sprintf(msg, args...), nil)
}

func (l *Logger) Success(msg string, args ...interface{}) {
	l.print(zerolog.InfoLevel, "SUCCESS", SUCCESS_EMOJI, color.Green, fmt.Sprintf(msg, args...), nil)
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.print(zerolog.WarnLevel, "WARN", WARN_EMOJI, color.Yellow, fmt.Sprintf(msg, args...), nil)
}

// Error logs msg with the cause appended and returns err wrapped with msg.
func (l *Logger) Error(msg string, err error, args ...interface{}) error {
	text := fmt.Sprintf(msg, args...)
	line := text
	if err != nil {
		line = fmt.Sprintf("%s: %v", text, err)
	}
	l.print(zerolog.ErrorLevel, "ERROR", ERROR_EMOJI, color.Red, line, err)
	return fmt.Errorf("%s: %w", text, err)
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	l.print(zerolog.DebugLevel, "DEBUG", DEBUG_EMOJI, color.Magenta, fmt.Sprintf(msg, args...), nil)
}
