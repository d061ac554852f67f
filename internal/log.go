package internal

import (
	"log"
	"os"
	"strings"
)

// LogLevel controls how chatty a Logger is
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

var levelNames = map[string]LogLevel{
	"ERROR": LogLevelError,
	"WARN":  LogLevelWarn,
	"INFO":  LogLevelInfo,
	"DEBUG": LogLevelDebug,
}

// ParseLogLevel maps ERROR/WARN/INFO/DEBUG (any case) to a level.
// Unknown names fall back to INFO.
func ParseLogLevel(s string) LogLevel {
	if level, ok := levelNames[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return level
	}
	return LogLevelInfo
}

// Logger writes "[Component] message" lines through the standard logger,
// dropping anything above its level
type Logger struct {
	component string
	level     LogLevel
}

// NewLogger creates a logger for one component
func NewLogger(component string, level LogLevel) *Logger {
	return &Logger{component: component, level: level}
}

// ForComponent creates a logger whose level comes from LOG_LEVEL
func ForComponent(component string) *Logger {
	return NewLogger(component, ParseLogLevel(os.Getenv("LOG_LEVEL")))
}

func (l *Logger) printf(level LogLevel, format string, args ...interface{}) {
	if l.level < level {
		return
	}
	log.Printf("["+l.component+"] "+format, args...)
}

func (l *Logger) Warn(format string, args ...interface{})  { l.printf(LogLevelWarn, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.printf(LogLevelInfo, format, args...) }
func (l *Logger) Debug(format string, args ...interface{}) { l.printf(LogLevelDebug, format, args...) }
