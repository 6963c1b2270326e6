package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger defines the interface for logging throughout the application.
// Different implementations can be used for different contexts (console, silent, structured, etc.)
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// ConsoleLogger writes logs through logrus to stderr, leaving stdout free for
// command output.
type ConsoleLogger struct {
	entry *logrus.Entry
}

// NewConsoleLogger returns a text logger at info level.
func NewConsoleLogger() *ConsoleLogger {
	return New("text", false)
}

// New builds a ConsoleLogger. format is "text" or "json"; debug enables
// debug-level output.
func New(format string, debug bool) *ConsoleLogger {
	return NewWithWriter(os.Stderr, format, debug)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, format string, debug bool) *ConsoleLogger {
	l := logrus.New()
	l.SetOutput(w)
	if strings.EqualFold(format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if debug {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return &ConsoleLogger{entry: logrus.NewEntry(l)}
}

// WithField returns a logger that attaches key=value to every entry.
func (c *ConsoleLogger) WithField(key string, value interface{}) *ConsoleLogger {
	return &ConsoleLogger{entry: c.entry.WithField(key, value)}
}

func (c *ConsoleLogger) Info(msg string, args ...interface{}) {
	c.entry.Infof(msg, args...)
}

func (c *ConsoleLogger) Error(msg string, args ...interface{}) {
	c.entry.Errorf(msg, args...)
}

func (c *ConsoleLogger) Debug(msg string, args ...interface{}) {
	c.entry.Debugf(msg, args...)
}

// SilentLogger discards all log messages.
// Used when running in TUI mode to prevent log output from interfering with the display.
type SilentLogger struct{}

func NewSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

func (s *SilentLogger) Info(msg string, args ...interface{})  {}
func (s *SilentLogger) Error(msg string, args ...interface{}) {}
func (s *SilentLogger) Debug(msg string, args ...interface{}) {}
