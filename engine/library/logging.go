package library

import (
	"fmt"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/mborders/logmatic"
)

// Log levels, lowest is most severe.
const (
	LevelFatal = iota
	LevelError
	LevelWarn
	LevelDebug
	LevelInfo
	LevelTrace
)

// Fields are structured key/value pairs attached to a log line.
type Fields map[string]interface{}

// Logger is the leveled, structured logging surface handed to the engine components.
type Logger interface {
	Error(msg string, fields Fields)
	Warn(msg string, fields Fields)
	Info(msg string, fields Fields)
	Debug(msg string, fields Fields)
}

// Logs to the terminal. Level options are: 0 fatal error (stack dump), 1 serious error (stack dump), 2 warning, 3 debug, 4 info, 5 trace (stack dump).
func LogCLI(message interface{}, level int) {
	Log(level, fmt.Sprint(message), nil)
}

// Log writes msg with its fields rendered as sorted key=value pairs.
func Log(level int, msg string, fields Fields) {
	write(level, msg+renderFields(fields), level != LevelWarn && level != LevelDebug && level != LevelInfo)
}

var terminal = newTerminal()

func newTerminal() *logmatic.Logger {
	l := logmatic.NewLogger()
	l.SetLevel(logmatic.TRACE)
	l.ExitOnFatal = true
	return l
}

func write(level int, line string, stack bool) {
	l := terminal
	if stack {
		debug.PrintStack()
	}
	switch level {
	case LevelTrace:
		l.Trace("%v", line)
	case LevelInfo:
		l.Info("%v", line)
	case LevelDebug:
		l.Debug("%v", line)
	case LevelWarn:
		l.Warn("%v", line)
	case LevelError, LevelFatal:
		l.Error("%v", line)
	}
}

func renderFields(fields Fields) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	return b.String()
}

// CLILogger sends everything at or above MaxLevel to the terminal.
type CLILogger struct {
	// Component is prefixed to every message, e.g. "[recognition]".
	Component string
	MaxLevel  int
}

// NewCLILogger returns a terminal logger for the named component.
func NewCLILogger(component string, maxLevel int) *CLILogger {
	return &CLILogger{Component: component, MaxLevel: maxLevel}
}

func (c *CLILogger) log(level int, msg string, fields Fields) {
	if level > c.MaxLevel {
		return
	}
	if c.Component != "" {
		msg = "[" + c.Component + "] " + msg
	}
	// errors from data units are not worth a stack dump
	write(level, msg+renderFields(fields), false)
}

func (c *CLILogger) Error(msg string, fields Fields) { c.log(LevelError, msg, fields) }
func (c *CLILogger) Warn(msg string, fields Fields)  { c.log(LevelWarn, msg, fields) }
func (c *CLILogger) Info(msg string, fields Fields)  { c.log(LevelInfo, msg, fields) }
func (c *CLILogger) Debug(msg string, fields Fields) { c.log(LevelDebug, msg, fields) }

// Nop discards everything.
var Nop Logger = nopLogger{}

type nopLogger struct{}

func (nopLogger) Error(string, Fields) {}
func (nopLogger) Warn(string, Fields)  {}
func (nopLogger) Info(string, Fields)  {}
func (nopLogger) Debug(string, Fields) {}
