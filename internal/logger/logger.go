// Package logger is the process-wide structured logger. Output goes to a
// rotating file under <config dir>/logs, mirrored to stderr in debug mode.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/julianstephens/shiftcal/internal/constants"
)

const (
	dirName    = "logs"
	maxSizeMB  = 10
	maxBackups = 3
	maxAgeDays = 28
)

var (
	// Logger is nil until Init or InitWriter runs; the helpers below are
	// no-ops until then.
	Logger *log.Logger

	filePath string
	discard  = log.New(io.Discard)
)

type Config struct {
	Debug     bool
	ConfigDir string
	// Quiet keeps stderr clean while the TUI owns the terminal.
	Quiet bool
}

func Init(cfg Config) error {
	dir := filepath.Join(cfg.ConfigDir, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	filePath = filepath.Join(dir, constants.AppName+".log")

	var w io.Writer = &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
	if cfg.Debug && !cfg.Quiet {
		w = io.MultiWriter(os.Stderr, w)
	}
	Logger = build(w, cfg.Debug)
	return nil
}

// InitWriter logs to w instead of the rotating file.
func InitWriter(w io.Writer, debug bool) {
	filePath = ""
	Logger = build(w, debug)
}

func build(w io.Writer, debug bool) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Prefix:          constants.AppName,
	})
	if debug {
		l.SetLevel(log.DebugLevel)
	} else {
		l.SetLevel(log.WarnLevel)
	}
	return l
}

// Path is the active log file, or "" when logging to a writer.
func Path() string {
	return filePath
}

// For returns a logger that tags every line with component.
func For(component string) *log.Logger {
	if Logger == nil {
		return discard
	}
	return Logger.With("component", component)
}

func emit(level log.Level, msg string, keyvals []interface{}) {
	if Logger != nil {
		Logger.Log(level, msg, keyvals...)
	}
}

func Debug(msg string, keyvals ...interface{}) { emit(log.DebugLevel, msg, keyvals) }
func Info(msg string, keyvals ...interface{})  { emit(log.InfoLevel, msg, keyvals) }
func Warn(msg string, keyvals ...interface{})  { emit(log.WarnLevel, msg, keyvals) }
func Error(msg string, keyvals ...interface{}) { emit(log.ErrorLevel, msg, keyvals) }

// Fatal logs at error level and exits.
func Fatal(msg string, keyvals ...interface{}) {
	emit(log.ErrorLevel, msg, keyvals)
	os.Exit(1)
}
