package logger

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)

	With(fields ...zap.Field) Logger
	Sync() error
}

// Options configure New.
type Options struct {
	Dir     string    // daily log files go here; empty disables file output
	Debug   bool      // debug level instead of info
	Console io.Writer // optional human readable sink, e.g. os.Stderr
	Now     func() time.Time
}

const (
	filePrefix    = "shiori-"
	fileSuffix    = ".log"
	fileDayLayout = "2006-01-02"

	// RetentionDays is how long daily log files are kept.
	RetentionDays = 7
)

type loggerImpl struct {
	base  *zap.Logger
	close func() error
}

// New builds a logger writing JSON lines to today's file in opts.Dir and,
// when opts.Console is set, colourless console lines to that writer.
func New(opts Options) (Logger, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	level := zapcore.InfoLevel
	if opts.Debug {
		level = zapcore.DebugLevel
	}

	var cores []zapcore.Core
	var closer func() error

	if dir := strings.TrimSpace(opts.Dir); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		path := filepath.Join(dir, FileName(now()))
		file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		closer = file.Close
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder := zapcore.NewJSONEncoder(cfg)
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(file), level))
	}

	if opts.Console != nil {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(opts.Console), level))
	}

	if len(cores) == 0 {
		return Nop(), nil
	}
	return &loggerImpl{base: zap.New(zapcore.NewTee(cores...)), close: closer}, nil
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return &loggerImpl{base: zap.NewNop()}
}

// FromZap wraps an existing zap logger, mostly for tests using zaptest/observer.
func FromZap(base *zap.Logger) Logger {
	return &loggerImpl{base: base}
}

func (l *loggerImpl) Debug(msg string, fields ...zap.Field) { l.base.Debug(msg, fields...) }
func (l *loggerImpl) Info(msg string, fields ...zap.Field)  { l.base.Info(msg, fields...) }
func (l *loggerImpl) Warn(msg string, fields ...zap.Field)  { l.base.Warn(msg, fields...) }
func (l *loggerImpl) Error(msg string, fields ...zap.Field) { l.base.Error(msg, fields...) }

func (l *loggerImpl) With(fields ...zap.Field) Logger {
	return &loggerImpl{base: l.base.With(fields...)}
}

// Sync flushes and closes the log file. It is safe to call on Nop loggers.
func (l *loggerImpl) Sync() error {
	err := l.base.Sync()
	if l.close != nil {
		if cerr := l.close(); cerr != nil && err == nil {
			err = cerr
		}
		l.close = nil
	}
	return err
}

// FileName returns the daily log file name for t.
func FileName(t time.Time) string {
	return filePrefix + t.Format(fileDayLayout) + fileSuffix
}

// Files lists the daily log files in dir, oldest first.
func Files(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read log dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	// The date layout sorts lexically.
	sort.Strings(files)
	return files, nil
}

// Cleanup removes log files dated more than retention days before now.
func Cleanup(dir string, retention int, now time.Time) error {
	files, err := Files(dir)
	if err != nil {
		return err
	}
	cutoff := time.Date(now.Year(), now.Month(), now.Day()-retention, 0, 0, 0, 0, now.Location())
	for _, path := range files {
		stamp := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), filePrefix), fileSuffix)
		day, err := time.ParseInLocation(fileDayLayout, stamp, now.Location())
		if err != nil {
			continue
		}
		if day.Before(cutoff) {
			_ = os.Remove(path)
		}
	}
	return nil
}

// Export writes every log file in dir to w, oldest first, under a header.
func Export(dir string, w io.Writer, now time.Time) error {
	files, err := Files(dir)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Shiori Share Debug Log Export\nGenerated: %s\n%s\n\n",
		now.Format("2006-01-02 15:04:05"), strings.Repeat("=", 50)); err != nil {
		return fmt.Errorf("write export header: %w", err)
	}
	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if _, err := fmt.Fprintf(w, "--- %s ---\n%s\n\n", filepath.Base(path), content); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
	}
	return nil
}

// Clear removes every log file in dir.
func Clear(dir string) error {
	files, err := Files(dir)
	if err != nil {
		return err
	}
	for _, path := range files {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

var sensitiveHeaders = map[string]bool{
	"Authorization": true,
	"Cookie":        true,
	"Set-Cookie":    true,
	"X-Session-Id":  true,
}

// Headers logs h with credentials replaced by [REDACTED].
func Headers(h http.Header) zap.Field {
	out := make(map[string]string, len(h))
	for key, values := range h {
		canonical := http.CanonicalHeaderKey(key)
		if sensitiveHeaders[canonical] {
			out[canonical] = "[REDACTED]"
			continue
		}
		out[canonical] = strings.Join(values, ", ")
	}
	return zap.Any("headers", out)
}

// Field constructors (re-exported from zap for convenience)
func String(key, val string) zap.Field                 { return zap.String(key, val) }
func Int(key string, val int) zap.Field                { return zap.Int(key, val) }
func Bool(key string, val bool) zap.Field              { return zap.Bool(key, val) }
func Duration(key string, val time.Duration) zap.Field { return zap.Duration(key, val) }
func Strings(key string, val []string) zap.Field       { return zap.Strings(key, val) }
func Error(err error) zap.Field                        { return zap.Error(err) }
