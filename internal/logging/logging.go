// Package logging builds the CLI's zap logger: a console core on stderr and,
// when configured, a JSON file core rotated by lumberjack.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"inhabit/internal/config"
)

// Rotation defaults applied when the settings leave them at zero.
const (
	DefaultMaxSizeMB  = 50
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 14
)

// ParseLevel maps a level name ("debug", "info", "warn", "error") to a zap
// level. The empty string means info.
func ParseLevel(s string) (zapcore.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zapcore.InfoLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s)))); err != nil {
		return l, fmt.Errorf("log level %q: %w", s, err)
	}
	return l, nil
}

// New returns a logger writing human-readable lines to console and, when
// file is non-empty, JSON lines to a rotated file.
func New(cfg config.Log, file string, console io.Writer) (*zap.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	atom := zap.NewAtomicLevelAt(level)

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(console), atom),
	}

	if file != "" {
		w, err := fileWriter(file, cfg)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), w, atom))
	}
	return zap.New(zapcore.NewTee(cores...)), nil
}

// FromSettings is New with the settings' log block, resolved log file and
// stderr as the console.
func FromSettings(s *config.Settings) (*zap.Logger, error) {
	return New(s.Log, s.LogFile(), os.Stderr)
}

func fileWriter(path string, cfg config.Log) (zapcore.WriteSyncer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	orDefault := func(v, d int) int {
		if v <= 0 {
			return d
		}
		return v
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    orDefault(cfg.MaxSizeMB, DefaultMaxSizeMB), // megabytes
		MaxBackups: orDefault(cfg.MaxBackups, DefaultMaxBackups),
		MaxAge:     orDefault(cfg.MaxAgeDays, DefaultMaxAgeDays), // days
		Compress:   cfg.Compress,
	}), nil
}
