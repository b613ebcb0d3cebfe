// Package logger builds the process logger: logrus writing to stdout and,
// when a file is configured, to a rotating lumberjack file.
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	RotateMaxSize    = 30 // MB
	RotateMaxAge     = 90 // days
	RotateMaxBackups = 10
	RotateLocalTime  = true
	RotateCompress   = true
)

// Config describes the log sinks.
type Config struct {
	File  string
	Level string
}

// New builds a logger. An unknown level falls back to info.
func New(cfg Config) *logrus.Logger {
	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.Level = level
	log.Formatter = &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006.01.02 15:04:05",
	}
	log.Out = os.Stdout
	if cfg.File != "" {
		log.Out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    RotateMaxSize,
			MaxAge:     RotateMaxAge,
			MaxBackups: RotateMaxBackups,
			LocalTime:  RotateLocalTime,
			Compress:   RotateCompress,
		})
	}
	if err != nil && cfg.Level != "" {
		log.WithField("level", cfg.Level).Warn("unknown log level, using info")
	}
	return log
}

// Discard returns a logger that writes nowhere.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.Out = io.Discard
	return log
}
