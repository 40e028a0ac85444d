// Package logger builds logrus loggers from configuration
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Config contains logging settings
type Config struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// New returns a logger configured by cfg. Invalid settings fall back
// to info level, JSON format, and stdout.
func New(cfg Config) *logrus.Logger {
	log := logrus.New()
	SetLevel(log, cfg.Level)

	switch cfg.Format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	case "text":
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	default:
		log.Warnf("invalid log format '%s', using 'json'", cfg.Format)
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	switch cfg.Output {
	case "", "stdout":
		log.SetOutput(os.Stdout)
	case "stderr":
		log.SetOutput(os.Stderr)
	default:
		// Assume file path
		file, err := os.OpenFile(cfg.Output,
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			log.Warnf("failed to open log file '%s', using stdout", cfg.Output)
			log.SetOutput(os.Stdout)
		} else {
			log.SetOutput(file)
		}
	}

	return log
}

// SetLevel sets the level of log, falling back to info when level
// cannot be parsed
func SetLevel(log *logrus.Logger, level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		log.Warnf("invalid log level '%s', using 'info'", level)
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
}
