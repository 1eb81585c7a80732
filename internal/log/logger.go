package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Settings controls where and how verbosely the roster logs.
type Settings struct {
	Level string
	// File, when set, receives the log output instead of stderr and is rotated.
	File string
}

// NewLogger constructs a logrus logger configured with JSON output and the provided log level.
func NewLogger(settings Settings) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	logger.SetReportCaller(false)
	logger.SetLevel(logrus.InfoLevel)
	logger.SetOutput(outputFor(settings.File))

	if settings.Level == "" {
		return logger, nil
	}

	parsedLevel, err := logrus.ParseLevel(strings.ToLower(settings.Level))
	if err != nil {
		return nil, eris.Wrapf(err, "invalid log level: %s", settings.Level)
	}

	logger.SetLevel(parsedLevel)
	return logger, nil
}

func outputFor(path string) io.Writer {
	if strings.TrimSpace(path) == "" {
		return os.Stderr
	}

	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
}
