package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// NewLogger constructs a logrus logger configured with JSON output on stdout and the provided log level.
func NewLogger(level string) (*logrus.Logger, error) {
	return NewLoggerTo(os.Stdout, level)
}

// NewLoggerTo is NewLogger writing to out.
func NewLoggerTo(out io.Writer, level string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	logger.SetReportCaller(false)
	logger.SetLevel(logrus.InfoLevel)

	if level == "" {
		return logger, nil
	}

	parsedLevel, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, eris.Wrapf(err, "invalid log level: %s", level)
	}

	logger.SetLevel(parsedLevel)
	return logger, nil
}

// ForComponent returns a child logger entry tagged with the component name.
func ForComponent(logger *logrus.Logger, component string) *logrus.Entry {
	return logger.WithField("component", component)
}
