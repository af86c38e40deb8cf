// Package logging builds the logrus logger handed to pipelines. The logger is
// created once per process and injected; nothing here touches the logrus
// standard logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Config selects level and output encoding.
type Config struct {
	Level  string    `json:"level" yaml:"level"`   // panic|fatal|error|warn|info|debug|trace
	Format string    `json:"format" yaml:"format"` // text|json
	Output io.Writer `json:"-" yaml:"-"`
}

// New constructs a logger from cfg. Empty Level means info, empty Output
// means stderr, and any Format other than "json" means text.
func New(cfg Config) (*logrus.Logger, error) {
	lvl := logrus.InfoLevel
	if s := strings.TrimSpace(cfg.Level); s != "" {
		var err error
		lvl, err = logrus.ParseLevel(s)
		if err != nil {
			return nil, fmt.Errorf("logging: %w", err)
		}
	}

	l := logrus.New()
	l.SetLevel(lvl)
	if cfg.Output != nil {
		l.SetOutput(cfg.Output)
	} else {
		l.SetOutput(os.Stderr)
	}
	if strings.EqualFold(cfg.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l, nil
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
