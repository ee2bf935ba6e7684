// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Options configure New.
type Options struct {
	// Level is a logrus level name. Empty means info.
	Level string
	// Format is "json" (default) or "text".
	Format string
	// Service is attached to every entry as the service field.
	Service string
	Output  io.Writer
}

// New returns a logrus logger and the entry carrying the service field. An unknown level
// is an error rather than a silent fallback.
func New(opts Options) (*logrus.Logger, *logrus.Entry, error) {
	l := logrus.New()

	switch strings.ToLower(opts.Format) {
	case "", "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, nil, err
		}
		level = parsed
	}
	l.SetLevel(level)

	if opts.Output != nil {
		l.SetOutput(opts.Output)
	} else {
		l.SetOutput(os.Stdout)
	}

	entry := l.WithField("service", opts.Service)
	return l, entry, nil
}
