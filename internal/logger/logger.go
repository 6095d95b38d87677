// Package logger builds the hclog loggers used across validb.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// New returns a named logger writing to stderr at the given level. Unknown
// levels fall back to INFO.
func New(level, name string) hclog.Logger {
	return NewWithOutput(level, name, os.Stderr)
}

// NewWithOutput is New with an explicit destination.
func NewWithOutput(level, name string, out io.Writer) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:        name,
		DisableTime: true,
		Output:      out,
		Level:       ParseLevel(level),
	})
}

// ParseLevel maps TRACE, DEBUG, INFO, WARN and ERROR, in any case, to hclog levels.
func ParseLevel(level string) hclog.Level {
	switch strings.ToUpper(level) {
	case "TRACE":
		return hclog.Trace
	case "DEBUG":
		return hclog.Debug
	case "WARN":
		return hclog.Warn
	case "ERROR":
		return hclog.Error
	default:
		return hclog.Info
	}
}
