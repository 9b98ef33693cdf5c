// Package logger holds the process-wide structured logger.
package logger

import (
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Log writes logfmt lines to stderr with a UTC timestamp and caller.
var Log log.Logger = newLogger(os.Getenv("LOG_LEVEL"))

func newLogger(lvl string) log.Logger {
	l := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	l = log.With(l, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
	return level.NewFilter(l, option(lvl))
}

func option(lvl string) level.Option {
	switch lvl {
	case "debug":
		return level.AllowDebug()
	case "warn":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	}
	return level.AllowInfo()
}

// With returns Log annotated with a component name.
func With(component string) log.Logger {
	return log.With(Log, "component", component)
}
