// Package logger provides a configurable logger across tinyzkp components.
//
// The root logger defined by default uses github.com/rs/zerolog with a
// console writer, muted automatically under `go test` unless explicitly
// re-enabled.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

var root zerolog.Logger

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	root = zerolog.New(output).With().Timestamp().Logger()

	if strings.HasSuffix(os.Args[0], ".test") {
		root = zerolog.Nop()
	}
}

// SetOutput changes the output of the global logger.
func SetOutput(w io.Writer) {
	root = root.Output(w)
}

// Set allows a caller to override the global logger wholesale.
func Set(l zerolog.Logger) {
	root = l
}

// Disable silences all logging.
func Disable() {
	root = zerolog.Nop()
}

// Logger returns a sub-logger tagged with the given component name, e.g.
// Logger("scheduler") or Logger("srs").
func Logger(component string) zerolog.Logger {
	if component == "" {
		return root
	}
	return root.With().Str("component", component).Logger()
}
