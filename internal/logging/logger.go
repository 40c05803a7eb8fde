package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process logger: JSON lines in production, a human readable
// console writer everywhere else.
func New(service, env string) zerolog.Logger {
	var out io.Writer = os.Stdout
	if env != "prod" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).With().Timestamp().Str("service", service).Logger()
}
