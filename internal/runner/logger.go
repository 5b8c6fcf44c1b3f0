package runner

import (
	"io"

	"github.com/rs/zerolog"
)

// noopLogger is used when a caller hasn't supplied one of its own; RunMany
// is usually invoked with a logger routed through the same zerolog
// pipeline the rest of the module uses, but tests and library callers that
// only want the bug list shouldn't have to wire one up.
func noopLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}
