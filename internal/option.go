package internal

import (
	"io"

	"github.com/starford/algiz/internal/baseline"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	digest  baseline.Digester
	console io.Writer
	version string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithDigester replaces the SHA-256 file digester.
func WithDigester(d baseline.Digester) Option {
	return func(a *application) {
		a.digest = d
	}
}

// WithConsole sets where structured console logs are written (stdout by default).
func WithConsole(w io.Writer) Option {
	return func(a *application) {
		a.console = w
	}
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}
