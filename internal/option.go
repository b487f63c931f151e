package internal

import "io"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	logOut io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogWriter redirects the JSON log stream. Run defaults to stdout and
// RunMCP to stderr, which keeps stdout free for the protocol.
func WithLogWriter(w io.Writer) Option {
	return func(a *application) {
		a.logOut = w
	}
}
