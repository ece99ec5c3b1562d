package models

import (
	"io"
	"net/http"
)

// HTTPClient is the interface for artifact downloads.
// *http.Client satisfies this interface.
type HTTPClient interface {
	// Do sends an HTTP request and returns an HTTP response.
	Do(req *http.Request) (*http.Response, error)
}

// Logger is the interface for diagnostic logging.
// Compatible with slog, zap, logrus, and other structured loggers.
type Logger interface {
	// Debug logs a debug-level message with optional key-value pairs.
	Debug(msg string, keysAndValues ...any)

	// Info logs an info-level message with optional key-value pairs.
	Info(msg string, keysAndValues ...any)

	// Warn logs a warning-level message with optional key-value pairs.
	Warn(msg string, keysAndValues ...any)

	// Error logs an error-level message with optional key-value pairs.
	Error(msg string, keysAndValues ...any)
}

// Option configures the command tree and the capabilities it builds.
type Option func(*options)

// options holds injected collaborators for NewCommand.
type options struct {
	// httpClient is used for artifact downloads.
	httpClient HTTPClient

	// logger receives diagnostic log messages.
	logger Logger

	// confirmer approves destructive plans.
	confirmer Confirmer

	// registry overrides the Oracle connection. Used by tests.
	registry RegistryClient

	// out receives user-facing output. Defaults to the command's stdout.
	out io.Writer
}

// newOptions returns options with default values.
func newOptions() *options {
	return &options{
		httpClient: http.DefaultClient,
		confirmer:  TerminalConfirmer{},
	}
}

// WithHTTPClient sets a custom HTTP client for artifact downloads.
// Useful for testing with mock servers or customizing timeouts.
// If not set, http.DefaultClient is used.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets a logger for diagnostic output.
// If not set, logging is disabled.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithConfirmer sets the capability used to approve destructive plans.
// If not set, an interactive terminal prompt is used.
func WithConfirmer(c Confirmer) Option {
	return func(o *options) {
		o.confirmer = c
	}
}

// WithRegistry injects a registry client, bypassing the Oracle connection.
// Intended for tests against fake registries.
func WithRegistry(r RegistryClient) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithOutput redirects user-facing output.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.out = w
	}
}
