package formskema

import "log/slog"

// Option configures a Form at construction.
type Option func(*config)

type config struct {
	logger  *slog.Logger
	name    string
	compose bool
	auto    bool
}

func defaultConfig() config {
	return config{logger: slog.New(slog.DiscardHandler)}
}

// WithLogger sets the logger used for validation and cascade records.
// Nil loggers are ignored.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithName labels the form in log records.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// WithCompose calls Compose once the form is constructed.
func WithCompose() Option {
	return func(c *config) { c.compose = true }
}

// WithAutoValidation enables auto-validation on the form and all of its
// children once the form is constructed.
func WithAutoValidation() Option {
	return func(c *config) { c.auto = true }
}
