package internal

import (
	"log/slog"

	"github.com/starford/itemdesk/internal/notify"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	logger *slog.Logger
	sink   func(notify.Notification)
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger replaces the default structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *application) {
		a.logger = l
	}
}

// WithNotificationSink receives every user notification as it is raised.
// The CLI uses it to print status lines.
func WithNotificationSink(fn func(notify.Notification)) Option {
	return func(a *application) {
		a.sink = fn
	}
}

func newApplication(opts []Option) (*application, error) {
	a := &application{}
	for _, opt := range opts {
		opt(a)
	}
	if a.config == nil {
		return nil, errConfigRequired
	}
	return a, nil
}
