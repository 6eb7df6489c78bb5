package worker

import (
	"github.com/okian/rollcall/pkg/logger"
)

// Option applies a configuration option to the Worker.
type Option func(*Worker)

// WithName sets the worker name for logging.
func WithName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithNotifier attaches an observer for committed recognitions.
func WithNotifier(n Notifier) Option {
	return func(w *Worker) {
		w.notifier = n
	}
}
