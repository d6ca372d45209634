package annkit

import "github.com/hupe1980/annkit/metrics"

// Option configures a Registry.
type Option func(r *Registry)

// WithLogger sets the logger used by the registry and by wrapped nodes
// created from entries registered afterwards. If nil, NoopLogger is used.
func WithLogger(l *Logger) Option {
	return func(r *Registry) {
		if l == nil {
			l = NoopLogger()
		}
		r.logger = l
	}
}

// WithMetrics sets the metrics collector. If nil, metrics.Noop is used.
func WithMetrics(c metrics.Collector) Option {
	return func(r *Registry) {
		if c == nil {
			c = metrics.Noop{}
		}
		r.metrics = c
	}
}
