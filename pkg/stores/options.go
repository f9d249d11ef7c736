package stores

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerworks/closeflow/pkg/telemetry"
)

// Option configures optional store collaborators.
type Option func(*options)

type options struct {
	logger   zerolog.Logger
	observer Observer
	tracer   *telemetry.Tracer
	now      func() time.Time
}

// WithLogger sets the store logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithObserver sets the query observer.
func WithObserver(observer Observer) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// WithTracer sets the tracer used for query spans.
func WithTracer(tracer *telemetry.Tracer) Option {
	return func(o *options) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithClock overrides the clock used for timestamps and query timing.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{
		logger:   zerolog.Nop(),
		observer: nopObserver{},
		tracer:   telemetry.GlobalTracer(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
