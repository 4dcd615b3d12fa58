package nasc

import (
	"errors"

	"go.opentelemetry.io/otel/trace"

	"github.com/sqamentor/nasc/config"
	"github.com/sqamentor/nasc/logger"
)

// Option is a function that configures a Container.
type Option func(*Container) error

// WithLogger sets the logger used for registration, construction and scope
// events.
func WithLogger(l *logger.Logger) Option {
	return func(c *Container) error {
		if l == nil {
			return errors.New("logger cannot be nil")
		}
		c.log = l.WithComponent("nasc")
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry provider for resolve and scope
// spans. The global provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Container) error {
		if tp == nil {
			return errors.New("tracer provider cannot be nil")
		}
		c.tracer = tp.Tracer(instrumentationName)
		return nil
	}
}

// WithConfig applies a loaded configuration: a logger built from its
// logging section and its container switches. A later WithLogger wins.
func WithConfig(cfg *config.Config) Option {
	return func(c *Container) error {
		if cfg == nil {
			return errors.New("config cannot be nil")
		}
		applied := *cfg
		applied.ApplyDefaults()
		if err := applied.Validate(); err != nil {
			return err
		}
		c.cfg = applied
		c.log = logger.New(&applied.Logging).WithComponent("nasc")
		return nil
	}
}
