package sfmgo

import "github.com/hupe1980/sfmgo/geo"

// Options contains the tunable settings of a Map.
type Options struct {
	// Logger receives structured events for mutating operations.
	Logger *Logger

	// Reference is the topocentric reference frame of the reconstruction.
	Reference geo.TopocentricConverter
}

// DefaultOptions returns the defaults used by NewMap.
func DefaultOptions() Options {
	return Options{
		Logger:    NoopLogger(),
		Reference: geo.NewTopocentricConverter(0, 0, 0),
	}
}

// Option is a function type that can be used to modify the Map options.
type Option func(*Options)

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(logger *Logger) Option {
	return func(o *Options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.Logger = logger
	}
}

// WithReference sets the topocentric reference frame from geodetic
// coordinates.
func WithReference(lat, lon, alt float64) Option {
	return func(o *Options) {
		o.Reference = geo.NewTopocentricConverter(lat, lon, alt)
	}
}
