package construct

import (
	"pixgeo/internal/platform/logger"
	"pixgeo/internal/platform/metrics"
)

// Default material names looked up in the backend
const (
	DefaultWorldMaterial  = "air"
	DefaultSensorMaterial = "silicon"
	DefaultChipMaterial   = "silicon"
	DefaultBumpMaterial   = "solder"
)

// Option mutates constructor configuration
type Option func(*buildCfg)

// buildCfg is internal wiring state for options
type buildCfg struct {
	worldMaterial  string
	sensorMaterial string
	chipMaterial   string
	bumpMaterial   string
	log            *logger.Logger
	metrics        *metrics.Metrics
}

func defaults() buildCfg {
	return buildCfg{
		worldMaterial:  DefaultWorldMaterial,
		sensorMaterial: DefaultSensorMaterial,
		chipMaterial:   DefaultChipMaterial,
		bumpMaterial:   DefaultBumpMaterial,
	}
}

// WithWorldMaterial sets the material filling wrappers
func WithWorldMaterial(name string) Option {
	return func(c *buildCfg) {
		if name != "" {
			c.worldMaterial = name
		}
	}
}

// WithSensorMaterial sets the sensor and pixel material
func WithSensorMaterial(name string) Option {
	return func(c *buildCfg) {
		if name != "" {
			c.sensorMaterial = name
		}
	}
}

// WithChipMaterial sets the readout chip material
func WithChipMaterial(name string) Option {
	return func(c *buildCfg) {
		if name != "" {
			c.chipMaterial = name
		}
	}
}

// WithBumpMaterial sets the bump bond material of hybrid models
func WithBumpMaterial(name string) Option {
	return func(c *buildCfg) {
		if name != "" {
			c.bumpMaterial = name
		}
	}
}

// WithLogger sets the constructor logger
func WithLogger(l *logger.Logger) Option {
	return func(c *buildCfg) { c.log = l }
}

// WithMetrics enables construction metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *buildCfg) { c.metrics = m }
}
