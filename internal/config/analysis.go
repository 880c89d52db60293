package config

import (
	"fmt"
	"sort"
)

// AnalysisConfig is the immutable per-run configuration handed to every
// metric producer. Build it with Parameters.Analysis.
type AnalysisConfig struct {
	ConversionRate    float64 `validate:"gt=0"`
	FrameRate         int     `validate:"gt=0"`
	Duration          float64 `validate:"gt=0"`
	TotalFrames       int     `validate:"gt=0"`
	Interval          int     `validate:"gt=0"`
	AVThreshold       float64 `validate:"gte=0"`
	FreezingThreshold float64 `validate:"gte=0"`
	SpeedThreshold    float64 `validate:"gt=0"`
	FastForwardFactor float64 `validate:"gt=0"`
	ThigmotaxisRange  float64 `validate:"gte=0"`
	Decimals          int     `validate:"gte=0,lte=15"`

	regions map[string]RegionMap
}

// Validate checks field ranges and the interval constraint.
func (c *AnalysisConfig) Validate() error {
	if err := validateStruct(c); err != nil {
		return err
	}
	return ValidateInterval(c.FrameRate, c.Interval)
}

// ValidateInterval rejects an interval that exceeds the frame rate or does
// not divide it evenly.
func ValidateInterval(frameRate, interval int) error {
	if interval <= 0 {
		return &ConfigError{Field: "interval", Reason: fmt.Sprintf("must be positive, got %d", interval)}
	}
	if interval > frameRate {
		return &ConfigError{Field: "interval", Reason: fmt.Sprintf("%d exceeds frame rate %d", interval, frameRate)}
	}
	if frameRate%interval != 0 {
		return &ConfigError{Field: "interval", Reason: fmt.Sprintf("%d does not divide frame rate %d", interval, frameRate)}
	}
	return nil
}

// SpeedLimit is the spike threshold: speed threshold times fast-forward factor.
func (c *AnalysisConfig) SpeedLimit() float64 {
	return c.SpeedThreshold * c.FastForwardFactor
}

// ChunkSize is the number of turning angles per angular-velocity sample.
func (c *AnalysisConfig) ChunkSize() int {
	return c.FrameRate / c.Interval
}

// WithInterval returns a copy of c with a different interval, validated.
func (c *AnalysisConfig) WithInterval(interval int) (*AnalysisConfig, error) {
	cp := *c
	cp.Interval = interval
	if interval == 0 {
		cp.Interval = c.FrameRate
	}
	if err := ValidateInterval(cp.FrameRate, cp.Interval); err != nil {
		return nil, err
	}
	return &cp, nil
}

// RegionNames lists the configured region maps (e.g. CENTER).
func (c *AnalysisConfig) RegionNames() []string {
	names := make([]string, 0, len(c.regions))
	for n := range c.regions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RegionCenter returns the coordinate set of region name for one well.
// A missing region, well, or empty coordinate set is a ConfigError.
func (c *AnalysisConfig) RegionCenter(name, well string) (Point, error) {
	rm, ok := c.regions[name]
	if !ok {
		return nil, &ConfigError{Field: name, Reason: "missing"}
	}
	pt, ok := rm[well]
	if !ok {
		return nil, &ConfigError{Field: name + "." + well, Reason: fmt.Sprintf("no entry for well %s", well)}
	}
	if len(pt) == 0 {
		return nil, &ConfigError{Field: name + "." + well, Reason: "no axes"}
	}
	cp := make(Point, len(pt))
	for a, v := range pt {
		cp[a] = v
	}
	return cp, nil
}
