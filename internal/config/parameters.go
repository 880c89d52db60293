package config

import (
	"bytes"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/banshee-data/wormtrack/internal/fsutil"
	"github.com/banshee-data/wormtrack/internal/units"
)

// Parameter names as they appear in parameters.json.
const (
	KeyConversionRate    = "CONVERSION RATE"
	KeyFrameRate         = "FRAME RATE"
	KeyDuration          = "DURATION"
	KeyAVThreshold       = "AV SPEED THREDHOLD"
	KeyAVThresholdAlt    = "AV SPEED THRESHOLD"
	KeyFreezingThreshold = "FREEZING THRESHOLD"
	KeySpeedThreshold    = "SPEED THRESHOLD"
	KeyFastForwardFactor = "FAST FORWARD FACTOR"
	KeyThigmotaxisRange  = "THIGMOTAXIS RANGE"
	KeyCenter            = "CENTER"
)

// DefaultParamsFileName is the per-treatment parameters file.
const DefaultParamsFileName = "parameters.json"

// Defaults used when a threshold is absent from the parameters blob.
const (
	DefaultAVThreshold       = 90.0
	DefaultFreezingThreshold = 0.06
	DefaultSpeedThreshold    = 6.0 * 100 / 3600
	DefaultFastForwardFactor = 10.0
	DefaultThigmotaxisRange  = 1.5
)

// ParamUnits maps scalar parameter names to their unit labels.
var ParamUnits = map[string]string{
	KeyConversionRate:    "pixel/cm",
	KeyFrameRate:         "frames/s",
	KeyDuration:          "s",
	KeyAVThreshold:       "degree/s",
	KeyFreezingThreshold: "cm/s",
	KeySpeedThreshold:    "cm/s",
	KeyFastForwardFactor: "times",
	KeyThigmotaxisRange:  "cm",
}

const maxParamsFileSize = 1 * 1024 * 1024

// Value is a parameter value: either a Scalar or a RegionMap.
type Value interface {
	isValue()
}

// Scalar is a numeric parameter.
type Scalar float64

// Point maps axis names (e.g. "X", "Y") to coordinates.
type Point map[string]float64

// RegionMap maps a well identifier to a named-axis coordinate set.
type RegionMap map[string]Point

func (Scalar) isValue()    {}
func (RegionMap) isValue() {}

// Parameters is a read-only view over one treatment's parameter blob.
type Parameters struct {
	values map[string]Value
}

// NewParameters builds Parameters from already-typed values. The map is
// deep-copied.
func NewParameters(values map[string]Value) *Parameters {
	p := &Parameters{values: make(map[string]Value, len(values))}
	for k, v := range values {
		p.values[k] = copyValue(v)
	}
	return p
}

// DefaultParameters returns the stock parameters, including the four
// well centres of the standard plate layout.
func DefaultParameters() *Parameters {
	return NewParameters(map[string]Value{
		KeyConversionRate:    Scalar(82),
		KeyFrameRate:         Scalar(30),
		KeyDuration:          Scalar(180),
		KeyAVThreshold:       Scalar(DefaultAVThreshold),
		KeyFreezingThreshold: Scalar(DefaultFreezingThreshold),
		KeySpeedThreshold:    Scalar(DefaultSpeedThreshold),
		KeyFastForwardFactor: Scalar(DefaultFastForwardFactor),
		KeyThigmotaxisRange:  Scalar(DefaultThigmotaxisRange),
		KeyCenter: RegionMap{
			"1": {"X": 252, "Y": 209},
			"2": {"X": 765, "Y": 210},
			"3": {"X": 250, "Y": 558},
			"4": {"X": 761, "Y": 548},
		},
	})
}

// ParseParameters decodes a parameters.json blob. Numbers may be given as
// JSON numbers or numeric strings. Objects whose values are objects
// become RegionMaps. Anything else is a ConfigError.
func ParseParameters(data []byte) (*Parameters, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, &ConfigError{Field: "parameters", Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	p := &Parameters{values: make(map[string]Value, len(raw))}
	for key, v := range raw {
		val, err := normaliseValue(key, v)
		if err != nil {
			return nil, err
		}
		p.values[key] = val
	}
	return p, nil
}

// LoadParameters reads a parameters file through fs. The file must have a
// .json extension and be under 1MB.
func LoadParameters(fs fsutil.FileSystem, path string) (*Parameters, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("parameters file must have .json extension, got %q", ext)
	}

	info, err := fs.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat parameters file: %w", err)
	}
	if info.Size() > maxParamsFileSize {
		return nil, fmt.Errorf("parameters file too large: %d bytes (max %d)", info.Size(), maxParamsFileSize)
	}

	data, err := fs.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read parameters file: %w", err)
	}

	p, err := ParseParameters(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cleanPath, err)
	}
	return p, nil
}

func normaliseValue(key string, v any) (Value, error) {
	if m, ok := v.(map[string]any); ok {
		regions := make(RegionMap, len(m))
		for well, inner := range m {
			axes, ok := inner.(map[string]any)
			if !ok {
				return nil, &ConfigError{Field: key + "." + well, Reason: "expected an object of axis coordinates"}
			}
			pt := make(Point, len(axes))
			for axis, c := range axes {
				f, err := toFloat(c)
				if err != nil {
					return nil, &ConfigError{Field: key + "." + well + "." + axis, Reason: err.Error()}
				}
				pt[axis] = f
			}
			regions[strings.TrimSpace(well)] = pt
		}
		return regions, nil
	}

	f, err := toFloat(v)
	if err != nil {
		return nil, &ConfigError{Field: key, Reason: err.Error()}
	}
	return Scalar(f), nil
}

// toFloat accepts JSON numbers and numeric strings.
func toFloat(v any) (float64, error) {
	var f float64
	switch t := v.(type) {
	case json.Number:
		x, err := t.Float64()
		if err != nil {
			return 0, fmt.Errorf("malformed number %q", t.String())
		}
		f = x
	case float64:
		f = t
	case int:
		f = float64(t)
	case string:
		x, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("malformed number %q", t)
		}
		f = x
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite number")
	}
	return f, nil
}

func copyValue(v Value) Value {
	rm, ok := v.(RegionMap)
	if !ok {
		return v
	}
	out := make(RegionMap, len(rm))
	for well, pt := range rm {
		cp := make(Point, len(pt))
		for a, c := range pt {
			cp[a] = c
		}
		out[well] = cp
	}
	return out
}

// Get returns the raw value for key.
func (p *Parameters) Get(key string) (Value, bool) {
	v, ok := p.values[key]
	if !ok {
		return nil, false
	}
	return copyValue(v), true
}

// Keys returns the parameter names in sorted order.
func (p *Parameters) Keys() []string {
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Scalar returns a required scalar parameter.
func (p *Parameters) Scalar(key string) (float64, error) {
	v, ok := p.values[key]
	if !ok {
		return 0, &ConfigError{Field: key, Reason: "missing"}
	}
	s, ok := v.(Scalar)
	if !ok {
		return 0, &ConfigError{Field: key, Reason: "expected a scalar"}
	}
	return float64(s), nil
}

// ScalarOr returns a scalar parameter, or def when it is absent.
func (p *Parameters) ScalarOr(key string, def float64) (float64, error) {
	if _, ok := p.values[key]; !ok {
		return def, nil
	}
	return p.Scalar(key)
}

// Regions returns a nested region map such as CENTER.
func (p *Parameters) Regions(key string) (RegionMap, error) {
	v, ok := p.values[key]
	if !ok {
		return nil, &ConfigError{Field: key, Reason: "missing"}
	}
	rm, ok := v.(RegionMap)
	if !ok {
		return nil, &ConfigError{Field: key, Reason: "expected a per-well mapping"}
	}
	return copyValue(rm).(RegionMap), nil
}

// MarshalJSON renders the blob back into parameters.json form.
func (p *Parameters) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.values))
	for k, v := range p.values {
		switch t := v.(type) {
		case Scalar:
			out[k] = float64(t)
		case RegionMap:
			out[k] = map[string]Point(t)
		}
	}
	return json.Marshal(out)
}

// Analysis builds the immutable AnalysisConfig for one run. interval is the
// turning-angle stride in frames; zero selects the frame rate.
func (p *Parameters) Analysis(interval int) (*AnalysisConfig, error) {
	conv, err := p.Scalar(KeyConversionRate)
	if err != nil {
		return nil, err
	}
	fr, err := p.Scalar(KeyFrameRate)
	if err != nil {
		return nil, err
	}
	if fr != math.Trunc(fr) {
		return nil, &ConfigError{Field: KeyFrameRate, Reason: fmt.Sprintf("must be an integer, got %v", fr)}
	}
	dur, err := p.Scalar(KeyDuration)
	if err != nil {
		return nil, err
	}

	avKey := KeyAVThreshold
	if _, ok := p.values[avKey]; !ok {
		avKey = KeyAVThresholdAlt
	}
	av, err := p.ScalarOr(avKey, DefaultAVThreshold)
	if err != nil {
		return nil, err
	}
	freeze, err := p.ScalarOr(KeyFreezingThreshold, DefaultFreezingThreshold)
	if err != nil {
		return nil, err
	}
	speed, err := p.ScalarOr(KeySpeedThreshold, DefaultSpeedThreshold)
	if err != nil {
		return nil, err
	}
	ff, err := p.ScalarOr(KeyFastForwardFactor, DefaultFastForwardFactor)
	if err != nil {
		return nil, err
	}
	thig, err := p.ScalarOr(KeyThigmotaxisRange, DefaultThigmotaxisRange)
	if err != nil {
		return nil, err
	}

	regions := make(map[string]RegionMap)
	for k, v := range p.values {
		if rm, ok := v.(RegionMap); ok {
			regions[k] = copyValue(rm).(RegionMap)
		}
	}

	frameRate := int(fr)
	if interval == 0 {
		interval = frameRate
	}

	cfg := &AnalysisConfig{
		ConversionRate:    conv,
		FrameRate:         frameRate,
		Duration:          dur,
		TotalFrames:       int(dur * fr),
		Interval:          interval,
		AVThreshold:       av,
		FreezingThreshold: freeze,
		SpeedThreshold:    speed,
		FastForwardFactor: ff,
		ThigmotaxisRange:  thig,
		Decimals:          units.DefaultDecimals,
		regions:           regions,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
