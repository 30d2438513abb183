// Package weld implements the welding-process inference pipeline: feature
// vector building, the three-model bank, the inference service and the
// trajectory simulator.
package weld

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/weldsim/pkg/errors"
)

// NumFeatures is the length of every feature vector.
const NumFeatures = 8

// Positions of the features in a FeatureVector.
const (
	IdxMode = iota
	IdxCurrent
	IdxVoltage
	IdxWireFeedSpeed
	IdxTravelSpeed
	IdxTorchAngle
	IdxGasFlowRate
	IdxMaterialThickness
)

// FeatureVector is a validated feature record in fixed order.
type FeatureVector [NumFeatures]float64

// RawInput is an untrusted mapping from feature name to value, usually decoded JSON.
type RawInput map[string]any

var featureNames = [NumFeatures]string{
	"mode",
	"current",
	"voltage",
	"wire_feed_speed",
	"travel_speed",
	"torch_angle",
	"gas_flow_rate",
	"material_thickness",
}

var defaultFeatures = FeatureVector{
	0,     // mode (0 = TIG, 1 = MIG)
	120.0, // current, A
	22.0,  // voltage, V
	5.0,   // wire_feed_speed, mm/s
	6.0,   // travel_speed, mm/s
	5.0,   // torch_angle, deg
	12.0,  // gas_flow_rate, L/min
	2.0,   // material_thickness, mm
}

// FeatureNames returns the feature names in vector order.
func FeatureNames() []string {
	return append([]string(nil), featureNames[:]...)
}

// DefaultFeatures returns the vector used when every field is missing.
func DefaultFeatures() FeatureVector {
	return defaultFeatures
}

// Slice returns a copy of the vector as a slice.
func (v FeatureVector) Slice() []float64 {
	return append([]float64(nil), v[:]...)
}

// Map returns the vector keyed by feature name.
func (v FeatureVector) Map() map[string]float64 {
	m := make(map[string]float64, NumFeatures)
	for i, name := range featureNames {
		m[name] = v[i]
	}
	return m
}

// BuildFeatures maps an untrusted input to a feature vector. Missing fields
// take their default; present fields must be numeric. No range checks are applied.
func BuildFeatures(input RawInput) (FeatureVector, error) {
	v := defaultFeatures
	for i, name := range featureNames {
		raw, ok := input[name]
		if !ok {
			continue
		}
		f, err := toFloat(name, raw)
		if err != nil {
			return FeatureVector{}, err
		}
		v[i] = f
	}
	return v, nil
}

// EchoInput returns the coerced value of every feature present in input and
// nil for the missing ones. Values that cannot be coerced are reported as nil.
func EchoInput(input RawInput) map[string]*float64 {
	echo := make(map[string]*float64, NumFeatures)
	for _, name := range featureNames {
		raw, ok := input[name]
		if !ok {
			echo[name] = nil
			continue
		}
		f, err := toFloat(name, raw)
		if err != nil {
			echo[name] = nil
			continue
		}
		echo[name] = &f
	}
	return echo
}

// toFloat coerces a decoded value to a finite float64.
func toFloat(field string, raw any) (float64, error) {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int8:
		f = float64(v)
	case int16:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint8:
		f = float64(v)
	case uint16:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, errors.NewInvalidInputError(field, raw, "not a number")
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, errors.NewInvalidInputError(field, raw, "not a number")
		}
		f = parsed
	case nil:
		return 0, errors.NewInvalidInputError(field, raw, "null is not a number")
	default:
		return 0, errors.NewInvalidInputError(field, raw, "not a number")
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.NewInvalidInputError(field, raw, "must be finite")
	}
	return f, nil
}

// Number coerces one untrusted value the way BuildFeatures does. field names
// the value in the returned InvalidInputError.
func Number(field string, raw any) (float64, error) {
	return toFloat(field, raw)
}
