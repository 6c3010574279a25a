// Package requirement models quest requirements as a closed sum type.
//
// A requirement is exactly one of Numeric, Boolean or Compound. MetricOf and
// TargetOf are total: they never panic and fall back to UnknownMetric / 0.
package requirement

import (
	"encoding/json"
	"errors"
	"fmt"
)

// UnknownMetric is returned by MetricOf when no metric can be resolved.
const UnknownMetric = "unknown"

// Comparator says how a measured value is compared with the requirement value.
type Comparator string

const (
	AtLeast Comparator = ">="
	AtMost  Comparator = "<="
	Exactly Comparator = "=="
)

// Requirement is implemented only by the variants in this package.
type Requirement interface {
	kind() string
}

// Numeric requires a metric to reach a value.
type Numeric struct {
	Metric     string
	Value      float64
	Comparator Comparator
}

// Boolean requires a yes/no metric to be reported.
type Boolean struct {
	Metric string
	Value  bool
}

// Compound groups several requirements; the first child is the primary one.
type Compound struct {
	Requirements []Requirement
}

func (Numeric) kind() string  { return "numeric" }
func (Boolean) kind() string  { return "boolean" }
func (Compound) kind() string { return "compound" }

// MetricOf returns the metric a requirement tracks.
func MetricOf(r Requirement) string {
	switch v := r.(type) {
	case Numeric:
		return v.Metric
	case Boolean:
		return v.Metric
	case Compound:
		if len(v.Requirements) == 0 {
			return UnknownMetric
		}
		return MetricOf(v.Requirements[0])
	}
	return UnknownMetric
}

// TargetOf returns the default numeric target of a requirement.
func TargetOf(r Requirement) float64 {
	switch v := r.(type) {
	case Numeric:
		return v.Value
	case Boolean:
		if v.Value {
			return 1
		}
		return 0
	case Compound:
		if len(v.Requirements) == 0 {
			return 0
		}
		return TargetOf(v.Requirements[0])
	}
	return 0
}

// ComparatorOf returns the comparator of the primary requirement. Boolean
// requirements compare as AtLeast.
func ComparatorOf(r Requirement) Comparator {
	switch v := r.(type) {
	case Numeric:
		if v.Comparator != "" {
			return v.Comparator
		}
	case Compound:
		if len(v.Requirements) > 0 {
			return ComparatorOf(v.Requirements[0])
		}
	}
	return AtLeast
}

// Met reports whether value satisfies the primary requirement against target.
func Met(r Requirement, value, target float64) bool {
	switch v := r.(type) {
	case Numeric:
		switch v.Comparator {
		case AtMost:
			return value <= target
		case Exactly:
			return value == target
		}
		return value >= target
	case Boolean:
		return value >= target
	case Compound:
		if len(v.Requirements) == 0 {
			return false
		}
		return Met(v.Requirements[0], value, target)
	}
	return false
}

// wire is the JSON shape stored in quest_templates.requirement.
type wire struct {
	Type         string            `json:"type"`
	Metric       string            `json:"metric,omitempty"`
	Value        json.RawMessage   `json:"value,omitempty"`
	Comparator   Comparator        `json:"comparator,omitempty"`
	Requirements []json.RawMessage `json:"requirements,omitempty"`
}

var ErrEmpty = errors.New("requirement: empty document")

// Decode parses the tagged JSON form.
func Decode(data []byte) (Requirement, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("requirement: %w", err)
	}
	switch w.Type {
	case "numeric":
		var value float64
		if len(w.Value) > 0 {
			if err := json.Unmarshal(w.Value, &value); err != nil {
				return nil, fmt.Errorf("requirement: numeric value: %w", err)
			}
		}
		cmp := w.Comparator
		if cmp == "" {
			cmp = AtLeast
		}
		if cmp != AtLeast && cmp != AtMost && cmp != Exactly {
			return nil, fmt.Errorf("requirement: unknown comparator %q", cmp)
		}
		return Numeric{Metric: w.Metric, Value: value, Comparator: cmp}, nil
	case "boolean":
		value := true
		if len(w.Value) > 0 {
			if err := json.Unmarshal(w.Value, &value); err != nil {
				return nil, fmt.Errorf("requirement: boolean value: %w", err)
			}
		}
		return Boolean{Metric: w.Metric, Value: value}, nil
	case "compound":
		children := make([]Requirement, 0, len(w.Requirements))
		for i, raw := range w.Requirements {
			child, err := Decode(raw)
			if err != nil {
				return nil, fmt.Errorf("requirement: child %d: %w", i, err)
			}
			children = append(children, child)
		}
		return Compound{Requirements: children}, nil
	default:
		return nil, fmt.Errorf("requirement: unknown type %q", w.Type)
	}
}

// Encode renders the tagged JSON form accepted by Decode.
func Encode(r Requirement) ([]byte, error) {
	w, err := toWire(r)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

func toWire(r Requirement) (*wire, error) {
	switch v := r.(type) {
	case Numeric:
		raw, _ := json.Marshal(v.Value)
		cmp := v.Comparator
		if cmp == "" {
			cmp = AtLeast
		}
		return &wire{Type: "numeric", Metric: v.Metric, Value: raw, Comparator: cmp}, nil
	case Boolean:
		raw, _ := json.Marshal(v.Value)
		return &wire{Type: "boolean", Metric: v.Metric, Value: raw}, nil
	case Compound:
		w := &wire{Type: "compound", Requirements: make([]json.RawMessage, 0, len(v.Requirements))}
		for i, child := range v.Requirements {
			data, err := Encode(child)
			if err != nil {
				return nil, fmt.Errorf("requirement: child %d: %w", i, err)
			}
			w.Requirements = append(w.Requirements, data)
		}
		return w, nil
	}
	return nil, fmt.Errorf("requirement: cannot encode %T", r)
}
