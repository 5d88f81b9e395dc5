package factory

import (
	"reflect"

	"github.com/cadhy/cadhy/pkg/kernel"
)

// Params is a structured snapshot of a factory's parameters. It serves both
// the preview cache comparison and telemetry/undo descriptions.
type Params map[string]any

// ParamsEqual compares two parameter snapshots by deep value equality.
// Nested records (e.g. position triples) compare by value, not reference.
func ParamsEqual(a, b Params) bool {
	if a == nil || b == nil {
		return false
	}
	return reflect.DeepEqual(a, b)
}

// positionParams returns the parameter record contributed by a position
// triple. Factory-specific records merge on top of it, never replace it.
func positionParams(pos kernel.Position) Params {
	return Params{
		"position": map[string]float64{"x": pos.X, "y": pos.Y, "z": pos.Z},
	}
}

// mergeParams folds src records into dst, left to right, and returns dst.
// Later records win on key collisions.
func mergeParams(dst Params, src ...Params) Params {
	for _, s := range src {
		for k, v := range s {
			dst[k] = v
		}
	}
	return dst
}
