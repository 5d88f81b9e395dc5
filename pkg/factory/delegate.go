package factory

import (
	"github.com/samber/lo"
	"golang.org/x/exp/constraints"
)

// Delegation utilities let a composite operation expose a single property
// that fans out across every sub-factory — e.g. one "fillet distance" knob
// applied to every edge-fillet sub-operation, or a combined bounding extent
// folded from each sub-preview.

// DelegatedGetter collects a value from every factory and folds the
// collection with a reducer. Both the getter and the reducer must be pure.
func DelegatedGetter[F, V, R any](factories []F, get func(F) V, reduce func([]V) R) R {
	values := lo.Map(factories, func(f F, _ int) V { return get(f) })

	return reduce(values)
}

// DelegatedSetter applies one value to every factory.
func DelegatedSetter[F, V any](factories []F, set func(F, V), value V) {
	for _, f := range factories {
		set(f, value)
	}
}

// Reducers for DelegatedGetter. All are pure; all except First and Last are
// order-independent.

// ReduceMin returns the smallest value, or the zero value for an empty
// collection.
func ReduceMin[V constraints.Ordered](values []V) V {
	return lo.Min(values)
}

// ReduceMax returns the largest value, or the zero value for an empty
// collection.
func ReduceMax[V constraints.Ordered](values []V) V {
	return lo.Max(values)
}

// ReduceSum returns the sum of all values.
func ReduceSum[V constraints.Integer | constraints.Float](values []V) V {
	return lo.Sum(values)
}

// ReduceAverage returns the arithmetic mean, or 0 for an empty collection.
func ReduceAverage[V constraints.Integer | constraints.Float](values []V) float64 {
	if len(values) == 0 {
		return 0
	}

	return float64(lo.Sum(values)) / float64(len(values))
}

// ReduceFirst returns the first value, or the zero value if empty.
func ReduceFirst[V any](values []V) V {
	var zero V
	if len(values) == 0 {
		return zero
	}

	return values[0]
}

// ReduceLast returns the last value, or the zero value if empty.
func ReduceLast[V any](values []V) V {
	var zero V
	if len(values) == 0 {
		return zero
	}

	return values[len(values)-1]
}

// ReduceAll reports whether every value is true. True for an empty
// collection.
func ReduceAll(values []bool) bool {
	return !lo.Contains(values, false)
}

// ReduceAny reports whether at least one value is true.
func ReduceAny(values []bool) bool {
	return lo.Contains(values, true)
}

// ReduceFlatten concatenates the collected slices in order.
func ReduceFlatten[V any](values [][]V) []V {
	return lo.Flatten(values)
}
