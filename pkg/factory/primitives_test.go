package factory

import (
	"context"
	"testing"

	"github.com/cadhy/cadhy/pkg/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoxEngineArgumentOrder(t *testing.T) {
	t.Parallel()

	eng := newFakeEngine()
	f := NewBox(eng)

	require.True(t, f.SetWidth(10))
	require.True(t, f.SetHeight(20))
	require.True(t, f.SetDepth(30))
	require.True(t, f.SetPosition(kernel.Position{X: 1, Y: 2, Z: 3}))

	_, err := f.Update(context.Background(), kernel.Options{})
	require.NoError(t, err)

	call := eng.lastCreate()
	assert.Equal(t, "box", call.kind)
	assert.Equal(t, kernel.Position{X: 1, Y: 2, Z: 3}, call.pos)
	// Engine order is width, depth, height.
	assert.Equal(t, []float64{10, 30, 20}, call.args)
}

func TestDimensionSettersRejectNonPositive(t *testing.T) {
	t.Parallel()

	eng := newFakeEngine()

	box := NewBox(eng)
	assert.False(t, box.SetWidth(0))
	assert.False(t, box.SetHeight(-1))
	assert.Equal(t, 10.0, box.Width())
	assert.Equal(t, 10.0, box.Height())

	cyl := NewCylinder(eng)
	assert.False(t, cyl.SetRadius(-5))
	assert.Equal(t, 5.0, cyl.Radius())

	sphere := NewSphere(eng)
	assert.False(t, sphere.SetRadius(0))
	assert.Equal(t, 5.0, sphere.Radius())
}

func TestSetterReturnsFalseOnUnchangedValue(t *testing.T) {
	t.Parallel()

	f := NewBox(newFakeEngine())

	assert.False(t, f.SetWidth(10)) // default already 10
	assert.True(t, f.SetWidth(11))
	assert.False(t, f.SetWidth(11))

	assert.False(t, f.SetPosition(kernel.Position{}))
	assert.True(t, f.SetPosition(kernel.Position{X: 1}))
}

func TestConeRadiiMayDegenerateToZero(t *testing.T) {
	t.Parallel()

	f := NewCone(newFakeEngine())

	// Defaults: pointed cone, already valid with a zero top radius.
	assert.True(t, f.IsValid())

	// Inverted cone: zero base, positive top.
	require.True(t, f.SetBaseRadius(0))
	require.True(t, f.SetTopRadius(3))
	assert.True(t, f.IsValid())

	// Both radii zero is degenerate.
	require.True(t, f.SetTopRadius(0))
	assert.False(t, f.IsValid())

	// Negative radii are rejected outright.
	assert.False(t, f.SetBaseRadius(-1))

	// Zero height never validates.
	require.True(t, f.SetBaseRadius(4))
	assert.False(t, f.SetHeight(0))
	assert.True(t, f.IsValid())
}

func TestConeEngineArgumentOrder(t *testing.T) {
	t.Parallel()

	eng := newFakeEngine()
	f := NewCone(eng)

	require.True(t, f.SetBaseRadius(6))
	require.True(t, f.SetTopRadius(2))
	require.True(t, f.SetHeight(12))

	_, err := f.Update(context.Background(), kernel.Options{})
	require.NoError(t, err)

	call := eng.lastCreate()
	assert.Equal(t, "cone", call.kind)
	assert.Equal(t, []float64{6, 2, 12}, call.args)
}

func TestTorusValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		major float64
		minor float64
		valid bool
	}{
		{"tube thinner than ring", 10, 2, true},
		{"tube nearly as thick as ring", 10, 9.9, true},
		{"tube equals ring", 10, 10, false},
		{"tube thicker than ring", 5, 8, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := NewTorus(newFakeEngine())
			f.SetMajorRadius(tt.major)
			f.SetMinorRadius(tt.minor)

			assert.Equal(t, tt.valid, f.IsValid())
		})
	}
}

func TestParamsIncludePositionAndDimensions(t *testing.T) {
	t.Parallel()

	f := NewCylinder(newFakeEngine())
	require.True(t, f.SetPosition(kernel.Position{X: 1, Y: 2, Z: 3}))
	require.True(t, f.SetRadius(7))

	params := f.Params()
	assert.Equal(t, 7.0, params["radius"])
	assert.Equal(t, 10.0, params["height"])
	assert.Equal(t, map[string]float64{"x": 1, "y": 2, "z": 3}, params["position"])
}

func TestEveryPrimitiveRoundTripsThroughCommit(t *testing.T) {
	t.Parallel()

	eng := newFakeEngine()
	ctx := context.Background()

	factories := []Composable{
		NewBox(eng),
		NewCylinder(eng),
		NewSphere(eng),
		NewCone(eng),
		NewTorus(eng),
	}

	for _, f := range factories {
		mesh, err := f.UpdateWithCache(ctx, kernel.Options{})
		require.NoError(t, err, f.Name())
		assert.False(t, mesh.IsEmpty(), f.Name())

		result, err := f.Commit(ctx, kernel.Options{})
		require.NoError(t, err, f.Name())
		assert.True(t, result.Success, f.Name())
		assert.NotEmpty(t, result.ShapeID, f.Name())
		assert.Equal(t, StateCommitted, f.State(), f.Name())
	}

	// One engine creation per primitive; every commit promoted its preview.
	assert.Equal(t, len(factories), eng.createCount())
}
