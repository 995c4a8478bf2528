package geometry

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/spatial/r3"
)

const tol = 1e-9

func vecNear(t *testing.T, want, got r3.Vec) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, tol)
	assert.InDelta(t, want.Y, got.Y, tol)
	assert.InDelta(t, want.Z, got.Z, tol)
}

func TestPoseZeroValueIsIdentity(t *testing.T) {
	var p Pose
	assert.True(t, p.IsIdentity())

	point := r3.Vec{X: 1, Y: 2, Z: 3}
	vecNear(t, point, p.TransformPoint(point))
	vecNear(t, r3.Vec{}, p.Origin())
}

func TestPoseRotationVectorRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		rvec r3.Vec
	}{
		{name: "zero", rvec: r3.Vec{}},
		{name: "x axis", rvec: r3.Vec{X: 0.5}},
		{name: "general", rvec: r3.Vec{X: 0.3, Y: -1.2, Z: 0.7}},
		{name: "near pi", rvec: r3.Vec{X: 3.1, Y: 0.1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Pose
			p.SetRotationVector(tt.rvec)
			vecNear(t, tt.rvec, p.RotationVector())
		})
	}
}

func TestPoseOriginRoundTrip(t *testing.T) {
	p := NewPoseFromRotationVector(r3.Vec{X: 0.2, Y: 0.3, Z: -0.1}, r3.Vec{})
	origin := r3.Vec{X: 4, Y: -2, Z: 1}
	p.SetOrigin(origin)

	vecNear(t, origin, p.Origin())
	// The camera center projects to zero.
	vecNear(t, r3.Vec{}, p.TransformPoint(origin))
}

func TestPoseTransformInverse(t *testing.T) {
	p := NewPoseFromRotationVector(r3.Vec{X: 0.4, Y: -0.2, Z: 0.9}, r3.Vec{X: 1, Y: 2, Z: -3})
	point := r3.Vec{X: -0.5, Y: 2.5, Z: 7}

	vecNear(t, point, p.TransformPointInverse(p.TransformPoint(point)))
	vecNear(t, point, p.Inverse().TransformPoint(p.TransformPoint(point)))
}

func TestPoseCompose(t *testing.T) {
	a := NewPoseFromRotationVector(r3.Vec{X: 0.1, Y: 0.2, Z: 0.3}, r3.Vec{X: 1, Y: 0, Z: 0})
	b := NewPoseFromRotationVector(r3.Vec{X: -0.4, Y: 0.5, Z: 0.1}, r3.Vec{X: 0, Y: -2, Z: 1})
	point := r3.Vec{X: 2, Y: -1, Z: 4}

	got := a.Compose(b).TransformPoint(point)
	want := a.TransformPoint(b.TransformPoint(point))
	vecNear(t, want, got)
}

func TestPoseComposeWithInverseIsIdentity(t *testing.T) {
	p := NewPoseFromRotationVector(r3.Vec{X: 0.7, Y: -0.3, Z: 0.2}, r3.Vec{X: 3, Y: 1, Z: -2})
	assert.True(t, p.Compose(p.Inverse()).IsIdentity())
	assert.True(t, p.Inverse().Compose(p).IsIdentity())
}

func TestPoseRelativeTo(t *testing.T) {
	world2a := NewPoseFromRotationVector(r3.Vec{X: 0.1, Y: 0.4, Z: -0.2}, r3.Vec{X: 1, Y: 2, Z: 3})
	world2b := NewPoseFromRotationVector(r3.Vec{X: -0.3, Y: 0.2, Z: 0.5}, r3.Vec{X: -1, Y: 0, Z: 2})

	// a = (a relative to b) ∘ b must reproject points identically.
	a2b := world2a.RelativeTo(world2b)
	point := r3.Vec{X: 0.5, Y: -4, Z: 2}
	vecNear(t, world2a.TransformPoint(point), a2b.Compose(world2b).TransformPoint(point))
}

func TestPoseRotationMatrix(t *testing.T) {
	angle := math.Pi / 2
	var p Pose
	p.SetRotationVector(r3.Vec{Z: angle})

	m := p.RotationMatrix()
	// Rotation by pi/2 around z maps x to y.
	assert.InDelta(t, 0, m.At(0, 0), tol)
	assert.InDelta(t, -1, m.At(0, 1), tol)
	assert.InDelta(t, 1, m.At(1, 0), tol)
	assert.InDelta(t, 0, m.At(1, 1), tol)
	assert.InDelta(t, 1, m.At(2, 2), tol)
}

func TestPoseSerializationRoundTrip(t *testing.T) {
	p := NewPoseFromRotationVector(r3.Vec{X: 0.2, Y: -0.6, Z: 1.1}, r3.Vec{X: 5, Y: -1, Z: 0.5})

	t.Run("json", func(t *testing.T) {
		data, err := json.Marshal(p)
		require.NoError(t, err)

		var got Pose
		require.NoError(t, json.Unmarshal(data, &got))
		assert.True(t, p.ApproxEqual(got, tol))
	})

	t.Run("msgpack", func(t *testing.T) {
		data, err := msgpack.Marshal(p)
		require.NoError(t, err)

		var got Pose
		require.NoError(t, msgpack.Unmarshal(data, &got))
		assert.True(t, p.ApproxEqual(got, tol))
	})
}
