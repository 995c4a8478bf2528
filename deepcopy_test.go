package sfmgo

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/hupe1980/sfmgo/geometry"
)

func TestDeepCopy(t *testing.T) {
	m := newTestMap(t)
	shot, _ := m.GetShot("shot1")
	require.NoError(t, shot.SetPose(geometry.NewPoseFromOrigin(r3.Vec{X: 1, Y: 2, Z: 3})))
	shot.MergeCC = 7
	shot.Measurements().SequenceKey.SetValue("seq1")
	shot.Mesh().SetVertices([]r3.Vec{{X: 0}, {X: 1}, {Y: 1}})
	require.NoError(t, shot.Mesh().SetFaces([][3]int{{0, 1, 2}}))

	require.NoError(t, m.AddObservationByIDs("shot1", "lm1", testObs(0.1, 0.1, 1)))
	require.NoError(t, m.AddObservationByIDs("shot2", "lm1", testObs(0.2, 0.2, 1)))
	lm, _ := m.GetLandmark("lm1")
	lm.SetReprojectionError("shot1", []float64{0.01, -0.02})

	cp := m.DeepCopy()

	t.Run("same content", func(t *testing.T) {
		assert.Equal(t, m.Shots().IDs(), cp.Shots().IDs())
		assert.Equal(t, m.Landmarks().IDs(), cp.Landmarks().IDs())
		assert.Equal(t, m.Cameras().IDs(), cp.Cameras().IDs())
		assert.Equal(t, m.RigInstances().IDs(), cp.RigInstances().IDs())

		cpShot, err := cp.GetShot("shot1")
		require.NoError(t, err)
		assert.True(t, cpShot.Pose().ApproxEqual(shot.Pose(), 1e-12))
		assert.Equal(t, int64(7), cpShot.MergeCC)
		assert.Equal(t, "seq1", cpShot.Measurements().SequenceKey.Value())
		assert.Empty(t, cmp.Diff(shot.Observations(), cpShot.Observations()))

		cpLm, err := cp.GetLandmark("lm1")
		require.NoError(t, err)
		assert.Equal(t, lm.Observations(), cpLm.Observations())
		assert.Equal(t, lm.ReprojectionErrors(), cpLm.ReprojectionErrors())
	})

	t.Run("copied links point into the copy", func(t *testing.T) {
		cpShot, _ := cp.GetShot("shot1")
		cpLm, _ := cp.GetLandmark("lm2")
		require.NoError(t, cp.AddObservation(cpShot, cpLm, testObs(0.9, 0.9, 2)))
	})

	t.Run("mutation independence", func(t *testing.T) {
		cpShot, _ := cp.GetShot("shot1")
		require.NoError(t, cp.RemoveShot("shot1"))
		assert.True(t, m.HasShot("shot1"))
		assert.True(t, lm.IsObservedIn("shot1"))

		cpLm, _ := cp.GetLandmark("lm1")
		cpLm.SetCoordinates(r3.Vec{X: 99})
		assert.Equal(t, r3.Vec{X: 1, Y: 2, Z: 3}, lm.Coordinates())

		_ = cpShot
	})

	t.Run("rig pointers are rebuilt", func(t *testing.T) {
		cp2 := m.DeepCopy()
		srcShot, _ := m.GetShot("shot2")
		cpShot, _ := cp2.GetShot("shot2")

		assert.NotSame(t, srcShot.RigInstance(), cpShot.RigInstance())
		assert.NotSame(t, srcShot.RigCamera(), cpShot.RigCamera())

		// Moving the copy's rig never moves the original shot.
		cpShot.RigInstance().SetPose(geometry.NewPoseFromOrigin(r3.Vec{Z: 5}))
		assert.True(t, srcShot.Pose().IsIdentity())
	})
}
