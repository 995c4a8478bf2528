package sfmgo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/hupe1980/sfmgo/geometry"
	"github.com/hupe1980/sfmgo/model"
)

func testCamera(id CameraID) *geometry.Camera {
	cam := geometry.NewPerspectiveCamera(0.9, -0.1, 0.01)
	cam.ID = id
	cam.Width = 1920
	cam.Height = 1080
	return cam
}

func testObs(x, y float64, feature FeatureID) Observation {
	return model.NewObservation(x, y, 0.02, 10, 20, 30, feature)
}

// newTestMap builds a map with one camera, two shots and two landmarks.
func newTestMap(t *testing.T) *Map {
	t.Helper()
	m := NewMap()
	_, err := m.CreateCamera(testCamera("cam1"))
	require.NoError(t, err)
	for _, id := range []ShotID{"shot1", "shot2"} {
		_, err := m.CreateShot(id, "cam1")
		require.NoError(t, err)
	}
	for _, id := range []LandmarkID{"lm1", "lm2"} {
		_, err := m.CreateLandmark(id, r3.Vec{X: 1, Y: 2, Z: 3})
		require.NoError(t, err)
	}
	return m
}

func TestMapCameras(t *testing.T) {
	m := NewMap()

	created, err := m.CreateCamera(testCamera("cam1"))
	require.NoError(t, err)
	assert.Equal(t, "cam1", created.ID)
	assert.True(t, m.HasCamera("cam1"))
	assert.Equal(t, 1, m.NumCameras())

	t.Run("stored camera is a copy", func(t *testing.T) {
		original := testCamera("cam2")
		stored, err := m.CreateCamera(original)
		require.NoError(t, err)
		original.Focal = 0.1
		assert.Equal(t, 0.9, stored.Focal)
	})

	t.Run("duplicate", func(t *testing.T) {
		_, err := m.CreateCamera(testCamera("cam1"))
		assert.ErrorIs(t, err, ErrDuplicateKey)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := m.GetCamera("nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMapBiases(t *testing.T) {
	m := NewMap()
	_, err := m.CreateCamera(testCamera("cam1"))
	require.NoError(t, err)

	t.Run("default is identity", func(t *testing.T) {
		bias, err := m.GetBias("cam1")
		require.NoError(t, err)
		assert.Equal(t, 1.0, bias.Scale)
		assert.Equal(t, [3]float64{}, bias.Rotation)
	})

	t.Run("set and get", func(t *testing.T) {
		bias := geometry.NewSimilarity()
		bias.Scale = 2.5
		require.NoError(t, m.SetBias("cam1", bias))

		got, err := m.GetBias("cam1")
		require.NoError(t, err)
		assert.Equal(t, 2.5, got.Scale)
	})

	t.Run("unknown camera", func(t *testing.T) {
		assert.ErrorIs(t, m.SetBias("nope", geometry.NewSimilarity()), ErrNotFound)
		_, err := m.GetBias("nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMapCreateShotDefaultRig(t *testing.T) {
	m := NewMap()
	_, err := m.CreateCamera(testCamera("cam1"))
	require.NoError(t, err)

	shot, err := m.CreateShot("shot1", "cam1")
	require.NoError(t, err)

	t.Run("rig camera named after camera", func(t *testing.T) {
		rc := shot.RigCamera()
		require.NotNil(t, rc)
		assert.Equal(t, RigCameraID("cam1"), rc.ID)
		assert.True(t, rc.Pose.IsIdentity())
	})

	t.Run("instance named after shot", func(t *testing.T) {
		ri := shot.RigInstance()
		require.NotNil(t, ri)
		assert.Equal(t, RigInstanceID("shot1"), ri.ID())
		assert.Equal(t, 1, ri.NumShots())
	})

	t.Run("second shot shares the rig camera", func(t *testing.T) {
		shot2, err := m.CreateShot("shot2", "cam1")
		require.NoError(t, err)
		assert.Same(t, shot.RigCamera(), shot2.RigCamera())
		assert.NotSame(t, shot.RigInstance(), shot2.RigInstance())
		assert.Equal(t, 1, m.NumRigCameras())
		assert.Equal(t, 2, m.NumRigInstances())
	})

	t.Run("duplicate shot", func(t *testing.T) {
		_, err := m.CreateShot("shot1", "cam1")
		assert.ErrorIs(t, err, ErrDuplicateKey)
	})

	t.Run("posed rig camera shadowing the default name", func(t *testing.T) {
		fresh := NewMap()
		_, err := fresh.CreateCamera(testCamera("cam1"))
		require.NoError(t, err)
		_, err = fresh.CreateRigCamera(RigCamera{ID: "cam1", Pose: geometry.NewPoseFromOrigin(r3.Vec{X: 0.5})})
		require.NoError(t, err)

		_, err = fresh.CreateShot("shot1", "cam1")
		assert.ErrorIs(t, err, ErrInvalidState)
		_, err = fresh.CreateShotWithPose("shot2", "cam1", geometry.NewPoseFromOrigin(r3.Vec{X: 1}))
		assert.ErrorIs(t, err, ErrInvalidState)

		// The failed creates leave nothing behind.
		assert.Equal(t, 0, fresh.NumShots())
		assert.Equal(t, 0, fresh.NumRigInstances())
	})

	t.Run("unknown camera", func(t *testing.T) {
		_, err := m.CreateShot("shot3", "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMapCreateShotInRig(t *testing.T) {
	m := NewMap()
	_, err := m.CreateCamera(testCamera("cam1"))
	require.NoError(t, err)

	left := geometry.NewPose()
	right := geometry.NewPoseFromOrigin(r3.Vec{X: 0.2})
	_, err = m.CreateRigCamera(RigCamera{ID: "left", Pose: left})
	require.NoError(t, err)
	_, err = m.CreateRigCamera(RigCamera{ID: "right", Pose: right})
	require.NoError(t, err)
	_, err = m.CreateRigInstance("inst1")
	require.NoError(t, err)

	shotL, err := m.CreateShotInRig("inst1", "left", "imgL", "cam1")
	require.NoError(t, err)
	shotR, err := m.CreateShotInRig("inst1", "right", "imgR", "cam1")
	require.NoError(t, err)

	assert.Same(t, shotL.RigInstance(), shotR.RigInstance())
	assert.Equal(t, 2, shotL.RigInstance().NumShots())

	t.Run("unknown rig entities", func(t *testing.T) {
		_, err := m.CreateShotInRig("nope", "left", "x", "cam1")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = m.CreateShotInRig("inst1", "nope", "x", "cam1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("duplicate shot id", func(t *testing.T) {
		_, err := m.CreateShotInRig("inst1", "left", "imgL", "cam1")
		assert.ErrorIs(t, err, ErrDuplicateKey)
	})
}

func TestMapRemoveShot(t *testing.T) {
	m := newTestMap(t)
	require.NoError(t, m.AddObservationByIDs("shot1", "lm1", testObs(0.1, 0.1, 1)))
	require.NoError(t, m.AddObservationByIDs("shot2", "lm1", testObs(0.2, 0.2, 1)))

	require.NoError(t, m.RemoveShot("shot1"))

	assert.False(t, m.HasShot("shot1"))
	assert.Equal(t, 1, m.NumShots())

	t.Run("landmark observation detached", func(t *testing.T) {
		lm, err := m.GetLandmark("lm1")
		require.NoError(t, err)
		assert.Equal(t, 1, lm.NumberOfObservations())
		assert.False(t, lm.IsObservedIn("shot1"))
	})

	t.Run("empty instance survives", func(t *testing.T) {
		ri, err := m.GetRigInstance("shot1")
		require.NoError(t, err)
		assert.Equal(t, 0, ri.NumShots())
	})

	t.Run("shot can be recreated", func(t *testing.T) {
		_, err := m.CreateShot("shot1", "cam1")
		require.NoError(t, err)
	})

	t.Run("missing shot", func(t *testing.T) {
		assert.ErrorIs(t, m.RemoveShot("nope"), ErrNotFound)
	})
}

func TestMapRemoveRigInstance(t *testing.T) {
	m := newTestMap(t)

	t.Run("non-empty instance refuses", func(t *testing.T) {
		assert.ErrorIs(t, m.RemoveRigInstance("shot1"), ErrInvalidState)
	})

	t.Run("empty instance removed", func(t *testing.T) {
		require.NoError(t, m.RemoveShot("shot1"))
		require.NoError(t, m.RemoveRigInstance("shot1"))
		assert.False(t, m.HasRigInstance("shot1"))
	})

	t.Run("missing", func(t *testing.T) {
		assert.ErrorIs(t, m.RemoveRigInstance("nope"), ErrNotFound)
	})
}

func TestMapLandmarks(t *testing.T) {
	m := NewMap()

	lm, err := m.CreateLandmark("lm1", r3.Vec{X: 1, Y: 2, Z: 3})
	require.NoError(t, err)
	assert.Equal(t, LandmarkID("lm1"), lm.ID())
	assert.Equal(t, r3.Vec{X: 1, Y: 2, Z: 3}, lm.Coordinates())
	assert.True(t, m.HasLandmark("lm1"))

	t.Run("duplicate", func(t *testing.T) {
		_, err := m.CreateLandmark("lm1", r3.Vec{})
		assert.ErrorIs(t, err, ErrDuplicateKey)
	})

	t.Run("mutators", func(t *testing.T) {
		lm.SetCoordinates(r3.Vec{X: 9})
		lm.SetColor([3]int{255, 0, 0})
		assert.Equal(t, r3.Vec{X: 9}, lm.Coordinates())
		assert.Equal(t, [3]int{255, 0, 0}, lm.Color())
	})

	t.Run("remove missing", func(t *testing.T) {
		assert.ErrorIs(t, m.RemoveLandmark("nope"), ErrNotFound)
	})
}

func TestMapObservations(t *testing.T) {
	m := newTestMap(t)
	shot, _ := m.GetShot("shot1")
	lm, _ := m.GetLandmark("lm1")

	require.NoError(t, m.AddObservation(shot, lm, testObs(0.1, 0.2, 7)))

	t.Run("both sides linked", func(t *testing.T) {
		got, err := shot.ObservationOf("lm1")
		require.NoError(t, err)
		assert.Equal(t, [2]float64{0.1, 0.2}, got.Point)

		assert.True(t, lm.IsObservedIn("shot1"))
		assert.Equal(t, FeatureID(7), lm.Observations()["shot1"])

		id, ok := shot.LandmarkOfFeature(7)
		assert.True(t, ok)
		assert.Equal(t, LandmarkID("lm1"), id)
	})

	t.Run("feature id collision", func(t *testing.T) {
		lm2, _ := m.GetLandmark("lm2")
		err := m.AddObservation(shot, lm2, testObs(0.3, 0.3, 7))
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("relink same pair overwrites", func(t *testing.T) {
		require.NoError(t, m.AddObservation(shot, lm, testObs(0.5, 0.5, 7)))
		got, err := shot.ObservationOf("lm1")
		require.NoError(t, err)
		assert.Equal(t, [2]float64{0.5, 0.5}, got.Point)
		assert.Equal(t, 1, shot.NumberOfObservations())
	})

	t.Run("changing the feature id drops the stale mapping", func(t *testing.T) {
		require.NoError(t, m.AddObservation(shot, lm, testObs(0.6, 0.6, 9)))

		_, ok := shot.LandmarkOfFeature(7)
		assert.False(t, ok)
		id, ok := shot.LandmarkOfFeature(9)
		assert.True(t, ok)
		assert.Equal(t, LandmarkID("lm1"), id)
		assert.Equal(t, FeatureID(9), lm.Observations()["shot1"])
	})

	t.Run("cross map entities rejected", func(t *testing.T) {
		other := newTestMap(t)
		otherLm, _ := other.GetLandmark("lm2")
		assert.ErrorIs(t, m.AddObservation(shot, otherLm, testObs(0, 0, 9)), ErrInvalidState)

		otherShot, _ := other.GetShot("shot2")
		assert.ErrorIs(t, m.AddObservation(otherShot, lm, testObs(0, 0, 9)), ErrInvalidState)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, m.RemoveObservation("shot1", "lm1"))
		assert.Equal(t, 0, shot.NumberOfObservations())
		assert.False(t, lm.HasObservations())
		_, ok := shot.LandmarkOfFeature(7)
		assert.False(t, ok)
		_, ok = shot.LandmarkOfFeature(9)
		assert.False(t, ok)

		assert.ErrorIs(t, m.RemoveObservation("shot1", "lm1"), ErrNotFound)
	})
}

func TestMapObservationsRegularShotsOnly(t *testing.T) {
	m := newTestMap(t)
	lm, _ := m.GetLandmark("lm1")

	t.Run("pano shot rejected", func(t *testing.T) {
		pano, err := m.CreatePanoShot("pano1", "cam1")
		require.NoError(t, err)

		assert.ErrorIs(t, m.AddObservation(pano, lm, testObs(0.1, 0.1, 1)), ErrInvalidState)
		assert.Equal(t, 0, pano.NumberOfObservations())
		assert.False(t, lm.HasObservations())
	})

	t.Run("removed shot rejected", func(t *testing.T) {
		shot, _ := m.GetShot("shot1")
		require.NoError(t, m.RemoveShot("shot1"))

		assert.ErrorIs(t, m.AddObservation(shot, lm, testObs(0.2, 0.2, 2)), ErrInvalidState)
		assert.False(t, lm.HasObservations())
	})
}

func TestMapRemoveLandmarkCascade(t *testing.T) {
	m := newTestMap(t)
	require.NoError(t, m.AddObservationByIDs("shot1", "lm1", testObs(0.1, 0.1, 1)))
	require.NoError(t, m.AddObservationByIDs("shot2", "lm1", testObs(0.2, 0.2, 1)))

	require.NoError(t, m.RemoveLandmark("lm1"))

	assert.False(t, m.HasLandmark("lm1"))
	for _, shotID := range []ShotID{"shot1", "shot2"} {
		shot, _ := m.GetShot(shotID)
		assert.Equal(t, 0, shot.NumberOfObservations())
		_, ok := shot.LandmarkOfFeature(1)
		assert.False(t, ok)
	}
}

func TestMapClearObservationsAndLandmarks(t *testing.T) {
	m := newTestMap(t)
	require.NoError(t, m.AddObservationByIDs("shot1", "lm1", testObs(0.1, 0.1, 1)))
	require.NoError(t, m.AddObservationByIDs("shot1", "lm2", testObs(0.2, 0.2, 2)))

	m.ClearObservationsAndLandmarks()

	assert.Equal(t, 0, m.NumLandmarks())
	assert.Equal(t, 2, m.NumShots())
	shot, _ := m.GetShot("shot1")
	assert.Equal(t, 0, shot.NumberOfObservations())
}

func TestMapCleanLandmarksBelowMinObservations(t *testing.T) {
	m := newTestMap(t)
	// lm1 is seen twice, lm2 once.
	require.NoError(t, m.AddObservationByIDs("shot1", "lm1", testObs(0.1, 0.1, 1)))
	require.NoError(t, m.AddObservationByIDs("shot2", "lm1", testObs(0.2, 0.2, 1)))
	require.NoError(t, m.AddObservationByIDs("shot1", "lm2", testObs(0.3, 0.3, 2)))

	removed := m.CleanLandmarksBelowMinObservations(2)

	assert.Equal(t, 1, removed)
	assert.True(t, m.HasLandmark("lm1"))
	assert.False(t, m.HasLandmark("lm2"))

	shot, _ := m.GetShot("shot1")
	assert.Equal(t, 1, shot.NumberOfObservations())
	_, ok := shot.LandmarkOfFeature(2)
	assert.False(t, ok)

	t.Run("threshold above all removes everything", func(t *testing.T) {
		assert.Equal(t, 1, m.CleanLandmarksBelowMinObservations(5))
		assert.Equal(t, 0, m.NumLandmarks())
	})
}

func TestMapPanoShots(t *testing.T) {
	m := NewMap()
	_, err := m.CreateCamera(testCamera("cam1"))
	require.NoError(t, err)
	_, err = m.CreateShot("img1", "cam1")
	require.NoError(t, err)

	t.Run("pano shares ids with regular shots", func(t *testing.T) {
		pano, err := m.CreatePanoShot("img1", "cam1")
		require.NoError(t, err)
		assert.Equal(t, 1, m.NumPanoShots())
		assert.Equal(t, RigInstanceID("img1"), pano.RigInstance().ID())

		// The regular rig namespace is untouched.
		regular, err := m.GetShot("img1")
		require.NoError(t, err)
		assert.NotSame(t, regular.RigInstance(), pano.RigInstance())
	})

	t.Run("pose is independent", func(t *testing.T) {
		pano, _ := m.GetPanoShot("img1")
		require.NoError(t, pano.SetPose(geometry.NewPoseFromOrigin(r3.Vec{X: 5})))

		regular, _ := m.GetShot("img1")
		assert.True(t, regular.Pose().IsIdentity())
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, m.RemovePanoShot("img1"))
		assert.False(t, m.HasPanoShot("img1"))
		assert.True(t, m.HasShot("img1"))
		assert.ErrorIs(t, m.RemovePanoShot("img1"), ErrNotFound)
	})
}

func TestMapUpdateShot(t *testing.T) {
	m := newTestMap(t)

	other := newTestMap(t)
	src, _ := other.GetShot("shot1")
	require.NoError(t, src.SetPose(geometry.NewPoseFromOrigin(r3.Vec{X: 1, Y: 2, Z: 3})))
	src.MergeCC = 42
	src.Scale = 2.5
	src.Measurements().CaptureTime.SetValue(12345)
	src.Measurements().SequenceKey.SetValue("seq1")

	updated, err := m.UpdateShot(src)
	require.NoError(t, err)

	got, _ := m.GetShot("shot1")
	assert.Same(t, updated, got)
	assert.True(t, got.Pose().ApproxEqual(src.Pose(), 1e-9))
	assert.Equal(t, int64(42), got.MergeCC)
	assert.Equal(t, 2.5, got.Scale)
	assert.Equal(t, 12345.0, got.Measurements().CaptureTime.Value())
	assert.Equal(t, "seq1", got.Measurements().SequenceKey.Value())

	t.Run("measurements are copied not shared", func(t *testing.T) {
		src.Measurements().SequenceKey.SetValue("changed")
		assert.Equal(t, "seq1", got.Measurements().SequenceKey.Value())
	})

	t.Run("covariance is copied not shared", func(t *testing.T) {
		src.SetCovariance(mat.NewDense(2, 2, []float64{1, 0, 0, 1}))
		_, err := m.UpdateShot(src)
		require.NoError(t, err)

		srcCov, _ := src.Covariance()
		srcCov.Set(0, 0, 99)

		cov, ok := got.Covariance()
		require.True(t, ok)
		assert.Equal(t, 1.0, cov.At(0, 0))
	})

	t.Run("unknown shot", func(t *testing.T) {
		stray, _ := other.CreateShot("strange", "cam1")
		_, err := m.UpdateShot(stray)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMapUpdateRigInstance(t *testing.T) {
	m := newTestMap(t)

	other := newTestMap(t)
	src, _ := other.GetRigInstance("shot1")
	src.SetPose(geometry.NewPoseFromOrigin(r3.Vec{X: 7}))

	updated, err := m.UpdateRigInstance(src)
	require.NoError(t, err)
	assert.True(t, updated.Pose().ApproxEqual(src.Pose(), 1e-9))

	got, _ := m.GetRigInstance("shot1")
	assert.Same(t, updated, got)

	t.Run("unknown instance", func(t *testing.T) {
		stray, _ := other.CreateRigInstance("stray")
		_, err := m.UpdateRigInstance(stray)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMapTopocentricConverter(t *testing.T) {
	m := NewMap(WithReference(52.52, 13.405, 34))

	c := m.TopocentricConverter()
	assert.Equal(t, 52.52, c.Lat)

	m.SetTopocentricConverter(48.85, 2.35, 35)
	assert.Equal(t, 48.85, m.TopocentricConverter().Lat)
}

func TestMapViews(t *testing.T) {
	m := newTestMap(t)

	t.Run("shots", func(t *testing.T) {
		v := m.Shots()
		assert.Equal(t, 2, v.Len())
		assert.Equal(t, []ShotID{"shot1", "shot2"}, v.IDs())
		assert.True(t, v.Has("shot1"))

		var seen []ShotID
		for id, shot := range v.All() {
			assert.Equal(t, id, shot.ID())
			seen = append(seen, id)
		}
		assert.Equal(t, []ShotID{"shot1", "shot2"}, seen)
	})

	t.Run("landmarks", func(t *testing.T) {
		v := m.Landmarks()
		assert.Equal(t, 2, v.Len())
		assert.Equal(t, []LandmarkID{"lm1", "lm2"}, v.IDs())

		lm, err := v.Get("lm1")
		require.NoError(t, err)
		assert.Equal(t, LandmarkID("lm1"), lm.ID())
	})

	t.Run("cameras and biases", func(t *testing.T) {
		assert.Equal(t, []CameraID{"cam1"}, m.Cameras().IDs())
		assert.Equal(t, []CameraID{"cam1"}, m.Biases().IDs())

		bias, err := m.Biases().Get("cam1")
		require.NoError(t, err)
		assert.Equal(t, 1.0, bias.Scale)
	})

	t.Run("rigs", func(t *testing.T) {
		assert.Equal(t, []RigCameraID{"cam1"}, m.RigCameras().IDs())
		assert.Equal(t, []RigInstanceID{"shot1", "shot2"}, m.RigInstances().IDs())
	})

	t.Run("early break", func(t *testing.T) {
		count := 0
		for range m.Shots().All() {
			count++
			break
		}
		assert.Equal(t, 1, count)
	})
}
