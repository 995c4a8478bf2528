package testutil

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/hupe1980/sfmgo"
	"github.com/hupe1980/sfmgo/geometry"
	"github.com/hupe1980/sfmgo/model"
	"github.com/hupe1980/sfmgo/tracks"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Vec returns a pseudo-random vector with components in [-scale, scale).
func (r *RNG) Vec(scale float64) r3.Vec {
	return r3.Vec{
		X: (2*r.Float64() - 1) * scale,
		Y: (2*r.Float64() - 1) * scale,
		Z: (2*r.Float64() - 1) * scale,
	}
}

// Pose returns a pseudo-random pose with a bounded rotation angle and a
// translation in [-10, 10)^3.
func (r *RNG) Pose() geometry.Pose {
	axis := r.Vec(1)
	if n := r3.Norm(axis); n > 1e-12 {
		axis = r3.Scale(r.Float64()*math.Pi/n, axis)
	}
	return geometry.NewPoseFromRotationVector(axis, r.Vec(10))
}

// Observation returns a pseudo-random observation payload for the given
// feature id.
func (r *RNG) Observation(feature model.FeatureID) model.Observation {
	return model.NewObservation(
		r.Float64()-0.5, r.Float64()-0.5,
		0.01+r.Float64()*0.1,
		r.Intn(256), r.Intn(256), r.Intn(256),
		feature,
	)
}

// SceneSpec describes the size of a synthetic scene.
type SceneSpec struct {
	Shots     int
	Landmarks int
	// ObservationRate is the probability that a shot observes a landmark.
	// Zero means every shot observes every landmark.
	ObservationRate float64
}

// ShotName returns the canonical shot id of the i-th synthetic shot.
func ShotName(i int) model.ShotID {
	return fmt.Sprintf("shot%03d", i)
}

// LandmarkName returns the canonical landmark id of the i-th synthetic
// landmark.
func LandmarkName(i int) model.LandmarkID {
	return fmt.Sprintf("lm%05d", i)
}

// SyntheticMap builds a map with one perspective camera, the requested
// shots at random poses, the requested landmarks at random positions, and
// observations linking them. Feature ids equal landmark indices, so every
// observation is valid by construction.
func SyntheticMap(rng *RNG, spec SceneSpec) *sfmgo.Map {
	m := sfmgo.NewMap()

	cam := geometry.NewPerspectiveCamera(0.9, -0.1, 0.01)
	cam.ID = "cam1"
	cam.Width = 1920
	cam.Height = 1080
	if _, err := m.CreateCamera(cam); err != nil {
		panic(err)
	}

	for i := range spec.Shots {
		shot, err := m.CreateShot(ShotName(i), "cam1")
		if err != nil {
			panic(err)
		}
		if err := shot.SetPose(rng.Pose()); err != nil {
			panic(err)
		}
	}
	for i := range spec.Landmarks {
		lm, err := m.CreateLandmark(LandmarkName(i), rng.Vec(5))
		if err != nil {
			panic(err)
		}
		lm.SetColor([3]int{rng.Intn(256), rng.Intn(256), rng.Intn(256)})
	}

	for i := range spec.Shots {
		shot, _ := m.GetShot(ShotName(i))
		for j := range spec.Landmarks {
			if spec.ObservationRate > 0 && rng.Float64() > spec.ObservationRate {
				continue
			}
			lm, _ := m.GetLandmark(LandmarkName(j))
			if err := m.AddObservation(shot, lm, rng.Observation(model.FeatureID(j))); err != nil {
				panic(err)
			}
		}
	}
	return m
}

// SyntheticTracks builds a track graph with the given shots and tracks,
// using the same naming and feature id convention as SyntheticMap.
func SyntheticTracks(rng *RNG, spec SceneSpec) *tracks.Manager {
	tm := tracks.NewManager()
	for i := range spec.Shots {
		for j := range spec.Landmarks {
			if spec.ObservationRate > 0 && rng.Float64() > spec.ObservationRate {
				continue
			}
			tm.AddObservation(ShotName(i), model.TrackID(LandmarkName(j)), rng.Observation(model.FeatureID(j)))
		}
	}
	return tm
}
