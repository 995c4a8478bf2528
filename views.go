package sfmgo

import (
	"iter"
	"sort"

	"github.com/hupe1980/sfmgo/geometry"
)

// Views are read-only windows onto one entity registry of a map. They are
// cheap to construct and always reflect the current map state. Iteration
// is in sorted id order.

// ShotView is a read-only view of the shot registry.
type ShotView struct{ m *Map }

// Shots returns a view of the regular shots.
func (m *Map) Shots() ShotView { return ShotView{m: m} }

// Len returns the number of shots.
func (v ShotView) Len() int { return len(v.m.shots) }

// Has reports whether the shot id exists.
func (v ShotView) Has(id ShotID) bool { return v.m.HasShot(id) }

// Get returns the shot with the given id.
func (v ShotView) Get(id ShotID) (*Shot, error) { return v.m.GetShot(id) }

// IDs returns the shot ids in sorted order.
func (v ShotView) IDs() []ShotID { return sortedKeys(v.m.shots) }

// All iterates the shots in sorted id order.
func (v ShotView) All() iter.Seq2[ShotID, *Shot] { return sortedSeq(v.m.shots) }

// PanoShotView is a read-only view of the pano shot registry.
type PanoShotView struct{ m *Map }

// PanoShots returns a view of the pano shots.
func (m *Map) PanoShots() PanoShotView { return PanoShotView{m: m} }

// Len returns the number of pano shots.
func (v PanoShotView) Len() int { return len(v.m.panoShots) }

// Has reports whether the pano shot id exists.
func (v PanoShotView) Has(id ShotID) bool { return v.m.HasPanoShot(id) }

// Get returns the pano shot with the given id.
func (v PanoShotView) Get(id ShotID) (*Shot, error) { return v.m.GetPanoShot(id) }

// IDs returns the pano shot ids in sorted order.
func (v PanoShotView) IDs() []ShotID { return sortedKeys(v.m.panoShots) }

// All iterates the pano shots in sorted id order.
func (v PanoShotView) All() iter.Seq2[ShotID, *Shot] { return sortedSeq(v.m.panoShots) }

// LandmarkView is a read-only view of the landmark registry.
type LandmarkView struct{ m *Map }

// Landmarks returns a view of the landmarks.
func (m *Map) Landmarks() LandmarkView { return LandmarkView{m: m} }

// Len returns the number of landmarks.
func (v LandmarkView) Len() int { return len(v.m.landmarks) }

// Has reports whether the landmark id exists.
func (v LandmarkView) Has(id LandmarkID) bool { return v.m.HasLandmark(id) }

// Get returns the landmark with the given id.
func (v LandmarkView) Get(id LandmarkID) (*Landmark, error) { return v.m.GetLandmark(id) }

// IDs returns the landmark ids in sorted order.
func (v LandmarkView) IDs() []LandmarkID { return sortedKeys(v.m.landmarks) }

// All iterates the landmarks in sorted id order.
func (v LandmarkView) All() iter.Seq2[LandmarkID, *Landmark] { return sortedSeq(v.m.landmarks) }

// CameraView is a read-only view of the camera registry.
type CameraView struct{ m *Map }

// Cameras returns a view of the cameras.
func (m *Map) Cameras() CameraView { return CameraView{m: m} }

// Len returns the number of cameras.
func (v CameraView) Len() int { return len(v.m.cameras) }

// Has reports whether the camera id exists.
func (v CameraView) Has(id CameraID) bool { return v.m.HasCamera(id) }

// Get returns the camera with the given id.
func (v CameraView) Get(id CameraID) (*geometry.Camera, error) { return v.m.GetCamera(id) }

// IDs returns the camera ids in sorted order.
func (v CameraView) IDs() []CameraID { return sortedKeys(v.m.cameras) }

// All iterates the cameras in sorted id order.
func (v CameraView) All() iter.Seq2[CameraID, *geometry.Camera] { return sortedSeq(v.m.cameras) }

// BiasView is a read-only view of the camera bias registry.
type BiasView struct{ m *Map }

// Biases returns a view of the camera biases.
func (m *Map) Biases() BiasView { return BiasView{m: m} }

// Len returns the number of biases.
func (v BiasView) Len() int { return len(v.m.biases) }

// Get returns the bias of the given camera.
func (v BiasView) Get(id CameraID) (geometry.Similarity, error) { return v.m.GetBias(id) }

// IDs returns the camera ids carrying a bias, in sorted order.
func (v BiasView) IDs() []CameraID { return sortedKeys(v.m.biases) }

// All iterates the biases in sorted camera id order.
func (v BiasView) All() iter.Seq2[CameraID, geometry.Similarity] { return sortedSeq(v.m.biases) }

// RigCameraView is a read-only view of the rig camera registry.
type RigCameraView struct{ m *Map }

// RigCameras returns a view of the rig cameras.
func (m *Map) RigCameras() RigCameraView { return RigCameraView{m: m} }

// Len returns the number of rig cameras.
func (v RigCameraView) Len() int { return len(v.m.rigCameras) }

// Has reports whether the rig camera id exists.
func (v RigCameraView) Has(id RigCameraID) bool { return v.m.HasRigCamera(id) }

// Get returns the rig camera with the given id.
func (v RigCameraView) Get(id RigCameraID) (*RigCamera, error) { return v.m.GetRigCamera(id) }

// IDs returns the rig camera ids in sorted order.
func (v RigCameraView) IDs() []RigCameraID { return sortedKeys(v.m.rigCameras) }

// All iterates the rig cameras in sorted id order.
func (v RigCameraView) All() iter.Seq2[RigCameraID, *RigCamera] { return sortedSeq(v.m.rigCameras) }

// RigInstanceView is a read-only view of the rig instance registry.
type RigInstanceView struct{ m *Map }

// RigInstances returns a view of the rig instances.
func (m *Map) RigInstances() RigInstanceView { return RigInstanceView{m: m} }

// Len returns the number of rig instances.
func (v RigInstanceView) Len() int { return len(v.m.rigInstances) }

// Has reports whether the rig instance id exists.
func (v RigInstanceView) Has(id RigInstanceID) bool { return v.m.HasRigInstance(id) }

// Get returns the rig instance with the given id.
func (v RigInstanceView) Get(id RigInstanceID) (*RigInstance, error) { return v.m.GetRigInstance(id) }

// IDs returns the rig instance ids in sorted order.
func (v RigInstanceView) IDs() []RigInstanceID { return sortedKeys(v.m.rigInstances) }

// All iterates the rig instances in sorted id order.
func (v RigInstanceView) All() iter.Seq2[RigInstanceID, *RigInstance] { return sortedSeq(v.m.rigInstances) }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedSeq[V any](m map[string]V) iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		for _, k := range sortedKeys(m) {
			if !yield(k, m[k]) {
				return
			}
		}
	}
}
