package sfmgo

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/hupe1980/sfmgo/geometry"
	"github.com/hupe1980/sfmgo/optional"
)

// ShotMeasurements carries the sensor metadata captured alongside an
// image. Every field is optional.
type ShotMeasurements struct {
	CaptureTime     optional.Optional[float64]    `json:"capture_time" msgpack:"capture_time"`
	GPSPosition     optional.Optional[[3]float64] `json:"gps_position" msgpack:"gps_position"`
	GPSAccuracy     optional.Optional[float64]    `json:"gps_accuracy" msgpack:"gps_accuracy"`
	CompassAngle    optional.Optional[float64]    `json:"compass_angle" msgpack:"compass_angle"`
	CompassAccuracy optional.Optional[float64]    `json:"compass_accuracy" msgpack:"compass_accuracy"`
	OPKAngles       optional.Optional[[3]float64] `json:"opk_angles" msgpack:"opk_angles"`
	OPKAccuracy     optional.Optional[float64]    `json:"opk_accuracy" msgpack:"opk_accuracy"`
	Accelerometer   optional.Optional[[3]float64] `json:"accelerometer" msgpack:"accelerometer"`
	GravityDown     optional.Optional[[3]float64] `json:"gravity_down" msgpack:"gravity_down"`
	Orientation     optional.Optional[int]        `json:"orientation" msgpack:"orientation"`
	SequenceKey     optional.Optional[string]     `json:"sequence_key" msgpack:"sequence_key"`

	// Attributes holds free-form metadata that has no dedicated field.
	Attributes map[string]string `json:"attributes" msgpack:"attributes"`
}

// NewShotMeasurements returns empty measurements.
func NewShotMeasurements() *ShotMeasurements {
	return &ShotMeasurements{Attributes: make(map[string]string)}
}

// Set copies every field from other, including the empty states. An unset
// field on other resets the corresponding field here.
func (m *ShotMeasurements) Set(other *ShotMeasurements) {
	if other == nil {
		return
	}
	m.CaptureTime = other.CaptureTime
	m.GPSPosition = other.GPSPosition
	m.GPSAccuracy = other.GPSAccuracy
	m.CompassAngle = other.CompassAngle
	m.CompassAccuracy = other.CompassAccuracy
	m.OPKAngles = other.OPKAngles
	m.OPKAccuracy = other.OPKAccuracy
	m.Accelerometer = other.Accelerometer
	m.GravityDown = other.GravityDown
	m.Orientation = other.Orientation
	m.SequenceKey = other.SequenceKey
	m.Attributes = make(map[string]string, len(other.Attributes))
	for k, v := range other.Attributes {
		m.Attributes[k] = v
	}
}

func (m *ShotMeasurements) clone() *ShotMeasurements {
	cp := *m
	cp.Attributes = make(map[string]string, len(m.Attributes))
	for k, v := range m.Attributes {
		cp.Attributes[k] = v
	}
	return &cp
}

// ShotMesh is the coarse scene mesh attached to a shot, used for
// depth-aware undistortion.
type ShotMesh struct {
	vertices []r3.Vec
	faces    [][3]int
}

// Vertices returns a copy of the vertex list.
func (sm *ShotMesh) Vertices() []r3.Vec {
	out := make([]r3.Vec, len(sm.vertices))
	copy(out, sm.vertices)
	return out
}

// SetVertices replaces the vertex list.
func (sm *ShotMesh) SetVertices(vertices []r3.Vec) {
	sm.vertices = make([]r3.Vec, len(vertices))
	copy(sm.vertices, vertices)
}

// Faces returns a copy of the face list.
func (sm *ShotMesh) Faces() [][3]int {
	out := make([][3]int, len(sm.faces))
	copy(out, sm.faces)
	return out
}

// SetFaces replaces the face list. Every face index must reference an
// existing vertex.
func (sm *ShotMesh) SetFaces(faces [][3]int) error {
	for _, face := range faces {
		for _, v := range face {
			if v < 0 || v >= len(sm.vertices) {
				return &ErrDimensionMismatch{Expected: len(sm.vertices), Actual: v}
			}
		}
	}
	sm.faces = make([][3]int, len(faces))
	copy(sm.faces, faces)
	return nil
}

// Shot is one captured image: a camera, a pose derived from its rig, the
// sensor metadata, and the observations linking it to landmarks.
//
// A shot never stores an absolute pose of its own. It always belongs to
// exactly one rig instance, and Pose composes the rig camera's relative
// pose with the instance pose.
type Shot struct {
	id     ShotID
	owner  *Map
	camera *geometry.Camera

	rigInstance *RigInstance
	rigCamera   *RigCamera

	// MergeCC tags the connected component the shot was reconstructed in.
	MergeCC int64
	// Scale is the per-shot scale factor applied during alignment.
	Scale float64

	measurements *ShotMeasurements
	covariance   optional.Optional[*mat.Dense]
	mesh         ShotMesh

	observations map[LandmarkID]Observation
	features     map[FeatureID]LandmarkID
}

// NewShot returns a standalone shot that owns a private single-member rig
// pair at the given absolute pose. Standalone shots cannot carry
// observations; they serve as carriers for UpdateShot and UpdatePanoShot.
func NewShot(id ShotID, camera *geometry.Camera, pose geometry.Pose) *Shot {
	shot := newShot(id, camera)
	rc := &RigCamera{ID: RigCameraID(id), Pose: geometry.NewPose()}
	ri := newRigInstance(RigInstanceID(id))
	_ = ri.addShot(rc, shot)
	ri.SetPose(pose)
	return shot
}

func newShot(id ShotID, camera *geometry.Camera) *Shot {
	return &Shot{
		id:           id,
		camera:       camera,
		Scale:        1,
		measurements: NewShotMeasurements(),
		observations: make(map[LandmarkID]Observation),
		features:     make(map[FeatureID]LandmarkID),
	}
}

// ID returns the shot id.
func (s *Shot) ID() ShotID { return s.id }

// Camera returns the camera model the shot was taken with.
func (s *Shot) Camera() *geometry.Camera { return s.camera }

// RigInstance returns the rig instance the shot belongs to.
func (s *Shot) RigInstance() *RigInstance { return s.rigInstance }

// RigCamera returns the rig camera slot the shot is attached through.
func (s *Shot) RigCamera() *RigCamera { return s.rigCamera }

// Measurements returns the mutable sensor metadata.
func (s *Shot) Measurements() *ShotMeasurements { return s.measurements }

// Mesh returns the mutable scene mesh.
func (s *Shot) Mesh() *ShotMesh { return &s.mesh }

// Covariance returns the pose covariance if one has been estimated.
func (s *Shot) Covariance() (*mat.Dense, bool) { return s.covariance.Get() }

// SetCovariance stores the pose covariance.
func (s *Shot) SetCovariance(cov *mat.Dense) { s.covariance = optional.Of(cov) }

// Pose returns the absolute world-to-camera pose, composed from the rig
// camera's relative pose and the rig instance pose.
func (s *Shot) Pose() geometry.Pose {
	return s.rigCamera.Pose.Compose(s.rigInstance.pose)
}

// SetPose sets the absolute pose by re-anchoring the shot's rig instance.
// This is only legal while the shot is the sole member of its instance and
// sits on an identity rig camera; otherwise moving the shot would silently
// move its rig siblings, and the caller must go through the rig instance
// instead.
func (s *Shot) SetPose(pose geometry.Pose) error {
	if s.rigInstance.NumShots() > 1 || !s.rigCamera.Pose.IsIdentity() {
		return fmt.Errorf("%w: shot %q shares rig instance %q, set the instance pose instead",
			ErrInvalidState, s.id, s.rigInstance.id)
	}
	return s.rigInstance.UpdatePoseWithShot(s, pose)
}

// Project maps a world point to normalized image coordinates.
func (s *Shot) Project(point r3.Vec) [2]float64 {
	return s.camera.Project(s.Pose().TransformPoint(point))
}

// ProjectMany maps a batch of world points to normalized image
// coordinates.
func (s *Shot) ProjectMany(points []r3.Vec) [][2]float64 {
	pose := s.Pose()
	out := make([][2]float64, len(points))
	for i, p := range points {
		out[i] = s.camera.Project(pose.TransformPoint(p))
	}
	return out
}

// Bearing returns the unit viewing ray of a normalized image point in
// camera coordinates.
func (s *Shot) Bearing(point [2]float64) r3.Vec {
	return s.camera.Bearing(point)
}

// BearingMany returns viewing rays for a batch of normalized image
// points.
func (s *Shot) BearingMany(points [][2]float64) []r3.Vec {
	out := make([]r3.Vec, len(points))
	for i, p := range points {
		out[i] = s.camera.Bearing(p)
	}
	return out
}

// NumberOfObservations returns how many landmarks the shot observes.
func (s *Shot) NumberOfObservations() int { return len(s.observations) }

// Observations returns a copy of the landmark-to-observation map.
func (s *Shot) Observations() map[LandmarkID]Observation {
	out := make(map[LandmarkID]Observation, len(s.observations))
	for id, obs := range s.observations {
		out[id] = obs
	}
	return out
}

// ObservationOf returns the observation payload linking the shot to the
// landmark.
func (s *Shot) ObservationOf(id LandmarkID) (Observation, error) {
	obs, ok := s.observations[id]
	if !ok {
		return Observation{}, fmt.Errorf("%w: landmark %q in shot %q", ErrNotFound, id, s.id)
	}
	return obs, nil
}

// LandmarkOfFeature returns the landmark a feature id is linked to, if
// any.
func (s *Shot) LandmarkOfFeature(feature FeatureID) (LandmarkID, bool) {
	id, ok := s.features[feature]
	return id, ok
}

// LandmarkIDs returns the observed landmark ids in sorted order.
func (s *Shot) LandmarkIDs() []LandmarkID {
	ids := make([]LandmarkID, 0, len(s.observations))
	for id := range s.observations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Shot) createObservation(id LandmarkID, obs Observation) error {
	if existing, ok := s.features[obs.ID]; ok && existing != id {
		return fmt.Errorf("%w: feature %d of shot %q already linked to landmark %q",
			ErrInvalidState, obs.ID, s.id, existing)
	}
	// An overwrite may change the feature id; the old reverse-index entry
	// must not outlive it.
	if old, ok := s.observations[id]; ok && old.ID != obs.ID {
		delete(s.features, old.ID)
	}
	s.observations[id] = obs
	s.features[obs.ID] = id
	return nil
}

func (s *Shot) removeObservation(id LandmarkID) {
	obs, ok := s.observations[id]
	if !ok {
		return
	}
	delete(s.observations, id)
	delete(s.features, obs.ID)
}
