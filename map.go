package sfmgo

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/hupe1980/sfmgo/geo"
	"github.com/hupe1980/sfmgo/geometry"
	"github.com/hupe1980/sfmgo/model"
	"github.com/hupe1980/sfmgo/optional"
)

// Identifier types shared with the subsystem packages.
type (
	// CameraID is the unique identifier of a camera model.
	CameraID = model.CameraID
	// RigCameraID is the unique identifier of a rig camera.
	RigCameraID = model.RigCameraID
	// RigInstanceID is the unique identifier of a rig instance.
	RigInstanceID = model.RigInstanceID
	// ShotID is the unique identifier of a shot.
	ShotID = model.ShotID
	// LandmarkID is the unique identifier of a landmark.
	LandmarkID = model.LandmarkID
	// TrackID is the unique identifier of a feature track.
	TrackID = model.TrackID
	// FeatureID is the index of a detected feature within one shot.
	FeatureID = model.FeatureID
	// ShotPair is an ordered pair of shot ids.
	ShotPair = model.ShotPair
	// Observation is the 2D payload linking a shot to a landmark.
	Observation = model.Observation
)

// Map is the in-memory scene graph of a reconstruction: cameras, rigs,
// shots, pano shots and landmarks, plus the bidirectional observation
// index between shots and landmarks.
//
// The Map owns every entity it stores. Entities hold back pointers into
// their owning map, and cross-map links are rejected. A Map is not safe
// for concurrent mutation.
type Map struct {
	cameras map[CameraID]*geometry.Camera
	biases  map[CameraID]geometry.Similarity

	rigCameras   map[RigCameraID]*RigCamera
	rigInstances map[RigInstanceID]*RigInstance

	// Pano shots live in their own rig namespace so a pano shot can share
	// an id with a regular shot without colliding on rig bookkeeping.
	panoRigCameras   map[RigCameraID]*RigCamera
	panoRigInstances map[RigInstanceID]*RigInstance

	shots     map[ShotID]*Shot
	panoShots map[ShotID]*Shot
	landmarks map[LandmarkID]*Landmark

	reference geo.TopocentricConverter
	logger    *Logger
}

// NewMap returns an empty map.
func NewMap(optFns ...Option) *Map {
	opts := DefaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Map{
		cameras:          make(map[CameraID]*geometry.Camera),
		biases:           make(map[CameraID]geometry.Similarity),
		rigCameras:       make(map[RigCameraID]*RigCamera),
		rigInstances:     make(map[RigInstanceID]*RigInstance),
		panoRigCameras:   make(map[RigCameraID]*RigCamera),
		panoRigInstances: make(map[RigInstanceID]*RigInstance),
		shots:            make(map[ShotID]*Shot),
		panoShots:        make(map[ShotID]*Shot),
		landmarks:        make(map[LandmarkID]*Landmark),
		reference:        opts.Reference,
		logger:           opts.Logger,
	}
}

// SetTopocentricConverter sets the geodetic reference frame of the
// reconstruction.
func (m *Map) SetTopocentricConverter(lat, lon, alt float64) {
	m.reference = geo.NewTopocentricConverter(lat, lon, alt)
}

// TopocentricConverter returns the geodetic reference frame.
func (m *Map) TopocentricConverter() geo.TopocentricConverter {
	return m.reference
}

// Cameras

// CreateCamera copies the camera into the map and returns the stored
// instance. The camera's bias starts as the identity similarity.
func (m *Map) CreateCamera(camera *geometry.Camera) (*geometry.Camera, error) {
	if _, ok := m.cameras[camera.ID]; ok {
		return nil, fmt.Errorf("%w: camera %q", ErrDuplicateKey, camera.ID)
	}
	cp := *camera
	m.cameras[camera.ID] = &cp
	m.biases[camera.ID] = geometry.NewSimilarity()
	return &cp, nil
}

// GetCamera returns the camera with the given id.
func (m *Map) GetCamera(id CameraID) (*geometry.Camera, error) {
	cam, ok := m.cameras[id]
	if !ok {
		return nil, fmt.Errorf("%w: camera %q", ErrNotFound, id)
	}
	return cam, nil
}

// HasCamera reports whether the camera id exists.
func (m *Map) HasCamera(id CameraID) bool {
	_, ok := m.cameras[id]
	return ok
}

// SetBias sets the alignment bias of a camera.
func (m *Map) SetBias(id CameraID, bias geometry.Similarity) error {
	if _, ok := m.cameras[id]; !ok {
		return fmt.Errorf("%w: camera %q", ErrNotFound, id)
	}
	m.biases[id] = bias
	return nil
}

// GetBias returns the alignment bias of a camera.
func (m *Map) GetBias(id CameraID) (geometry.Similarity, error) {
	bias, ok := m.biases[id]
	if !ok {
		return geometry.Similarity{}, fmt.Errorf("%w: camera %q", ErrNotFound, id)
	}
	return bias, nil
}

// Rigs

// CreateRigCamera registers a rig camera slot.
func (m *Map) CreateRigCamera(rigCamera RigCamera) (*RigCamera, error) {
	return createRigCamera(m.rigCameras, rigCamera)
}

// GetRigCamera returns the rig camera with the given id.
func (m *Map) GetRigCamera(id RigCameraID) (*RigCamera, error) {
	rc, ok := m.rigCameras[id]
	if !ok {
		return nil, fmt.Errorf("%w: rig camera %q", ErrNotFound, id)
	}
	return rc, nil
}

// HasRigCamera reports whether the rig camera id exists.
func (m *Map) HasRigCamera(id RigCameraID) bool {
	_, ok := m.rigCameras[id]
	return ok
}

// CreateRigInstance registers an empty rig instance.
func (m *Map) CreateRigInstance(id RigInstanceID) (*RigInstance, error) {
	return createRigInstance(m.rigInstances, id)
}

// GetRigInstance returns the rig instance with the given id.
func (m *Map) GetRigInstance(id RigInstanceID) (*RigInstance, error) {
	ri, ok := m.rigInstances[id]
	if !ok {
		return nil, fmt.Errorf("%w: rig instance %q", ErrNotFound, id)
	}
	return ri, nil
}

// HasRigInstance reports whether the rig instance id exists.
func (m *Map) HasRigInstance(id RigInstanceID) bool {
	_, ok := m.rigInstances[id]
	return ok
}

// UpdateRigInstance copies the pose of other onto the instance with the
// same id and returns the stored instance.
func (m *Map) UpdateRigInstance(other *RigInstance) (*RigInstance, error) {
	ri, ok := m.rigInstances[other.id]
	if !ok {
		return nil, fmt.Errorf("%w: rig instance %q", ErrNotFound, other.id)
	}
	ri.pose = other.pose
	return ri, nil
}

// RemoveRigInstance deletes an empty rig instance. Instances that still
// hold shots cannot be removed; remove the shots first.
func (m *Map) RemoveRigInstance(id RigInstanceID) error {
	ri, ok := m.rigInstances[id]
	if !ok {
		return fmt.Errorf("%w: rig instance %q", ErrNotFound, id)
	}
	if ri.NumShots() > 0 {
		return fmt.Errorf("%w: rig instance %q still has %d shots", ErrInvalidState, id, ri.NumShots())
	}
	delete(m.rigInstances, id)
	return nil
}

func createRigCamera(registry map[RigCameraID]*RigCamera, rigCamera RigCamera) (*RigCamera, error) {
	if _, ok := registry[rigCamera.ID]; ok {
		return nil, fmt.Errorf("%w: rig camera %q", ErrDuplicateKey, rigCamera.ID)
	}
	cp := rigCamera
	registry[rigCamera.ID] = &cp
	return &cp, nil
}

func createRigInstance(registry map[RigInstanceID]*RigInstance, id RigInstanceID) (*RigInstance, error) {
	if _, ok := registry[id]; ok {
		return nil, fmt.Errorf("%w: rig instance %q", ErrDuplicateKey, id)
	}
	ri := newRigInstance(id)
	registry[id] = ri
	return ri, nil
}

// Shots

// CreateShot creates a shot in its own single-shot rig: a rig camera named
// after the camera with identity pose, reused across shots of the same
// camera, and a fresh rig instance named after the shot. The shot's pose
// starts as the identity.
func (m *Map) CreateShot(id ShotID, cameraID CameraID) (*Shot, error) {
	return m.createShotDefaultRig(m.shots, m.rigCameras, m.rigInstances, id, cameraID)
}

// CreateShotWithPose is CreateShot followed by setting the absolute pose.
func (m *Map) CreateShotWithPose(id ShotID, cameraID CameraID, pose geometry.Pose) (*Shot, error) {
	shot, err := m.CreateShot(id, cameraID)
	if err != nil {
		return nil, err
	}
	if err := shot.SetPose(pose); err != nil {
		return nil, err
	}
	return shot, nil
}

// CreateShotInRig creates a shot attached to an existing rig instance
// through an existing rig camera.
func (m *Map) CreateShotInRig(rigInstanceID RigInstanceID, rigCameraID RigCameraID, id ShotID, cameraID CameraID) (*Shot, error) {
	ri, err := m.GetRigInstance(rigInstanceID)
	if err != nil {
		return nil, err
	}
	rc, err := m.GetRigCamera(rigCameraID)
	if err != nil {
		return nil, err
	}
	return m.createShotInRig(m.shots, ri, rc, id, cameraID)
}

// GetShot returns the shot with the given id.
func (m *Map) GetShot(id ShotID) (*Shot, error) {
	shot, ok := m.shots[id]
	if !ok {
		return nil, fmt.Errorf("%w: shot %q", ErrNotFound, id)
	}
	return shot, nil
}

// HasShot reports whether the shot id exists.
func (m *Map) HasShot(id ShotID) bool {
	_, ok := m.shots[id]
	return ok
}

// RemoveShot deletes the shot and detaches its landmark observations. Its
// rig instance keeps existing even when left empty.
func (m *Map) RemoveShot(id ShotID) error {
	shot, ok := m.shots[id]
	if !ok {
		err := fmt.Errorf("%w: shot %q", ErrNotFound, id)
		m.logger.LogRemoveShot(context.Background(), id, 0, err)
		return err
	}
	detached := m.detachShot(shot)
	delete(m.shots, id)
	m.logger.LogRemoveShot(context.Background(), id, detached, nil)
	return nil
}

// UpdateShot copies pose, metadata, mesh and bookkeeping fields of other
// onto the shot with the same id and returns the stored shot. Observations
// are not copied; use AddObservation for those.
func (m *Map) UpdateShot(other *Shot) (*Shot, error) {
	return m.updateShot(m.shots, other)
}

// Pano shots

// CreatePanoShot creates a panorama shot. Pano shots use the same default
// rig convention as CreateShot but keep their rig bookkeeping in a
// separate namespace.
func (m *Map) CreatePanoShot(id ShotID, cameraID CameraID) (*Shot, error) {
	return m.createShotDefaultRig(m.panoShots, m.panoRigCameras, m.panoRigInstances, id, cameraID)
}

// CreatePanoShotWithPose is CreatePanoShot followed by setting the
// absolute pose.
func (m *Map) CreatePanoShotWithPose(id ShotID, cameraID CameraID, pose geometry.Pose) (*Shot, error) {
	shot, err := m.CreatePanoShot(id, cameraID)
	if err != nil {
		return nil, err
	}
	if err := shot.SetPose(pose); err != nil {
		return nil, err
	}
	return shot, nil
}

// GetPanoShot returns the pano shot with the given id.
func (m *Map) GetPanoShot(id ShotID) (*Shot, error) {
	shot, ok := m.panoShots[id]
	if !ok {
		return nil, fmt.Errorf("%w: pano shot %q", ErrNotFound, id)
	}
	return shot, nil
}

// HasPanoShot reports whether the pano shot id exists.
func (m *Map) HasPanoShot(id ShotID) bool {
	_, ok := m.panoShots[id]
	return ok
}

// RemovePanoShot deletes the pano shot and detaches its observations.
func (m *Map) RemovePanoShot(id ShotID) error {
	shot, ok := m.panoShots[id]
	if !ok {
		return fmt.Errorf("%w: pano shot %q", ErrNotFound, id)
	}
	m.detachShot(shot)
	delete(m.panoShots, id)
	return nil
}

// UpdatePanoShot copies pose, metadata, mesh and bookkeeping fields of
// other onto the pano shot with the same id.
func (m *Map) UpdatePanoShot(other *Shot) (*Shot, error) {
	return m.updateShot(m.panoShots, other)
}

func (m *Map) createShotDefaultRig(
	shots map[ShotID]*Shot,
	rigCameras map[RigCameraID]*RigCamera,
	rigInstances map[RigInstanceID]*RigInstance,
	id ShotID, cameraID CameraID,
) (*Shot, error) {
	if _, ok := shots[id]; ok {
		return nil, fmt.Errorf("%w: shot %q", ErrDuplicateKey, id)
	}
	camera, err := m.GetCamera(cameraID)
	if err != nil {
		m.logger.LogCreateShot(context.Background(), id, cameraID, err)
		return nil, err
	}

	rc, ok := rigCameras[RigCameraID(cameraID)]
	if ok && !rc.Pose.IsIdentity() {
		// The default rig contract promises an identity rig camera. Failing
		// here keeps the map untouched; a shot on a posed rig camera must go
		// through CreateShotInRig.
		return nil, fmt.Errorf("%w: rig camera %q has a non-identity pose", ErrInvalidState, rc.ID)
	}
	if !ok {
		rc, err = createRigCamera(rigCameras, RigCamera{ID: RigCameraID(cameraID), Pose: geometry.NewPose()})
		if err != nil {
			return nil, err
		}
	}
	// A removed shot leaves its instance behind; reuse it when empty.
	ri, ok := rigInstances[RigInstanceID(id)]
	if ok && ri.NumShots() > 0 {
		return nil, fmt.Errorf("%w: rig instance %q", ErrDuplicateKey, id)
	}
	if !ok {
		if ri, err = createRigInstance(rigInstances, RigInstanceID(id)); err != nil {
			return nil, err
		}
	}

	shot := newShot(id, camera)
	shot.owner = m
	if err := ri.addShot(rc, shot); err != nil {
		return nil, err
	}
	shots[id] = shot
	m.logger.LogCreateShot(context.Background(), id, cameraID, nil)
	return shot, nil
}

func (m *Map) createShotInRig(shots map[ShotID]*Shot, ri *RigInstance, rc *RigCamera, id ShotID, cameraID CameraID) (*Shot, error) {
	if _, ok := shots[id]; ok {
		return nil, fmt.Errorf("%w: shot %q", ErrDuplicateKey, id)
	}
	camera, err := m.GetCamera(cameraID)
	if err != nil {
		return nil, err
	}
	shot := newShot(id, camera)
	shot.owner = m
	if err := ri.addShot(rc, shot); err != nil {
		return nil, err
	}
	shots[id] = shot
	m.logger.LogCreateShot(context.Background(), id, cameraID, nil)
	return shot, nil
}

// detachShot unlinks every landmark observation and detaches the shot from
// its rig instance. Returns the number of detached observations.
func (m *Map) detachShot(shot *Shot) int {
	detached := 0
	for lmID := range shot.observations {
		if lm, ok := m.landmarks[lmID]; ok {
			lm.removeObservation(shot.id)
		}
		detached++
	}
	shot.observations = make(map[LandmarkID]Observation)
	shot.features = make(map[FeatureID]LandmarkID)
	if shot.rigInstance != nil {
		_ = shot.rigInstance.removeShot(shot.id)
	}
	return detached
}

func (m *Map) updateShot(shots map[ShotID]*Shot, other *Shot) (*Shot, error) {
	shot, ok := shots[other.id]
	if !ok {
		return nil, fmt.Errorf("%w: shot %q", ErrNotFound, other.id)
	}
	if err := shot.rigInstance.UpdatePoseWithShot(shot, other.Pose()); err != nil {
		return nil, err
	}
	shot.MergeCC = other.MergeCC
	shot.Scale = other.Scale
	shot.measurements = other.measurements.clone()
	if cov, ok := other.covariance.Get(); ok {
		shot.covariance = optional.Of(mat.DenseCopyOf(cov))
	} else {
		shot.covariance = optional.Empty[*mat.Dense]()
	}
	shot.mesh.SetVertices(other.mesh.vertices)
	if err := shot.mesh.SetFaces(other.mesh.faces); err != nil {
		return nil, err
	}
	return shot, nil
}

// Landmarks

// CreateLandmark registers a landmark at the given world position.
func (m *Map) CreateLandmark(id LandmarkID, coordinates r3.Vec) (*Landmark, error) {
	if _, ok := m.landmarks[id]; ok {
		return nil, fmt.Errorf("%w: landmark %q", ErrDuplicateKey, id)
	}
	lm := newLandmark(id, coordinates)
	lm.owner = m
	m.landmarks[id] = lm
	return lm, nil
}

// GetLandmark returns the landmark with the given id.
func (m *Map) GetLandmark(id LandmarkID) (*Landmark, error) {
	lm, ok := m.landmarks[id]
	if !ok {
		return nil, fmt.Errorf("%w: landmark %q", ErrNotFound, id)
	}
	return lm, nil
}

// HasLandmark reports whether the landmark id exists.
func (m *Map) HasLandmark(id LandmarkID) bool {
	_, ok := m.landmarks[id]
	return ok
}

// RemoveLandmark deletes the landmark and detaches it from every shot that
// observes it.
func (m *Map) RemoveLandmark(id LandmarkID) error {
	lm, ok := m.landmarks[id]
	if !ok {
		return fmt.Errorf("%w: landmark %q", ErrNotFound, id)
	}
	for shotID := range lm.observations {
		if shot, ok := m.shots[shotID]; ok {
			shot.removeObservation(id)
		}
	}
	delete(m.landmarks, id)
	return nil
}

// Observations

// AddObservation links a shot and a landmark with the given observation
// payload. The shot must be a regular shot of this map; pano shots do not
// carry observations. The payload's feature id must not already be linked
// to a different landmark in the shot. Re-adding the same link overwrites
// the payload.
func (m *Map) AddObservation(shot *Shot, lm *Landmark, obs Observation) error {
	if shot == nil || shot.owner != m {
		return fmt.Errorf("%w: shot does not belong to this map", ErrInvalidState)
	}
	if m.shots[shot.id] != shot {
		return fmt.Errorf("%w: shot %q is not a regular shot of this map", ErrInvalidState, shot.id)
	}
	if lm == nil || lm.owner != m {
		return fmt.Errorf("%w: landmark does not belong to this map", ErrInvalidState)
	}
	if err := shot.createObservation(lm.id, obs); err != nil {
		return err
	}
	lm.addObservation(shot.id, obs.ID)
	return nil
}

// AddObservationByIDs is AddObservation with id lookups.
func (m *Map) AddObservationByIDs(shotID ShotID, landmarkID LandmarkID, obs Observation) error {
	shot, err := m.GetShot(shotID)
	if err != nil {
		return err
	}
	lm, err := m.GetLandmark(landmarkID)
	if err != nil {
		return err
	}
	return m.AddObservation(shot, lm, obs)
}

// RemoveObservation unlinks a shot and a landmark. Removing an absent link
// fails with ErrNotFound.
func (m *Map) RemoveObservation(shotID ShotID, landmarkID LandmarkID) error {
	shot, err := m.GetShot(shotID)
	if err != nil {
		return err
	}
	lm, err := m.GetLandmark(landmarkID)
	if err != nil {
		return err
	}
	if _, ok := shot.observations[landmarkID]; !ok {
		return fmt.Errorf("%w: landmark %q not observed in shot %q", ErrNotFound, landmarkID, shotID)
	}
	shot.removeObservation(landmarkID)
	lm.removeObservation(shotID)
	return nil
}

// ClearObservationsAndLandmarks drops every landmark and every shot's
// observations, keeping cameras, rigs and shots in place.
func (m *Map) ClearObservationsAndLandmarks() {
	for _, shot := range m.shots {
		shot.observations = make(map[LandmarkID]Observation)
		shot.features = make(map[FeatureID]LandmarkID)
	}
	m.landmarks = make(map[LandmarkID]*Landmark)
}

// CleanLandmarksBelowMinObservations removes every landmark observed by
// fewer than minObservations shots and returns the number removed.
func (m *Map) CleanLandmarksBelowMinObservations(minObservations int) int {
	removed := 0
	for id, lm := range m.landmarks {
		if lm.NumberOfObservations() < minObservations {
			for shotID := range lm.observations {
				if shot, ok := m.shots[shotID]; ok {
					shot.removeObservation(id)
				}
			}
			delete(m.landmarks, id)
			removed++
		}
	}
	m.logger.LogCleanLandmarks(context.Background(), minObservations, removed)
	return removed
}

// Counts

// NumCameras returns the number of registered cameras.
func (m *Map) NumCameras() int { return len(m.cameras) }

// NumRigCameras returns the number of registered rig cameras.
func (m *Map) NumRigCameras() int { return len(m.rigCameras) }

// NumRigInstances returns the number of registered rig instances.
func (m *Map) NumRigInstances() int { return len(m.rigInstances) }

// NumShots returns the number of shots.
func (m *Map) NumShots() int { return len(m.shots) }

// NumPanoShots returns the number of pano shots.
func (m *Map) NumPanoShots() int { return len(m.panoShots) }

// NumLandmarks returns the number of landmarks.
func (m *Map) NumLandmarks() int { return len(m.landmarks) }
