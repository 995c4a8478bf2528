package sfmgo

import (
	"fmt"
	"sort"

	"github.com/hupe1980/sfmgo/geometry"
)

// RigCamera describes one camera slot of a rig: a fixed pose relative to
// the rig frame. The pose maps rig coordinates to camera coordinates.
type RigCamera struct {
	ID   RigCameraID   `json:"id" msgpack:"id"`
	Pose geometry.Pose `json:"pose" msgpack:"pose"`
}

// RigInstance is one placement of a rig in the world. It groups the shots
// captured simultaneously by the rig's cameras and carries the single pose
// they share. A shot's absolute pose is always derived from its instance.
type RigInstance struct {
	id         RigInstanceID
	pose       geometry.Pose // world to rig
	shots      map[ShotID]*Shot
	rigCameras map[ShotID]*RigCamera
}

func newRigInstance(id RigInstanceID) *RigInstance {
	return &RigInstance{
		id:         id,
		pose:       geometry.NewPose(),
		shots:      make(map[ShotID]*Shot),
		rigCameras: make(map[ShotID]*RigCamera),
	}
}

// ID returns the instance id.
func (ri *RigInstance) ID() RigInstanceID { return ri.id }

// Pose returns the world-to-rig pose.
func (ri *RigInstance) Pose() geometry.Pose { return ri.pose }

// SetPose sets the world-to-rig pose, moving every shot of the instance.
func (ri *RigInstance) SetPose(pose geometry.Pose) { ri.pose = pose }

// NumShots returns the number of shots attached to the instance.
func (ri *RigInstance) NumShots() int { return len(ri.shots) }

// ShotIDs returns the attached shot ids in sorted order.
func (ri *RigInstance) ShotIDs() []ShotID {
	ids := make([]ShotID, 0, len(ri.shots))
	for id := range ri.shots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Shots returns a copy of the shot map.
func (ri *RigInstance) Shots() map[ShotID]*Shot {
	out := make(map[ShotID]*Shot, len(ri.shots))
	for id, s := range ri.shots {
		out[id] = s
	}
	return out
}

// RigCameras returns a copy of the per-shot rig camera map.
func (ri *RigInstance) RigCameras() map[ShotID]*RigCamera {
	out := make(map[ShotID]*RigCamera, len(ri.rigCameras))
	for id, rc := range ri.rigCameras {
		out[id] = rc
	}
	return out
}

// addShot attaches the shot through the given rig camera and wires the
// shot's back pointers.
func (ri *RigInstance) addShot(rigCamera *RigCamera, shot *Shot) error {
	if _, ok := ri.shots[shot.id]; ok {
		return fmt.Errorf("%w: shot %q in rig instance %q", ErrDuplicateKey, shot.id, ri.id)
	}
	ri.shots[shot.id] = shot
	ri.rigCameras[shot.id] = rigCamera
	shot.rigInstance = ri
	shot.rigCamera = rigCamera
	return nil
}

// removeShot detaches the shot. The instance may be left empty; an empty
// instance stays registered until removed explicitly.
func (ri *RigInstance) removeShot(id ShotID) error {
	shot, ok := ri.shots[id]
	if !ok {
		return fmt.Errorf("%w: shot %q in rig instance %q", ErrNotFound, id, ri.id)
	}
	shot.rigInstance = nil
	shot.rigCamera = nil
	delete(ri.shots, id)
	delete(ri.rigCameras, id)
	return nil
}

// UpdatePoseWithShot re-anchors the instance so that the given member shot
// ends up with the given absolute pose. Every other shot of the instance
// moves rigidly with it.
func (ri *RigInstance) UpdatePoseWithShot(shot *Shot, pose geometry.Pose) error {
	rigCamera, ok := ri.rigCameras[shot.id]
	if !ok {
		return fmt.Errorf("%w: shot %q in rig instance %q", ErrNotFound, shot.id, ri.id)
	}
	// shotPose = rigCamera.Pose ∘ instancePose, solved for instancePose.
	ri.pose = rigCamera.Pose.Inverse().Compose(pose)
	return nil
}

// UpdateRigCameraPose sets the relative pose of the rig camera used by the
// given rig camera id. All shots attached through it move.
func (ri *RigInstance) UpdateRigCameraPose(id RigCameraID, pose geometry.Pose) error {
	for _, rc := range ri.rigCameras {
		if rc.ID == id {
			rc.Pose = pose
			return nil
		}
	}
	return fmt.Errorf("%w: rig camera %q in rig instance %q", ErrNotFound, id, ri.id)
}
