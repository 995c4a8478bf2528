package sfmgo

import (
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/sfmgo/optional"
)

// DeepCopy returns an independent copy of the map. Every entity and every
// cross link is rebuilt, so mutating the copy never touches the original.
func (m *Map) DeepCopy() *Map {
	out := NewMap()
	out.logger = m.logger
	out.reference = m.reference

	for id, cam := range m.cameras {
		cp := *cam
		out.cameras[id] = &cp
	}
	for id, bias := range m.biases {
		out.biases[id] = bias
	}

	copyRigCameras(m.rigCameras, out.rigCameras)
	copyRigCameras(m.panoRigCameras, out.panoRigCameras)

	for id, shot := range m.shots {
		out.shots[id] = m.copyShot(out, shot)
	}
	for id, shot := range m.panoShots {
		out.panoShots[id] = m.copyShot(out, shot)
	}

	rebuildRigInstances(m.rigInstances, out.rigInstances, out.rigCameras, out.shots)
	rebuildRigInstances(m.panoRigInstances, out.panoRigInstances, out.panoRigCameras, out.panoShots)

	for id, lm := range m.landmarks {
		cp := newLandmark(id, lm.coordinates)
		cp.owner = out
		cp.color = lm.color
		for shot, feature := range lm.observations {
			cp.observations[shot] = feature
		}
		for shot, residual := range lm.reprojectionErrors {
			r := make([]float64, len(residual))
			copy(r, residual)
			cp.reprojectionErrors[shot] = r
		}
		out.landmarks[id] = cp
	}

	return out
}

func copyRigCameras(src, dst map[RigCameraID]*RigCamera) {
	for id, rc := range src {
		cp := *rc
		dst[id] = &cp
	}
}

// rebuildRigInstances recreates the instances of src in dst, re-linking
// them to the already-copied rig cameras and shots.
func rebuildRigInstances(
	src, dst map[RigInstanceID]*RigInstance,
	rigCameras map[RigCameraID]*RigCamera,
	shots map[ShotID]*Shot,
) {
	for id, ri := range src {
		cp := newRigInstance(id)
		cp.pose = ri.pose
		for shotID := range ri.shots {
			_ = cp.addShot(rigCameras[ri.rigCameras[shotID].ID], shots[shotID])
		}
		dst[id] = cp
	}
}

func (m *Map) copyShot(owner *Map, shot *Shot) *Shot {
	cp := newShot(shot.id, owner.cameras[shot.camera.ID])
	cp.owner = owner
	cp.MergeCC = shot.MergeCC
	cp.Scale = shot.Scale
	cp.measurements = shot.measurements.clone()
	if cov, ok := shot.covariance.Get(); ok {
		cp.covariance = optional.Of(mat.DenseCopyOf(cov))
	}
	cp.mesh.SetVertices(shot.mesh.vertices)
	cp.mesh.faces = make([][3]int, len(shot.mesh.faces))
	copy(cp.mesh.faces, shot.mesh.faces)
	for id, obs := range shot.observations {
		cp.observations[id] = obs
	}
	for feature, id := range shot.features {
		cp.features[feature] = id
	}
	return cp
}
