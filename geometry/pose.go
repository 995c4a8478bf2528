package geometry

import (
	"encoding/json"
	"math"

	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// poseTol is the tolerance used by identity and approximate-equality
// checks. Poses survive long optimization loops; exact float comparison is
// useless there.
const poseTol = 1e-10

// Pose is a rigid world-to-camera transform: x_cam = R*x_world + t.
//
// The zero Pose is the identity transform. The rotation is kept as a unit
// quaternion and renormalized after composition to bound drift.
type Pose struct {
	rotation    r3.Rotation
	translation r3.Vec
}

// NewPose returns the identity pose.
func NewPose() Pose {
	return Pose{rotation: r3.Rotation(quat.Number{Real: 1})}
}

// rot returns the rotation quaternion, mapping the zero value to the
// identity so that a zero Pose is usable.
func (p Pose) rot() r3.Rotation {
	if quat.Number(p.rotation) == (quat.Number{}) {
		return r3.Rotation(quat.Number{Real: 1})
	}
	return p.rotation
}

// NewPoseFromRotationVector builds a pose from an angle-axis rotation
// vector and a translation, both in the world-to-camera direction.
func NewPoseFromRotationVector(rvec, translation r3.Vec) Pose {
	p := NewPose()
	p.SetRotationVector(rvec)
	p.translation = translation
	return p
}

// NewPoseFromOrigin builds a pose with identity rotation whose camera
// center sits at origin (world coordinates).
func NewPoseFromOrigin(origin r3.Vec) Pose {
	p := NewPose()
	p.SetOrigin(origin)
	return p
}

// RotationVector returns the world-to-camera rotation as an angle-axis
// vector.
func (p Pose) RotationVector() r3.Vec {
	q := quat.Number(p.rot())
	if q.Real < 0 { // canonical hemisphere
		q = quat.Scale(-1, q)
	}
	v := r3.Vec{X: q.Imag, Y: q.Jmag, Z: q.Kmag}
	n := r3.Norm(v)
	if n < poseTol {
		return r3.Vec{}
	}
	angle := 2 * math.Atan2(n, q.Real)
	return r3.Scale(angle/n, v)
}

// SetRotationVector sets the world-to-camera rotation from an angle-axis
// vector.
func (p *Pose) SetRotationVector(rvec r3.Vec) {
	angle := r3.Norm(rvec)
	if angle < poseTol {
		p.rotation = r3.Rotation(quat.Number{Real: 1})
		return
	}
	p.rotation = r3.NewRotation(angle, r3.Scale(1/angle, rvec))
}

// Translation returns the world-to-camera translation.
func (p Pose) Translation() r3.Vec { return p.translation }

// SetTranslation sets the world-to-camera translation.
func (p *Pose) SetTranslation(t r3.Vec) { p.translation = t }

// Origin returns the camera center in world coordinates, i.e. the point
// that maps to zero: origin = R^-1 * (-t).
func (p Pose) Origin() r3.Vec {
	inv := r3.Rotation(quat.Conj(quat.Number(p.rot())))
	return inv.Rotate(r3.Scale(-1, p.translation))
}

// SetOrigin moves the camera center to origin, keeping the rotation.
func (p *Pose) SetOrigin(origin r3.Vec) {
	p.translation = r3.Scale(-1, p.rot().Rotate(origin))
}

// TransformPoint maps a world point into camera coordinates.
func (p Pose) TransformPoint(point r3.Vec) r3.Vec {
	return r3.Add(p.rot().Rotate(point), p.translation)
}

// TransformPointInverse maps a camera point back into world coordinates.
func (p Pose) TransformPointInverse(point r3.Vec) r3.Vec {
	inv := r3.Rotation(quat.Conj(quat.Number(p.rot())))
	return inv.Rotate(r3.Sub(point, p.translation))
}

// Compose returns p ∘ other: the transform that first applies other, then
// p. With p camera-from-rig and other rig-from-world, the result is
// camera-from-world.
func (p Pose) Compose(other Pose) Pose {
	q := quat.Mul(quat.Number(p.rot()), quat.Number(other.rot()))
	if n := quat.Abs(q); n > poseTol {
		q = quat.Scale(1/n, q)
	}
	return Pose{
		rotation:    r3.Rotation(q),
		translation: r3.Add(p.rot().Rotate(other.translation), p.translation),
	}
}

// Inverse returns the camera-to-world transform.
func (p Pose) Inverse() Pose {
	conj := quat.Conj(quat.Number(p.rot()))
	inv := r3.Rotation(conj)
	return Pose{
		rotation:    inv,
		translation: inv.Rotate(r3.Scale(-1, p.translation)),
	}
}

// RelativeTo returns the transform from other's frame into p's frame:
// p ∘ other^-1. Used to recover a rig-camera offset from two absolute
// poses.
func (p Pose) RelativeTo(other Pose) Pose {
	return p.Compose(other.Inverse())
}

// RotationMatrix returns the world-to-camera rotation as a dense 3x3
// matrix, the form bundle-adjustment collaborators consume.
func (p Pose) RotationMatrix() *mat.Dense {
	r := p.rot()
	ex := r.Rotate(r3.Vec{X: 1})
	ey := r.Rotate(r3.Vec{Y: 1})
	ez := r.Rotate(r3.Vec{Z: 1})
	return mat.NewDense(3, 3, []float64{
		ex.X, ey.X, ez.X,
		ex.Y, ey.Y, ez.Y,
		ex.Z, ey.Z, ez.Z,
	})
}

// IsIdentity reports whether the pose is the identity transform within
// tolerance.
func (p Pose) IsIdentity() bool {
	return r3.Norm(p.RotationVector()) < poseTol && r3.Norm(p.translation) < poseTol
}

// ApproxEqual reports whether two poses agree within tol on both the
// rotation vector and the translation.
func (p Pose) ApproxEqual(other Pose, tol float64) bool {
	return r3.Norm(r3.Sub(p.RotationVector(), other.RotationVector())) <= tol &&
		r3.Norm(r3.Sub(p.translation, other.translation)) <= tol
}

// poseRecord is the serialized form: angle-axis rotation plus translation,
// both world-to-camera.
type poseRecord struct {
	Rotation    [3]float64 `json:"rotation" msgpack:"rotation"`
	Translation [3]float64 `json:"translation" msgpack:"translation"`
}

func (p Pose) record() poseRecord {
	rvec := p.RotationVector()
	return poseRecord{
		Rotation:    [3]float64{rvec.X, rvec.Y, rvec.Z},
		Translation: [3]float64{p.translation.X, p.translation.Y, p.translation.Z},
	}
}

func (p *Pose) setRecord(rec poseRecord) {
	p.SetRotationVector(r3.Vec{X: rec.Rotation[0], Y: rec.Rotation[1], Z: rec.Rotation[2]})
	p.translation = r3.Vec{X: rec.Translation[0], Y: rec.Translation[1], Z: rec.Translation[2]}
}

// MarshalJSON implements json.Marshaler.
func (p Pose) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.record())
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Pose) UnmarshalJSON(data []byte) error {
	var rec poseRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	p.setRecord(rec)
	return nil
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (p Pose) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(p.record())
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (p *Pose) DecodeMsgpack(dec *msgpack.Decoder) error {
	var rec poseRecord
	if err := dec.Decode(&rec); err != nil {
		return err
	}
	p.setRecord(rec)
	return nil
}
