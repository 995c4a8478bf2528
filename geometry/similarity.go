package geometry

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Similarity is a 7-DoF transform (scale, rotation, translation) used as a
// per-camera bias between a reconstruction frame and a reference frame:
// y = s*R*x + t.
type Similarity struct {
	Scale       float64    `json:"scale" msgpack:"scale"`
	Rotation    [3]float64 `json:"rotation" msgpack:"rotation"`
	Translation [3]float64 `json:"translation" msgpack:"translation"`
}

// NewSimilarity returns the identity similarity.
func NewSimilarity() Similarity {
	return Similarity{Scale: 1}
}

// Transform applies the similarity to a point.
func (s Similarity) Transform(p r3.Vec) r3.Vec {
	var pose Pose
	pose.SetRotationVector(r3.Vec{X: s.Rotation[0], Y: s.Rotation[1], Z: s.Rotation[2]})
	rotated := pose.rot().Rotate(p)
	return r3.Add(r3.Scale(s.Scale, rotated), r3.Vec{X: s.Translation[0], Y: s.Translation[1], Z: s.Translation[2]})
}
