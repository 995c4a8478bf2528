package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ProjectionType selects the camera projection model.
type ProjectionType string

const (
	// ProjectionPerspective is the pinhole model with radial distortion.
	ProjectionPerspective ProjectionType = "perspective"
	// ProjectionFisheye is the equidistant fisheye model with radial
	// distortion.
	ProjectionFisheye ProjectionType = "fisheye"
	// ProjectionSpherical is the full equirectangular panorama model.
	ProjectionSpherical ProjectionType = "spherical"
)

// Camera is an intrinsic camera model.
//
// Image coordinates are normalized: the larger image dimension spans
// [-0.5, 0.5]. Focal is expressed in the same normalized units.
type Camera struct {
	ID             string         `json:"id" msgpack:"id"`
	ProjectionType ProjectionType `json:"projection_type" msgpack:"projection_type"`
	Width          int            `json:"width" msgpack:"width"`
	Height         int            `json:"height" msgpack:"height"`
	Focal          float64        `json:"focal" msgpack:"focal"`
	K1             float64        `json:"k1" msgpack:"k1"`
	K2             float64        `json:"k2" msgpack:"k2"`
}

// NewPerspectiveCamera returns a pinhole camera with radial distortion
// coefficients k1, k2.
func NewPerspectiveCamera(focal, k1, k2 float64) *Camera {
	return &Camera{ProjectionType: ProjectionPerspective, Focal: focal, K1: k1, K2: k2}
}

// NewFisheyeCamera returns an equidistant fisheye camera.
func NewFisheyeCamera(focal, k1, k2 float64) *Camera {
	return &Camera{ProjectionType: ProjectionFisheye, Focal: focal, K1: k1, K2: k2}
}

// NewSphericalCamera returns a full equirectangular panorama camera.
func NewSphericalCamera() *Camera {
	return &Camera{ProjectionType: ProjectionSpherical, Focal: 1}
}

// Project maps a point in camera coordinates to normalized image
// coordinates.
func (c *Camera) Project(p r3.Vec) [2]float64 {
	switch c.ProjectionType {
	case ProjectionFisheye:
		r := math.Hypot(p.X, p.Y)
		theta := math.Atan2(r, p.Z)
		if r < 1e-12 {
			return [2]float64{0, 0}
		}
		d := theta * (1 + theta*theta*(c.K1+theta*theta*c.K2)) / r
		return [2]float64{c.Focal * d * p.X, c.Focal * d * p.Y}
	case ProjectionSpherical:
		lon := math.Atan2(p.X, p.Z)
		lat := math.Atan2(-p.Y, math.Hypot(p.X, p.Z))
		return [2]float64{lon / (2 * math.Pi), -lat / (2 * math.Pi)}
	default: // perspective
		x := p.X / p.Z
		y := p.Y / p.Z
		r2 := x*x + y*y
		d := 1 + r2*(c.K1+r2*c.K2)
		return [2]float64{c.Focal * d * x, c.Focal * d * y}
	}
}

// Bearing maps normalized image coordinates back to a unit direction in
// camera coordinates. It inverts the projection, including distortion.
func (c *Camera) Bearing(point [2]float64) r3.Vec {
	switch c.ProjectionType {
	case ProjectionFisheye:
		rd := math.Hypot(point[0], point[1]) / c.Focal
		theta := c.undistortFisheye(rd)
		if rd < 1e-12 {
			return r3.Vec{Z: 1}
		}
		s := math.Sin(theta) / rd / c.Focal
		return r3.Unit(r3.Vec{X: s * point[0], Y: s * point[1], Z: math.Cos(theta)})
	case ProjectionSpherical:
		lon := point[0] * 2 * math.Pi
		lat := -point[1] * 2 * math.Pi
		return r3.Vec{
			X: math.Cos(lat) * math.Sin(lon),
			Y: -math.Sin(lat),
			Z: math.Cos(lat) * math.Cos(lon),
		}
	default: // perspective
		xd := point[0] / c.Focal
		yd := point[1] / c.Focal
		s := c.undistortPerspective(math.Hypot(xd, yd))
		return r3.Unit(r3.Vec{X: s * xd, Y: s * yd, Z: 1})
	}
}

// undistortPerspective solves ru*(1 + k1*ru^2 + k2*ru^4) = rd for ru by
// fixed-point iteration and returns the scale ru/rd.
func (c *Camera) undistortPerspective(rd float64) float64 {
	if rd < 1e-12 || (c.K1 == 0 && c.K2 == 0) {
		return 1
	}
	ru := rd
	for range 20 {
		r2 := ru * ru
		ru = rd / (1 + r2*(c.K1+r2*c.K2))
	}
	return ru / rd
}

// undistortFisheye solves theta*(1 + k1*theta^2 + k2*theta^4) = rd for
// theta.
func (c *Camera) undistortFisheye(rd float64) float64 {
	theta := rd
	if c.K1 == 0 && c.K2 == 0 {
		return theta
	}
	for range 20 {
		t2 := theta * theta
		theta = rd / (1 + t2*(c.K1+t2*c.K2))
	}
	return theta
}

// NormalizedToPixel converts normalized image coordinates to pixel
// coordinates.
func (c *Camera) NormalizedToPixel(point [2]float64) [2]float64 {
	size := float64(max(c.Width, c.Height))
	return [2]float64{
		point[0]*size + (float64(c.Width)-1)/2,
		point[1]*size + (float64(c.Height)-1)/2,
	}
}

// PixelToNormalized converts pixel coordinates to normalized image
// coordinates.
func (c *Camera) PixelToNormalized(point [2]float64) [2]float64 {
	size := float64(max(c.Width, c.Height))
	return [2]float64{
		(point[0] - (float64(c.Width)-1)/2) / size,
		(point[1] - (float64(c.Height)-1)/2) / size,
	}
}

// PixelScale returns the factor that converts normalized residuals to
// pixel residuals.
func (c *Camera) PixelScale() float64 {
	return float64(max(c.Width, c.Height))
}
