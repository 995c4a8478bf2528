// Package geo converts between WGS84 geodetic coordinates and a local
// topocentric (east, north, up) frame anchored at a reference point.
package geo

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// WGS84 ellipsoid constants.
const (
	wgs84A  = 6378137.0
	wgs84F  = 1.0 / 298.257223563
	wgs84E2 = wgs84F * (2 - wgs84F)
)

// TopocentricConverter anchors a local tangent-plane frame at a geodetic
// reference point. X points east, Y north, Z up.
//
// The zero converter anchors at latitude 0, longitude 0, altitude 0.
type TopocentricConverter struct {
	Lat float64 `json:"latitude" msgpack:"latitude"`
	Lon float64 `json:"longitude" msgpack:"longitude"`
	Alt float64 `json:"altitude" msgpack:"altitude"`
}

// NewTopocentricConverter returns a converter anchored at the given
// geodetic reference (degrees, meters).
func NewTopocentricConverter(lat, lon, alt float64) TopocentricConverter {
	return TopocentricConverter{Lat: lat, Lon: lon, Alt: alt}
}

// ecef converts geodetic coordinates (degrees, meters) to earth-centered
// earth-fixed coordinates.
func ecef(lat, lon, alt float64) r3.Vec {
	phi := lat * math.Pi / 180
	lam := lon * math.Pi / 180
	sinPhi, cosPhi := math.Sincos(phi)
	sinLam, cosLam := math.Sincos(lam)
	n := wgs84A / math.Sqrt(1-wgs84E2*sinPhi*sinPhi)
	return r3.Vec{
		X: (n + alt) * cosPhi * cosLam,
		Y: (n + alt) * cosPhi * sinLam,
		Z: (n*(1-wgs84E2) + alt) * sinPhi,
	}
}

// enuMatrix returns the ECEF-to-ENU rotation at the reference point.
func (c TopocentricConverter) enuMatrix() *mat.Dense {
	phi := c.Lat * math.Pi / 180
	lam := c.Lon * math.Pi / 180
	sinPhi, cosPhi := math.Sincos(phi)
	sinLam, cosLam := math.Sincos(lam)
	return mat.NewDense(3, 3, []float64{
		-sinLam, cosLam, 0,
		-sinPhi * cosLam, -sinPhi * sinLam, cosPhi,
		cosPhi * cosLam, cosPhi * sinLam, sinPhi,
	})
}

// ToTopocentric converts geodetic coordinates (degrees, meters) to local
// east/north/up coordinates relative to the reference.
func (c TopocentricConverter) ToTopocentric(lat, lon, alt float64) r3.Vec {
	d := r3.Sub(ecef(lat, lon, alt), ecef(c.Lat, c.Lon, c.Alt))
	rot := c.enuMatrix()
	v := mat.NewVecDense(3, []float64{d.X, d.Y, d.Z})
	var out mat.VecDense
	out.MulVec(rot, v)
	return r3.Vec{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

// ToGeodetic converts local east/north/up coordinates back to geodetic
// latitude, longitude (degrees) and altitude (meters).
func (c TopocentricConverter) ToGeodetic(p r3.Vec) (lat, lon, alt float64) {
	rot := c.enuMatrix()
	v := mat.NewVecDense(3, []float64{p.X, p.Y, p.Z})
	var d mat.VecDense
	d.MulVec(rot.T(), v)
	e := r3.Add(ecef(c.Lat, c.Lon, c.Alt), r3.Vec{X: d.AtVec(0), Y: d.AtVec(1), Z: d.AtVec(2)})

	lonRad := math.Atan2(e.Y, e.X)
	q := math.Hypot(e.X, e.Y)
	// Iterate latitude; converges in a handful of steps for terrestrial
	// altitudes.
	phi := math.Atan2(e.Z, q*(1-wgs84E2))
	var h float64
	for range 10 {
		sinPhi := math.Sin(phi)
		n := wgs84A / math.Sqrt(1-wgs84E2*sinPhi*sinPhi)
		h = q/math.Cos(phi) - n
		phi = math.Atan2(e.Z, q*(1-wgs84E2*n/(n+h)))
	}
	return phi * 180 / math.Pi, lonRad * 180 / math.Pi, h
}
