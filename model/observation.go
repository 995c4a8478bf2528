package model

import (
	"github.com/hupe1980/sfmgo/optional"
)

// NoSemanticValue marks an observation without segmentation or instance
// labels.
const NoSemanticValue = -1

// Depth is a depth prior attached to an observation.
//
// IsRadial distinguishes distances measured along the bearing ray from
// distances measured along the optical axis.
type Depth struct {
	Value        float64 `json:"value" msgpack:"value"`
	IsRadial     bool    `json:"is_radial" msgpack:"is_radial"`
	StdDeviation float64 `json:"std_deviation" msgpack:"std_deviation"`
}

// Observation is the 2D detection of a landmark (or track) within a shot.
//
// Point is in normalized image coordinates. The same payload is stored on
// both sides of the shot/landmark index; the two copies must stay
// identical.
type Observation struct {
	Point        [2]float64               `json:"point" msgpack:"point"`
	Scale        float64                  `json:"scale" msgpack:"scale"`
	ID           FeatureID                `json:"id" msgpack:"id"`
	Color        [3]int                   `json:"color" msgpack:"color"`
	Segmentation int                      `json:"segmentation" msgpack:"segmentation"`
	Instance     int                      `json:"instance" msgpack:"instance"`
	DepthPrior   optional.Optional[Depth] `json:"depth_prior" msgpack:"depth_prior"`
}

// NewObservation builds an observation without semantic labels.
func NewObservation(x, y, scale float64, r, g, b int, feature FeatureID) Observation {
	return Observation{
		Point:        [2]float64{x, y},
		Scale:        scale,
		ID:           feature,
		Color:        [3]int{r, g, b},
		Segmentation: NoSemanticValue,
		Instance:     NoSemanticValue,
	}
}

// Equal reports whether two observations carry the same payload, including
// the presence state of the depth prior.
func (o Observation) Equal(other Observation) bool {
	if o.Point != other.Point || o.Scale != other.Scale || o.ID != other.ID {
		return false
	}
	if o.Color != other.Color || o.Segmentation != other.Segmentation || o.Instance != other.Instance {
		return false
	}
	if o.DepthPrior.HasValue() != other.DepthPrior.HasValue() {
		return false
	}
	return o.DepthPrior.Value() == other.DepthPrior.Value()
}
