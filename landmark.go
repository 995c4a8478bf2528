package sfmgo

import (
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// Landmark is a reconstructed 3D point together with the set of shots that
// observe it. The per-shot feature ids recorded here mirror the
// observation payloads stored on the shots; the map keeps both sides
// consistent.
type Landmark struct {
	id          LandmarkID
	owner       *Map
	coordinates r3.Vec
	color       [3]int

	observations       map[ShotID]FeatureID
	reprojectionErrors map[ShotID][]float64
}

func newLandmark(id LandmarkID, coordinates r3.Vec) *Landmark {
	return &Landmark{
		id:                 id,
		coordinates:        coordinates,
		observations:       make(map[ShotID]FeatureID),
		reprojectionErrors: make(map[ShotID][]float64),
	}
}

// ID returns the landmark id.
func (l *Landmark) ID() LandmarkID { return l.id }

// Coordinates returns the 3D position in world coordinates.
func (l *Landmark) Coordinates() r3.Vec { return l.coordinates }

// SetCoordinates sets the 3D position in world coordinates.
func (l *Landmark) SetCoordinates(p r3.Vec) { l.coordinates = p }

// Color returns the RGB color.
func (l *Landmark) Color() [3]int { return l.color }

// SetColor sets the RGB color.
func (l *Landmark) SetColor(c [3]int) { l.color = c }

// NumberOfObservations returns how many shots observe the landmark.
func (l *Landmark) NumberOfObservations() int { return len(l.observations) }

// HasObservations reports whether any shot observes the landmark.
func (l *Landmark) HasObservations() bool { return len(l.observations) > 0 }

// Observations returns a copy of the shot-to-feature index.
func (l *Landmark) Observations() map[ShotID]FeatureID {
	out := make(map[ShotID]FeatureID, len(l.observations))
	for shot, feature := range l.observations {
		out[shot] = feature
	}
	return out
}

// ObservationIDs returns the observing shot ids in sorted order.
func (l *Landmark) ObservationIDs() []ShotID {
	ids := make([]ShotID, 0, len(l.observations))
	for id := range l.observations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsObservedIn reports whether the given shot observes the landmark.
func (l *Landmark) IsObservedIn(shot ShotID) bool {
	_, ok := l.observations[shot]
	return ok
}

func (l *Landmark) addObservation(shot ShotID, feature FeatureID) {
	l.observations[shot] = feature
}

func (l *Landmark) removeObservation(shot ShotID) {
	delete(l.observations, shot)
	delete(l.reprojectionErrors, shot)
}

// SetReprojectionError records the reprojection residual of the landmark in
// one shot. The residual layout depends on the error kind used to compute
// it.
func (l *Landmark) SetReprojectionError(shot ShotID, residual []float64) {
	l.reprojectionErrors[shot] = residual
}

// RemoveReprojectionError forgets the residual recorded for the shot.
func (l *Landmark) RemoveReprojectionError(shot ShotID) {
	delete(l.reprojectionErrors, shot)
}

// ReprojectionErrors returns a copy of the recorded residuals keyed by
// shot.
func (l *Landmark) ReprojectionErrors() map[ShotID][]float64 {
	out := make(map[ShotID][]float64, len(l.reprojectionErrors))
	for shot, residual := range l.reprojectionErrors {
		cp := make([]float64, len(residual))
		copy(cp, residual)
		out[shot] = cp
	}
	return out
}
