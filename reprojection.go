package sfmgo

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/hupe1980/sfmgo/tracks"
)

// ReprojectionErrorType selects the residual space used when comparing a
// projected landmark against its observation.
type ReprojectionErrorType int

const (
	// ReprojectionErrorNormalized measures residuals in normalized image
	// coordinates.
	ReprojectionErrorNormalized ReprojectionErrorType = iota
	// ReprojectionErrorPixel measures residuals in pixels.
	ReprojectionErrorPixel
	// ReprojectionErrorAngular measures the angle between the observed
	// viewing ray and the direction to the landmark.
	ReprojectionErrorAngular
)

// ToTracksManager exports the map's observation index as a feature-track
// graph, with landmark ids as track ids.
func (m *Map) ToTracksManager() *tracks.Manager {
	tm := tracks.NewManager()
	for shotID, shot := range m.shots {
		for lmID, obs := range shot.observations {
			tm.AddObservation(shotID, TrackID(lmID), obs)
		}
	}
	return tm
}

// AddCorrespondencesFromTracksManager links shots and landmarks of the map
// according to the track graph. Cells whose shot or track is unknown to
// the map are skipped, as are cells whose feature id is already linked to
// a different landmark. Returns the number of links added.
func (m *Map) AddCorrespondencesFromTracksManager(tm *tracks.Manager) int {
	added := 0
	for _, shotID := range tm.ShotIDs() {
		shot, ok := m.shots[shotID]
		if !ok {
			continue
		}
		row, err := tm.ShotObservations(shotID)
		if err != nil {
			continue
		}
		for trackID, obs := range row {
			lm, ok := m.landmarks[LandmarkID(trackID)]
			if !ok {
				continue
			}
			if err := m.AddObservation(shot, lm, obs); err != nil {
				m.logger.Debug("skipping correspondence",
					"shot", shotID,
					"track", trackID,
					"error", err,
				)
				continue
			}
			added++
		}
	}
	return added
}

// AddCorrespondencesFromFile reads a tracks file and links its cells into
// the map like AddCorrespondencesFromTracksManager.
func (m *Map) AddCorrespondencesFromFile(path string) (int, error) {
	tm, err := tracks.FromFile(path)
	if err != nil {
		return 0, translateError(err)
	}
	return m.AddCorrespondencesFromTracksManager(tm), nil
}

// GetValidObservations filters the track graph down to the cells whose
// shot and landmark both exist in the map.
func (m *Map) GetValidObservations(tm *tracks.Manager) map[ShotID]map[TrackID]Observation {
	out := make(map[ShotID]map[TrackID]Observation)
	for _, shotID := range tm.ShotIDs() {
		if _, ok := m.shots[shotID]; !ok {
			continue
		}
		row, err := tm.ShotObservations(shotID)
		if err != nil {
			continue
		}
		for trackID, obs := range row {
			if _, ok := m.landmarks[LandmarkID(trackID)]; !ok {
				continue
			}
			cell, ok := out[shotID]
			if !ok {
				cell = make(map[TrackID]Observation)
				out[shotID] = cell
			}
			cell[trackID] = obs
		}
	}
	return out
}

// ComputeReprojectionErrors projects every valid observation's landmark
// into its shot and returns the residuals. Pixel and normalized residuals
// are 2D vectors; angular residuals are a single angle in radians.
func (m *Map) ComputeReprojectionErrors(tm *tracks.Manager, kind ReprojectionErrorType) map[ShotID]map[TrackID][]float64 {
	out := make(map[ShotID]map[TrackID][]float64)
	for shotID, row := range m.GetValidObservations(tm) {
		shot := m.shots[shotID]
		cell := make(map[TrackID][]float64, len(row))
		for trackID, obs := range row {
			lm := m.landmarks[LandmarkID(trackID)]
			cell[trackID] = reprojectionError(shot, lm, obs, kind)
		}
		out[shotID] = cell
	}
	return out
}

func reprojectionError(shot *Shot, lm *Landmark, obs Observation, kind ReprojectionErrorType) []float64 {
	switch kind {
	case ReprojectionErrorAngular:
		observed := shot.Bearing(obs.Point)
		direction := shot.Pose().TransformPoint(lm.Coordinates())
		return []float64{angleBetween(observed, direction)}
	case ReprojectionErrorPixel:
		proj := shot.Project(lm.Coordinates())
		scale := shot.camera.PixelScale()
		return []float64{(proj[0] - obs.Point[0]) * scale, (proj[1] - obs.Point[1]) * scale}
	default:
		proj := shot.Project(lm.Coordinates())
		return []float64{proj[0] - obs.Point[0], proj[1] - obs.Point[1]}
	}
}

func angleBetween(a, b r3.Vec) float64 {
	return math.Atan2(r3.Norm(r3.Cross(a, b)), r3.Dot(a, b))
}
