package tracks

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hupe1980/sfmgo/model"
)

// ErrNotFound is returned when a shot, track or cell is absent from the
// graph.
var ErrNotFound = errors.New("tracks: not found")

// Manager owns the bipartite shot-by-track observation graph. Both
// orientations are kept so that row and column projections are O(size of
// the projection).
type Manager struct {
	shots  map[model.ShotID]map[model.TrackID]model.Observation
	tracks map[model.TrackID]map[model.ShotID]model.Observation
}

// NewManager returns an empty graph.
func NewManager() *Manager {
	return &Manager{
		shots:  make(map[model.ShotID]map[model.TrackID]model.Observation),
		tracks: make(map[model.TrackID]map[model.ShotID]model.Observation),
	}
}

// AddObservation stores the observation in the (shot, track) cell,
// overwriting any existing payload. Both orientations are updated
// together.
func (m *Manager) AddObservation(shot model.ShotID, track model.TrackID, obs model.Observation) {
	row, ok := m.shots[shot]
	if !ok {
		row = make(map[model.TrackID]model.Observation)
		m.shots[shot] = row
	}
	row[track] = obs

	col, ok := m.tracks[track]
	if !ok {
		col = make(map[model.ShotID]model.Observation)
		m.tracks[track] = col
	}
	col[shot] = obs
}

// RemoveObservation deletes the (shot, track) cell. Removing an absent
// cell fails with ErrNotFound and leaves the graph unchanged.
func (m *Manager) RemoveObservation(shot model.ShotID, track model.TrackID) error {
	row, ok := m.shots[shot]
	if !ok {
		return fmt.Errorf("%w: shot %q", ErrNotFound, shot)
	}
	if _, ok := row[track]; !ok {
		return fmt.Errorf("%w: track %q in shot %q", ErrNotFound, track, shot)
	}
	delete(row, track)
	delete(m.tracks[track], shot)
	return nil
}

// Observation returns the payload of the (shot, track) cell.
func (m *Manager) Observation(shot model.ShotID, track model.TrackID) (model.Observation, error) {
	row, ok := m.shots[shot]
	if !ok {
		return model.Observation{}, fmt.Errorf("%w: shot %q", ErrNotFound, shot)
	}
	obs, ok := row[track]
	if !ok {
		return model.Observation{}, fmt.Errorf("%w: track %q in shot %q", ErrNotFound, track, shot)
	}
	return obs, nil
}

// NumShots returns the number of rows.
func (m *Manager) NumShots() int { return len(m.shots) }

// NumTracks returns the number of columns.
func (m *Manager) NumTracks() int { return len(m.tracks) }

// ShotIDs returns the row keys in sorted order.
func (m *Manager) ShotIDs() []model.ShotID {
	ids := make([]model.ShotID, 0, len(m.shots))
	for id := range m.shots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TrackIDs returns the column keys in sorted order.
func (m *Manager) TrackIDs() []model.TrackID {
	ids := make([]model.TrackID, 0, len(m.tracks))
	for id := range m.tracks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HasShot reports whether the shot has any observation.
func (m *Manager) HasShot(shot model.ShotID) bool {
	_, ok := m.shots[shot]
	return ok
}

// ShotObservations returns a copy of the shot's row, keyed by track.
func (m *Manager) ShotObservations(shot model.ShotID) (map[model.TrackID]model.Observation, error) {
	row, ok := m.shots[shot]
	if !ok {
		return nil, fmt.Errorf("%w: shot %q", ErrNotFound, shot)
	}
	out := make(map[model.TrackID]model.Observation, len(row))
	for track, obs := range row {
		out[track] = obs
	}
	return out, nil
}

// TrackObservations returns a copy of the track's column, keyed by shot.
func (m *Manager) TrackObservations(track model.TrackID) (map[model.ShotID]model.Observation, error) {
	col, ok := m.tracks[track]
	if !ok {
		return nil, fmt.Errorf("%w: track %q", ErrNotFound, track)
	}
	out := make(map[model.ShotID]model.Observation, len(col))
	for shot, obs := range col {
		out[shot] = obs
	}
	return out, nil
}

// ConstructSubManager returns a filtered copy restricted to the given
// shots and tracks. Unknown ids are ignored.
func (m *Manager) ConstructSubManager(shots []model.ShotID, tracksFilter []model.TrackID) *Manager {
	wanted := make(map[model.TrackID]struct{}, len(tracksFilter))
	for _, t := range tracksFilter {
		wanted[t] = struct{}{}
	}
	sub := NewManager()
	for _, shot := range shots {
		row, ok := m.shots[shot]
		if !ok {
			continue
		}
		for track, obs := range row {
			if _, ok := wanted[track]; ok {
				sub.AddObservation(shot, track, obs)
			}
		}
	}
	return sub
}

// Merge unions the given managers into a new one. On a (shot, track)
// collision the later manager in the argument list wins.
func Merge(managers ...*Manager) *Manager {
	merged := NewManager()
	for _, m := range managers {
		if m == nil {
			continue
		}
		for shot, row := range m.shots {
			for track, obs := range row {
				merged.AddObservation(shot, track, obs)
			}
		}
	}
	return merged
}
