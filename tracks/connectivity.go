package tracks

import (
	"runtime"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/sfmgo/model"
)

// CommonObservation is one track seen by both shots of a pair, with the
// payloads from each side.
type CommonObservation struct {
	Track  model.TrackID
	First  model.Observation
	Second model.Observation
}

// CommonObservations lists the tracks observed by both shots, with the
// observation from each. Shots without observations yield an empty list.
func (m *Manager) CommonObservations(im1, im2 model.ShotID) []CommonObservation {
	row1 := m.shots[im1]
	row2 := m.shots[im2]
	var out []CommonObservation
	for track, obs1 := range row1 {
		if obs2, ok := row2[track]; ok {
			out = append(out, CommonObservation{Track: track, First: obs1, Second: obs2})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Track < out[j].Track })
	return out
}

// shotIndex assigns each shot a dense index so track membership can be
// kept in bitmaps.
type shotIndex struct {
	ids []model.ShotID
	pos map[model.ShotID]uint32
}

func (m *Manager) buildShotIndex() shotIndex {
	idx := shotIndex{ids: m.ShotIDs(), pos: make(map[model.ShotID]uint32, len(m.shots))}
	for i, id := range idx.ids {
		idx.pos[id] = uint32(i)
	}
	return idx
}

// trackBitmap returns the set of shots observing the track, optionally
// intersected with a filter.
func (m *Manager) trackBitmap(track model.TrackID, idx shotIndex, filter *roaring.Bitmap) *roaring.Bitmap {
	b := roaring.New()
	for shot := range m.tracks[track] {
		b.Add(idx.pos[shot])
	}
	if filter != nil {
		b.And(filter)
	}
	return b
}

// AllCommonObservations enumerates, for every pair of shots sharing at
// least one track, the shared tracks with the observation payloads from
// both sides. Pairs are keyed with First < Second. The cost is the sum
// over tracks of the square of the number of shots observing the track.
//
// The computation is read-only and fans out over track buckets.
func (m *Manager) AllCommonObservations() map[model.ShotPair][]CommonObservation {
	idx := m.buildShotIndex()
	trackIDs := m.TrackIDs()

	partials := runPerBucket(trackIDs, func(bucket []model.TrackID) map[model.ShotPair][]CommonObservation {
		part := make(map[model.ShotPair][]CommonObservation)
		for _, track := range bucket {
			col := m.tracks[track]
			members := m.trackBitmap(track, idx, nil).ToArray()
			for i := 0; i < len(members); i++ {
				for j := i + 1; j < len(members); j++ {
					first := idx.ids[members[i]]
					second := idx.ids[members[j]]
					pair := model.ShotPair{First: first, Second: second}
					part[pair] = append(part[pair], CommonObservation{
						Track:  track,
						First:  col[first],
						Second: col[second],
					})
				}
			}
		}
		return part
	})

	out := make(map[model.ShotPair][]CommonObservation)
	for _, part := range partials {
		for pair, obs := range part {
			out[pair] = append(out[pair], obs...)
		}
	}
	return out
}

// AllPairsConnectivity counts shared tracks per shot pair. Empty filters
// mean "all shots" and "all tracks" respectively. Pairs are keyed with
// First < Second; pairs with zero shared tracks are omitted.
func (m *Manager) AllPairsConnectivity(shots []model.ShotID, tracksFilter []model.TrackID) map[model.ShotPair]int {
	idx := m.buildShotIndex()

	var filter *roaring.Bitmap
	if len(shots) > 0 {
		filter = roaring.New()
		for _, shot := range shots {
			if pos, ok := idx.pos[shot]; ok {
				filter.Add(pos)
			}
		}
	}

	trackIDs := tracksFilter
	if len(trackIDs) == 0 {
		trackIDs = m.TrackIDs()
	}

	partials := runPerBucket(trackIDs, func(bucket []model.TrackID) map[model.ShotPair]int {
		part := make(map[model.ShotPair]int)
		for _, track := range bucket {
			if _, ok := m.tracks[track]; !ok {
				continue
			}
			members := m.trackBitmap(track, idx, filter).ToArray()
			for i := 0; i < len(members); i++ {
				for j := i + 1; j < len(members); j++ {
					pair := model.ShotPair{First: idx.ids[members[i]], Second: idx.ids[members[j]]}
					part[pair]++
				}
			}
		}
		return part
	})

	out := make(map[model.ShotPair]int)
	for _, part := range partials {
		for pair, n := range part {
			out[pair] += n
		}
	}
	return out
}

// runPerBucket splits tracks into contiguous buckets, runs fn on each in
// parallel and returns the partial results in bucket order, keeping merged
// output deterministic.
func runPerBucket[R any](trackIDs []model.TrackID, fn func([]model.TrackID) R) []R {
	workers := runtime.GOMAXPROCS(0)
	if workers > len(trackIDs) {
		workers = len(trackIDs)
	}
	if workers <= 1 {
		if len(trackIDs) == 0 {
			return nil
		}
		return []R{fn(trackIDs)}
	}

	partials := make([]R, workers)
	chunk := (len(trackIDs) + workers - 1) / workers
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := min(lo+chunk, len(trackIDs))
		if lo >= hi {
			break
		}
		g.Go(func() error {
			partials[w] = fn(trackIDs[lo:hi])
			return nil
		})
	}
	_ = g.Wait() // workers never fail
	return partials
}
