// Package gcp stores ground control points: externally surveyed 3D anchors
// used to georeference, scale or validate a reconstruction.
//
// Shot ids on control-point observations are free-form labels; they are
// not validated against any map's shot registry at this layer.
package gcp

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"sort"

	"github.com/google/uuid"

	"github.com/hupe1980/sfmgo/codec"
	"github.com/hupe1980/sfmgo/model"
	"github.com/hupe1980/sfmgo/optional"
)

var (
	// ErrNotFound is returned when a control point id is absent.
	ErrNotFound = errors.New("gcp: not found")
	// ErrDuplicateKey is returned when adding a point whose id already
	// exists.
	ErrDuplicateKey = errors.New("gcp: duplicate key")
)

// Role states how a control point participates in the pipeline.
type Role int

const (
	// RoleOptimization points constrain bundle adjustment.
	RoleOptimization Role = iota
	// RoleMetricsOnly points are withheld from optimization and used for
	// accuracy evaluation only.
	RoleMetricsOnly
)

// Observation is a 2D sighting of a control point in some image, keyed by
// a free-form shot label.
type Observation struct {
	ShotID     model.ShotID `json:"shot_id" msgpack:"shot_id"`
	UID        string       `json:"uid" msgpack:"uid"`
	Projection [2]float64   `json:"projection" msgpack:"projection"`
}

// Point is one ground control point: a geodetic or local anchor plus its
// image observations.
type Point struct {
	ID            string                    `json:"id" msgpack:"id"`
	SurveyPointID optional.Optional[string] `json:"survey_point_id" msgpack:"survey_point_id"`
	HasAltitude   bool                      `json:"has_altitude" msgpack:"has_altitude"`
	LLA           map[string]float64        `json:"lla" msgpack:"lla"`
	Role          Role                      `json:"role" msgpack:"role"`
	Observations  []Observation             `json:"observations" msgpack:"observations"`
}

// SetLLA sets the geodetic anchor (degrees, meters) and marks the altitude
// as known.
func (p *Point) SetLLA(lat, lon, alt float64) {
	p.LLA = map[string]float64{"latitude": lat, "longitude": lon, "altitude": alt}
	p.HasAltitude = true
}

// LLAVec returns latitude, longitude and altitude as a 3-vector. Missing
// components read as zero.
func (p *Point) LLAVec() [3]float64 {
	return [3]float64{p.LLA["latitude"], p.LLA["longitude"], p.LLA["altitude"]}
}

// AddObservation appends an image sighting. Duplicate sightings are kept;
// surveyors sometimes mark a point twice in one image on purpose.
func (p *Point) AddObservation(obs Observation) {
	p.Observations = append(p.Observations, obs)
}

// Registry is an id-keyed store of control points with codec-based
// persistence. Its lifecycle is independent of any map.
type Registry struct {
	points map[string]*Point
	codec  codec.Codec
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithCodec selects the serialization codec used by Save and Load. If nil
// is passed, codec.Default is used.
func WithCodec(c codec.Codec) RegistryOption {
	return func(r *Registry) {
		if c == nil {
			c = codec.Default
		}
		r.codec = c
	}
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		points: make(map[string]*Point),
		codec:  codec.Default,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add inserts the point. An empty id gets a generated one; an existing id
// fails with ErrDuplicateKey.
func (r *Registry) Add(p *Point) (*Point, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, ok := r.points[p.ID]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, p.ID)
	}
	r.points[p.ID] = p
	return p, nil
}

// Get returns the point with the given id.
func (r *Registry) Get(id string) (*Point, error) {
	p, ok := r.points[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return p, nil
}

// Has reports whether the id exists.
func (r *Registry) Has(id string) bool {
	_, ok := r.points[id]
	return ok
}

// Remove deletes the point with the given id.
func (r *Registry) Remove(id string) error {
	if _, ok := r.points[id]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	delete(r.points, id)
	return nil
}

// Len returns the number of points.
func (r *Registry) Len() int { return len(r.points) }

// IDs returns the point ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.points))
	for id := range r.points {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// All iterates the points in sorted id order.
func (r *Registry) All() iter.Seq2[string, *Point] {
	return func(yield func(string, *Point) bool) {
		for _, id := range r.IDs() {
			if !yield(id, r.points[id]) {
				return
			}
		}
	}
}

// registryFile is the persisted form. The codec name makes the file
// self-describing.
type registryFile struct {
	Codec  string   `json:"codec" msgpack:"codec"`
	Points []*Point `json:"points" msgpack:"points"`
}

// Save writes all points through the configured codec, preceded by a
// length-prefixed codec name so Load can pick the matching decoder.
func (r *Registry) Save(w io.Writer) error {
	points := make([]*Point, 0, len(r.points))
	for _, id := range r.IDs() {
		points = append(points, r.points[id])
	}
	data, err := r.codec.Marshal(registryFile{Codec: r.codec.Name(), Points: points})
	if err != nil {
		return fmt.Errorf("gcp: save: %w", err)
	}
	if _, err := fmt.Fprintf(w, "%s\n", r.codec.Name()); err != nil {
		return fmt.Errorf("gcp: save: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("gcp: save: %w", err)
	}
	return nil
}

// Load replaces the registry contents with the points read from r.
func (reg *Registry) Load(r io.Reader) error {
	all, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("gcp: load: %w", err)
	}
	idx := -1
	for i, b := range all {
		if b == '\n' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errors.New("gcp: load: missing codec header")
	}
	c, ok := codec.ByName(string(all[:idx]))
	if !ok {
		return fmt.Errorf("gcp: load: unknown codec %q", string(all[:idx]))
	}
	var file registryFile
	if err := c.Unmarshal(all[idx+1:], &file); err != nil {
		return fmt.Errorf("gcp: load: %w", err)
	}
	points := make(map[string]*Point, len(file.Points))
	for _, p := range file.Points {
		points[p.ID] = p
	}
	reg.points = points
	return nil
}
