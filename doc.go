// Package sfmgo is an in-memory scene graph for structure-from-motion
// pipelines.
//
// The central type is Map: a registry of cameras, rig cameras, rig
// instances, shots, pano shots and landmarks, plus the bidirectional
// observation index that links shots to the landmarks they see. All
// cross references between entities are maintained by the Map itself;
// removing a shot detaches its observations, removing a landmark
// detaches it from every observing shot.
//
// Shots never store an absolute pose. Every shot belongs to exactly one
// rig instance and derives its pose by composing the rig camera's
// relative pose with the instance pose. Shots created outside an explicit
// rig get a single-shot instance of their own, which keeps the pose model
// uniform.
//
// The subpackages hold the supporting layers:
//
//   - geometry: poses, camera models and similarity transforms
//   - geo: geodetic to topocentric conversion
//   - tracks: the pre-reconstruction feature track graph
//   - gcp: ground control points
//   - model: shared identifier and observation types
//
// A Map is not safe for concurrent mutation.
package sfmgo
