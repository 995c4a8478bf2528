// Package model defines core types used throughout sfmgo.
//
// # Identity Types
//
//   - CameraID, RigCameraID, RigInstanceID, ShotID, LandmarkID: registry keys
//   - TrackID: feature-track key in the tracks graph
//   - FeatureID: per-shot detection index
//
// # Data Types
//
//   - Observation: a 2D detection of a landmark/track within a shot
//   - Depth: a depth prior attached to an observation
//   - ShotPair: an ordered pair of shot ids used by co-visibility queries
//
// All ids are plain strings; uniqueness is enforced by the registries that
// own them, not here.
package model
