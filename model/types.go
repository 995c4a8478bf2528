package model

// CameraID is the unique identifier of a camera model within a map.
type CameraID = string

// RigCameraID is the unique identifier of a rig camera within a map.
type RigCameraID = string

// RigInstanceID is the unique identifier of a rig instance within a map.
type RigInstanceID = string

// ShotID is the unique identifier of a shot. By convention it is the image
// file name.
type ShotID = string

// LandmarkID is the unique identifier of a reconstructed 3D point.
type LandmarkID = string

// TrackID is the unique identifier of a feature track. When a tracks graph
// is converted into a map, track ids become landmark ids.
type TrackID = string

// FeatureID is the index of a detected feature within a single shot.
// It is unique among the observations of one shot, which enables O(1)
// reverse lookup from feature id to landmark.
type FeatureID int

// ShotPair is an ordered pair of shot ids. Co-visibility queries return one
// entry per pair with First < Second.
type ShotPair struct {
	First  ShotID
	Second ShotID
}
