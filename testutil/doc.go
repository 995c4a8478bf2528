// Package testutil provides testing utilities for sfmgo.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded random number generator and builders for
// synthetic scenes: random poses, random observations and fully wired
// reconstructions with known ground truth.
//
// # Random Generation
//
//	rng := testutil.NewRNG(seed)
//	pose := rng.Pose()
//	obs := rng.Observation(featureID)
//
// # Synthetic Scenes
//
//	m := testutil.SyntheticMap(rng, testutil.SceneSpec{Shots: 4, Landmarks: 100})
package testutil
