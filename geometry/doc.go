// Package geometry provides the pose algebra and camera models consumed by
// the scene-graph store.
//
// A Pose is a rigid world-to-camera transform: x_cam = R*x_world + t. Rig
// composition follows the same convention everywhere:
//
//	shotPose = rigCamera.Pose.Compose(rigInstance.Pose)
//
// that is, camera-from-rig composed with rig-from-world.
//
// Rotations are backed by gonum quaternions (spatial/r3.Rotation) and
// exposed as compact angle-axis vectors at the API boundary.
package geometry
