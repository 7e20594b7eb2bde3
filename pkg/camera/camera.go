// Package camera provides the intrinsic camera models used by the feature
// tracker to move between distorted pixel coordinates and rays in the camera
// frame.
//
// Three interchangeable models are supported, selected at startup from
// calibration files: pinhole with radial-tangential distortion, fisheye
// (equidistant), and omnidirectional (MEI). All models implement the same
// two-operation capability set:
//
//	ray := model.LiftProjective(camera.Point2{X: u, Y: v})
//	px := model.SpaceToPlane(camera.Point3{X: x, Y: y, Z: z})
//
// The tracker consumes rays as normalized-plane coordinates (X/Z, Y/Z).
package camera

// Point2 is a 2-D point in pixel or normalized-plane coordinates.
type Point2 struct {
	X, Y float64
}

// Point3 is a 3-D point in the camera frame.
type Point3 struct {
	X, Y, Z float64
}

// Model is the capability set shared by all intrinsic camera models.
type Model interface {
	// Name returns the camera name from the calibration file.
	Name() string
	// ImageSize returns the calibrated image dimensions in pixels.
	ImageSize() (width, height int)
	// LiftProjective maps a distorted pixel to a ray in the camera frame.
	// The scale of the ray depends on the model (Z is not necessarily 1);
	// callers wanting normalized-plane coordinates divide by Z.
	LiftProjective(p Point2) Point3
	// SpaceToPlane projects a 3-D point in the camera frame to a
	// distorted pixel.
	SpaceToPlane(p Point3) Point2
}

// Registry holds the camera models of a rig: one model for monocular
// setups, two for stereo. Index 0 is always the left camera.
type Registry struct {
	models []Model
}

// NewRegistry builds a registry from already-constructed models.
func NewRegistry(models ...Model) *Registry {
	return &Registry{models: models}
}

// Stereo reports whether a second camera is registered.
func (r *Registry) Stereo() bool {
	return len(r.models) == 2
}

// Count returns the number of registered cameras.
func (r *Registry) Count() int {
	return len(r.models)
}

// Model returns the model for the given camera index (0 = left, 1 = right).
func (r *Registry) Model(i int) Model {
	return r.models[i]
}
