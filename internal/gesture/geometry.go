package gesture

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ayusman/zengarden/internal/detector"
)

// DefaultExtensionRatio is how much farther from the wrist a fingertip must
// be than its PIP joint for the finger to count as extended.
const DefaultExtensionRatio = 1.2

// vec projects a landmark onto the image plane.
func vec(p detector.Point3D) r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

// Distance returns the Euclidean distance between two landmarks in
// normalized image space. Depth is ignored.
func Distance(a, b detector.Point3D) float64 {
	return r2.Norm(r2.Sub(vec(a), vec(b)))
}

// IsFingerExtended reports whether the fingertip is farther from the wrist
// than the PIP joint by more than ratio.
func IsFingerExtended(tip, pip, wrist detector.Point3D, ratio float64) bool {
	return Distance(tip, wrist) > Distance(pip, wrist)*ratio
}

// CalculateRoll returns the sideways lean of the hand as the sine of the
// angle between the wrist→middle-knuckle axis and image-up. The result is in
// [-1, 1], positive when the hand tilts right, and continuous for every
// orientation. Returns 0 for degenerate input.
func CalculateRoll(points []detector.Point3D) float64 {
	if len(points) <= detector.MiddleMCP {
		return 0
	}
	axis := r2.Sub(vec(points[detector.MiddleMCP]), vec(points[detector.Wrist]))
	n := r2.Norm(axis)
	if n < 1e-9 {
		return 0
	}
	return axis.X / n
}
