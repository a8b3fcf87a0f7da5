package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Idle motion gate settings. Frames are shrunk to WorkingWidth before they
// are compared, so BlurKernel is sized for that width.
const (
	WorkingWidth = 160
	BlurKernel   = 7
	// PixelDelta is the grey-level change that marks a pixel as moved.
	PixelDelta = 25
	// DefaultMotionThreshold is the share of moved pixels, in percent,
	// that wakes the hand detector while no hand is tracked.
	DefaultMotionThreshold = 1.0
)

// MotionDetector is the idle gate of the control loop: it compares each
// frame with the previous one and says whether enough of the picture moved
// to be worth a hand detection pass.
type MotionDetector struct {
	mu        sync.Mutex
	threshold float64
	baseline  gocv.Mat
	primed    bool
}

// NewMotionDetector creates a MotionDetector waking at threshold percent
// of moved pixels. Non-positive values use DefaultMotionThreshold.
func NewMotionDetector(threshold float64) *MotionDetector {
	if threshold <= 0 {
		threshold = DefaultMotionThreshold
	}
	return &MotionDetector{
		threshold: threshold,
		baseline:  gocv.NewMat(),
	}
}

// Detect reports whether frame moved past the threshold compared with the
// previous frame, and the moved share in percent. A frame that cannot be
// compared (the first one, or one whose working size differs) becomes the
// new baseline and reports no motion.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	if frame == nil || frame.Empty() {
		return false, 0
	}

	small := gocv.NewMat()
	defer small.Close()
	if err := shrinkGray(frame, &small); err != nil {
		return false, 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.primed || !sameSize(m.baseline, small) {
		small.CopyTo(&m.baseline)
		m.primed = true
		return false, 0
	}

	moved := movedShare(small, m.baseline)
	small.CopyTo(&m.baseline)
	return moved > m.threshold, moved
}

// shrinkGray writes a blurred greyscale copy of frame, at most WorkingWidth
// wide, to dst.
func shrinkGray(frame *gocv.Mat, dst *gocv.Mat) error {
	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		if err := gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray); err != nil {
			return err
		}
	} else {
		frame.CopyTo(&gray)
	}

	size := image.Point{X: gray.Cols(), Y: gray.Rows()}
	if size.X > WorkingWidth {
		size = image.Point{X: WorkingWidth, Y: max(1, size.Y*WorkingWidth/size.X)}
	}
	resized := gocv.NewMat()
	defer resized.Close()
	if err := gocv.Resize(gray, &resized, size, 0, 0, gocv.InterpolationArea); err != nil {
		return err
	}

	return gocv.GaussianBlur(resized, dst, image.Point{X: BlurKernel, Y: BlurKernel}, 0, 0, gocv.BorderDefault)
}

// movedShare returns the percentage of pixels differing by more than
// PixelDelta between a and b.
func movedShare(a, b gocv.Mat) float64 {
	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(a, b, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, PixelDelta, 255, gocv.ThresholdBinary)

	total := mask.Rows() * mask.Cols()
	if total == 0 {
		return 0
	}
	return float64(gocv.CountNonZero(mask)) / float64(total) * 100
}

func sameSize(a, b gocv.Mat) bool {
	return a.Rows() == b.Rows() && a.Cols() == b.Cols()
}

// Reset forgets the baseline; the next frame primes the detector again.
// The loop calls it on Stop so a restart does not compare against a stale
// picture.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropBaseline()
}

// Close frees the baseline Mat. The detector stays usable.
func (m *MotionDetector) Close() {
	m.Reset()
}

func (m *MotionDetector) dropBaseline() {
	if !m.baseline.Empty() {
		m.baseline.Close()
		m.baseline = gocv.NewMat()
	}
	m.primed = false
}

// SetThreshold retunes the gate. Non-positive values are ignored.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threshold = threshold
}

// Threshold returns the wake threshold in percent.
func (m *MotionDetector) Threshold() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threshold
}
