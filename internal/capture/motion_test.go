package capture

import (
	"testing"

	"gocv.io/x/gocv"
)

func solidFrame(t *testing.T, rows, cols int, value float64) *gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8UC3)
	if value != 0 {
		m.SetTo(gocv.NewScalar(value, value, value, 0))
	}
	t.Cleanup(func() { m.Close() })
	return &m
}

func TestNewMotionDetector(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		want      float64
	}{
		{name: "explicit", threshold: 2.5, want: 2.5},
		{name: "zero uses default", threshold: 0, want: DefaultMotionThreshold},
		{name: "negative uses default", threshold: -3, want: DefaultMotionThreshold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := NewMotionDetector(tt.threshold)
			defer md.Close()

			if got := md.Threshold(); got != tt.want {
				t.Errorf("Threshold() = %f, want %f", got, tt.want)
			}
			if md.primed {
				t.Error("new detector should wait for a baseline frame")
			}
		})
	}
}

func TestMotionDetector_SetThreshold(t *testing.T) {
	md := NewMotionDetector(1)
	defer md.Close()

	for _, tt := range []struct {
		set  float64
		want float64
	}{
		{set: 5, want: 5},
		{set: 0.5, want: 0.5},
		{set: 0, want: 0.5},
		{set: -1, want: 0.5},
	} {
		md.SetThreshold(tt.set)
		if got := md.Threshold(); got != tt.want {
			t.Errorf("after SetThreshold(%f): Threshold() = %f, want %f", tt.set, got, tt.want)
		}
	}
}

func TestMotionDetector_Detect(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	tests := []struct {
		name      string
		threshold float64
		first     func(t *testing.T) *gocv.Mat
		second    func(t *testing.T) *gocv.Mat
		want      bool
		minShare  float64
		maxShare  float64
	}{
		{
			name:      "still picture",
			threshold: 1,
			first:     func(t *testing.T) *gocv.Mat { return solidFrame(t, 480, 640, 0) },
			second:    func(t *testing.T) *gocv.Mat { return solidFrame(t, 480, 640, 0) },
			want:      false,
			maxShare:  0,
		},
		{
			name:      "black to white wakes",
			threshold: 1,
			first:     func(t *testing.T) *gocv.Mat { return solidFrame(t, 480, 640, 0) },
			second:    func(t *testing.T) *gocv.Mat { return solidFrame(t, 480, 640, 255) },
			want:      true,
			minShare:  99,
			maxShare:  100,
		},
		{
			name:      "threshold above full change",
			threshold: 100,
			first:     func(t *testing.T) *gocv.Mat { return solidFrame(t, 480, 640, 0) },
			second:    func(t *testing.T) *gocv.Mat { return solidFrame(t, 480, 640, 255) },
			want:      false,
			minShare:  99,
			maxShare:  100,
		},
		{
			name:      "small grey shift stays below pixel delta",
			threshold: 1,
			first:     func(t *testing.T) *gocv.Mat { return solidFrame(t, 480, 640, 100) },
			second:    func(t *testing.T) *gocv.Mat { return solidFrame(t, 480, 640, 110) },
			want:      false,
			maxShare:  0,
		},
		{
			name:      "resolution change with same aspect still compares",
			threshold: 1,
			first:     func(t *testing.T) *gocv.Mat { return solidFrame(t, 240, 320, 0) },
			second:    func(t *testing.T) *gocv.Mat { return solidFrame(t, 480, 640, 255) },
			want:      true,
			minShare:  99,
			maxShare:  100,
		},
		{
			name:      "aspect change re-baselines",
			threshold: 1,
			first:     func(t *testing.T) *gocv.Mat { return solidFrame(t, 240, 320, 0) },
			second:    func(t *testing.T) *gocv.Mat { return solidFrame(t, 480, 480, 255) },
			want:      false,
			maxShare:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := NewMotionDetector(tt.threshold)
			defer md.Close()

			if moved, share := md.Detect(tt.first(t)); moved || share != 0 {
				t.Fatalf("baseline frame reported motion: moved=%v share=%f", moved, share)
			}

			moved, share := md.Detect(tt.second(t))
			if moved != tt.want {
				t.Errorf("Detect() moved = %v, want %v (share %f)", moved, tt.want, share)
			}
			if share < tt.minShare || share > tt.maxShare {
				t.Errorf("Detect() share = %f, want within [%f, %f]", share, tt.minShare, tt.maxShare)
			}
		})
	}
}

func TestMotionDetector_EmptyFrame(t *testing.T) {
	md := NewMotionDetector(1)
	defer md.Close()

	if moved, share := md.Detect(nil); moved || share != 0 {
		t.Errorf("nil frame: moved=%v share=%f", moved, share)
	}
	empty := gocv.NewMat()
	defer empty.Close()
	if moved, share := md.Detect(&empty); moved || share != 0 {
		t.Errorf("empty frame: moved=%v share=%f", moved, share)
	}
	if md.primed {
		t.Error("empty frames must not prime the detector")
	}
}

func TestMotionDetector_ShrinksToWorkingWidth(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	tests := []struct {
		name               string
		rows, cols         int
		wantRows, wantCols int
	}{
		{name: "VGA", rows: 480, cols: 640, wantRows: 120, wantCols: WorkingWidth},
		{name: "HD", rows: 720, cols: 1280, wantRows: 90, wantCols: WorkingWidth},
		{name: "narrow frame kept", rows: 90, cols: 120, wantRows: 90, wantCols: 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := NewMotionDetector(1)
			defer md.Close()

			md.Detect(solidFrame(t, tt.rows, tt.cols, 0))
			if md.baseline.Rows() != tt.wantRows || md.baseline.Cols() != tt.wantCols {
				t.Errorf("baseline = %dx%d, want %dx%d", md.baseline.Cols(), md.baseline.Rows(), tt.wantCols, tt.wantRows)
			}
			if md.baseline.Channels() != 1 {
				t.Errorf("baseline channels = %d, want 1", md.baseline.Channels())
			}
		})
	}
}

func TestMotionDetector_ResetAndClose(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1)
	black := solidFrame(t, 480, 640, 0)
	white := solidFrame(t, 480, 640, 255)

	md.Detect(black)
	if !md.primed {
		t.Fatal("detector should be primed after the first frame")
	}

	md.Reset()
	if md.primed || !md.baseline.Empty() {
		t.Error("Reset should drop the baseline")
	}
	if moved, _ := md.Detect(white); moved {
		t.Error("first frame after Reset only primes the detector")
	}

	md.Close()
	md.Close()
	if moved, _ := md.Detect(black); moved {
		t.Error("first frame after Close only primes the detector")
	}
	md.Close()
}
