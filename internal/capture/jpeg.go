package capture

import (
	"fmt"

	"gocv.io/x/gocv"
)

// DefaultJPEGQuality is used for the preview stream and the detector feed.
const DefaultJPEGQuality = 80

// EncodeJPEG encodes a frame as JPEG.
func EncodeJPEG(frame *gocv.Mat, quality int) ([]byte, error) {
	if frame == nil || frame.Empty() {
		return nil, ErrEmptyFrame
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *frame, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	// buf is backed by C memory; copy before closing.
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
