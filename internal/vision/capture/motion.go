package capture

import (
	"image"

	"gocv.io/x/gocv"
)

// Motion detection defaults.
const (
	DefaultMinContourArea = 500.0
	DefaultDiffThreshold  = 25.0

	blurKernelSize = 21
	dilatePasses   = 2
)

// MotionOption applies a configuration option to the MotionDetector.
type MotionOption func(*MotionDetector)

// WithMinContourArea sets the minimum contour area that counts as motion.
func WithMinContourArea(area float64) MotionOption {
	return func(d *MotionDetector) {
		if area > 0 {
			d.minArea = area
		}
	}
}

// WithDiffThreshold sets the binary threshold applied to the frame
// difference.
func WithDiffThreshold(threshold float64) MotionOption {
	return func(d *MotionDetector) {
		if threshold > 0 {
			d.threshold = float32(threshold)
		}
	}
}

// MotionDetector compares consecutive frames: grayscale, Gaussian blur,
// absolute difference against the previous frame, binary threshold, dilation
// and an external-contour area filter. It is not safe for concurrent use;
// the capture loop owns it.
type MotionDetector struct {
	minArea   float64
	threshold float32
	prev      gocv.Mat
	primed    bool
}

// NewMotionDetector creates a MotionDetector with configuration options.
func NewMotionDetector(opts ...MotionOption) *MotionDetector {
	d := &MotionDetector{
		minArea:   DefaultMinContourArea,
		threshold: DefaultDiffThreshold,
		prev:      gocv.NewMat(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect reports whether frame contains qualifying motion relative to the
// previous frame. The first frame only primes the detector.
func (d *MotionDetector) Detect(frame gocv.Mat) bool {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	gocv.GaussianBlur(gray, &gray, image.Pt(blurKernelSize, blurKernelSize), 0, 0, gocv.BorderDefault)

	if !d.primed {
		d.prev.Close()
		d.prev = gray.Clone()
		d.primed = true
		return false
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(gray, d.prev, &diff)
	gocv.Threshold(diff, &diff, d.threshold, 255, gocv.ThresholdBinary)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
	defer kernel.Close()
	for i := 0; i < dilatePasses; i++ {
		gocv.Dilate(diff, &diff, kernel)
	}

	d.prev.Close()
	d.prev = gray.Clone()

	contours := gocv.FindContours(diff, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()
	for i := 0; i < contours.Size(); i++ {
		if gocv.ContourArea(contours.At(i)) >= d.minArea {
			return true
		}
	}
	return false
}

// Close releases the retained previous frame.
func (d *MotionDetector) Close() {
	d.prev.Close()
}
