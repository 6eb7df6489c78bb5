// Package capture implements the vision interfaces on a real camera:
// gocv for the device and image ops, dlib for detection and encoding.
package capture

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/quality"
	"github.com/okian/rollcall/internal/domain/types"
	"github.com/okian/rollcall/internal/vision"
)

// CameraOption applies a configuration option to the Camera.
type CameraOption func(*Camera)

// WithMotionDetector replaces the default motion detector.
func WithMotionDetector(d *MotionDetector) CameraOption {
	return func(c *Camera) {
		if d != nil {
			c.motion = d
		}
	}
}

// Camera owns a capture device and implements vision.Source. Capture and
// Close are safe to call from different goroutines.
type Camera struct {
	mu     sync.Mutex
	cap    *gocv.VideoCapture
	motion *MotionDetector
	rec    *Recognizer
	img    gocv.Mat
	closed bool
}

// NewCamera opens the capture device and binds it to the recognizer.
func NewCamera(device int, rec *Recognizer, opts ...CameraOption) (*Camera, error) {
	cap, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("%w %d: %v", ErrOpenCamera, device, err)
	}

	c := &Camera{
		cap:    cap,
		motion: NewMotionDetector(),
		rec:    rec,
		img:    gocv.NewMat(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Capture reads the next frame, updates motion state and returns the frame
// together with the motion verdict. The caller owns the returned frame.
func (c *Camera) Capture() (vision.Frame, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, false, vision.ErrClosed
	}
	if ok := c.cap.Read(&c.img); !ok || c.img.Empty() {
		return nil, false, ErrReadFrame
	}

	motion := c.motion.Detect(c.img)
	return &matFrame{img: c.img.Clone(), rec: c.rec}, motion, nil
}

// Close releases the device and the detector state. Capture calls after
// Close return vision.ErrClosed.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.motion.Close()
	c.img.Close()
	return c.cap.Close()
}

// matFrame is a Frame backed by a cloned gocv matrix.
type matFrame struct {
	img gocv.Mat
	rec *Recognizer
}

func (f *matFrame) Observations() ([]model.Observation, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, f.img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeFrame, err)
	}
	defer buf.Close()
	return f.rec.Detect(buf.GetBytes())
}

func (f *matFrame) Measure(loc types.Location) quality.Measurements {
	m := quality.Measurements{Width: loc.Width(), Height: loc.Height()}
	if loc.Left < 0 || loc.Top < 0 || loc.Right > f.img.Cols() || loc.Bottom > f.img.Rows() ||
		m.Width <= 0 || m.Height <= 0 {
		m.OutOfFrame = true
		return m
	}

	crop := f.img.Region(image.Rect(loc.Left, loc.Top, loc.Right, loc.Bottom))
	defer crop.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(crop, &gray, gocv.ColorBGRToGray)
	m.MeanBrightness = gray.Mean().Val1

	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(gray, &lap, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)

	mean := gocv.NewMat()
	defer mean.Close()
	stddev := gocv.NewMat()
	defer stddev.Close()
	gocv.MeanStdDev(lap, &mean, &stddev)
	sd := stddev.GetDoubleAt(0, 0)
	m.LaplacianVariance = sd * sd
	return m
}

func (f *matFrame) Close() {
	f.img.Close()
}

var _ vision.Source = (*Camera)(nil)
