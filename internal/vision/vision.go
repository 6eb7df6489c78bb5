// Package vision defines the contracts between the capture hardware and its
// consumers. The capture subpackage implements them on gocv and dlib; the
// pipeline and enrollment sessions depend only on the interfaces here.
package vision

import (
	"errors"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/quality"
	"github.com/okian/rollcall/internal/domain/types"
)

// ErrClosed is returned by Capture once the source has been closed. Every
// Source implementation reports closure with this sentinel so consumers can
// tell an orderly stop from a device fault.
var ErrClosed = errors.New("capture source closed")

// Frame is one captured image. The owner must Close it when done.
type Frame interface {
	// Observations runs face detection and encoding on the frame.
	Observations() ([]model.Observation, error)
	// Measure extracts the quality statistics of a face crop.
	Measure(loc types.Location) quality.Measurements
	// Close releases the frame's image buffers.
	Close()
}

// Source produces frames with a per-frame motion verdict.
type Source interface {
	// Capture reads the next frame and reports whether it differs from the
	// previous one by at least one qualifying motion contour.
	Capture() (Frame, bool, error)
	Close() error
}
