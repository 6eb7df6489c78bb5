package capture

import "errors"

var (
	// ErrOpenCamera indicates the capture device could not be opened.
	ErrOpenCamera = errors.New("cannot open capture device")
	// ErrReadFrame indicates the device returned no usable frame.
	ErrReadFrame = errors.New("cannot read frame")
	// ErrEncodeFrame indicates the frame could not be encoded for the
	// face model.
	ErrEncodeFrame = errors.New("cannot encode frame")
)
