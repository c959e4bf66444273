// Package capture reads preview frames from a camera using GoCV (OpenCV) and
// suppresses near-duplicate frames before they are scored.
package capture

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/accuread/internal/frame"
)

// Default camera settings. Preview frames are throttled to a few per second
// and kept small so per-frame scoring stays cheap.
const (
	DefaultFPS    = 5
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when reading from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrNoFrame is returned when the device produced no usable frame.
	ErrNoFrame = errors.New("no frame available")
)

// Camera is a source of preview frames.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (frame.Frame, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// cameraImpl manages video capture from a camera device using GoCV.
type cameraImpl struct {
	deviceID int

	mu      sync.Mutex
	capture *gocv.VideoCapture
	bgr     gocv.Mat
	rgba    gocv.Mat
	running bool
	fps     int
}

// NewCamera creates a Camera for the given device ID at DefaultFPS.
func NewCamera(deviceID int) Camera {
	return &cameraImpl{
		deviceID: deviceID,
		fps:      DefaultFPS,
	}
}

// Open opens the device at 640x480.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.deviceID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.deviceID, err)
	}
	capture.Set(gocv.VideoCaptureFrameWidth, DefaultWidth)
	capture.Set(gocv.VideoCaptureFrameHeight, DefaultHeight)
	capture.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.capture = capture
	c.bgr = gocv.NewMat()
	c.rgba = gocv.NewMat()
	c.running = true
	return nil
}

// Close releases the device and scratch buffers.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.bgr.Close()
	c.rgba.Close()
	c.capture = nil
	c.running = false
	return err
}

// ReadFrame grabs one BGR frame and converts it to an RGBA frame.Frame.
func (c *cameraImpl) ReadFrame() (frame.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return frame.Frame{}, ErrCameraNotOpen
	}

	if ok := c.capture.Read(&c.bgr); !ok || c.bgr.Empty() {
		return frame.Frame{}, ErrNoFrame
	}
	ts := time.Now()

	gocv.CvtColor(c.bgr, &c.rgba, gocv.ColorBGRToRGBA)
	if c.rgba.Empty() {
		return frame.Frame{}, fmt.Errorf("%w: colour conversion failed", ErrNoFrame)
	}
	return frame.New(c.rgba.Cols(), c.rgba.Rows(), c.rgba.ToBytes(), ts)
}

// SetFPS sets the capture rate. Values <= 0 are ignored.
func (c *cameraImpl) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps
	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current capture rate.
func (c *cameraImpl) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

// IsOpen reports whether the device is open.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
