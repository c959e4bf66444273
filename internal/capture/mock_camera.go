package capture

import (
	"fmt"
	"os"
	"sync"

	"github.com/ayusman/accuread/internal/frame"
)

// MockCamera plays back pre-recorded frames.
type MockCamera struct {
	mu      sync.Mutex
	frames  []frame.Frame
	index   int
	loop    bool
	running bool
	fps     int
}

// NewMockCamera plays frames once, or forever when loop is set.
func NewMockCamera(frames []frame.Frame, loop bool) *MockCamera {
	return &MockCamera{
		frames: frames,
		loop:   loop,
		fps:    DefaultFPS,
	}
}

// LoadFrames decodes image files into frames, downscaled to maxDim.
func LoadFrames(paths []string, maxDim int) ([]frame.Frame, error) {
	frames := make([]frame.Frame, 0, len(paths))
	for _, p := range paths {
		f, err := loadFrame(p, maxDim)
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	return frames, nil
}

func loadFrame(path string, maxDim int) (frame.Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return frame.Frame{}, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return frame.Frame{}, err
	}
	f, err := frame.Decode(file, maxDim, info.ModTime())
	if err != nil {
		return frame.Frame{}, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	c.index = 0
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

// ReadFrame returns the next frame. Pixel data is copied so callers may
// modify it.
func (c *MockCamera) ReadFrame() (frame.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return frame.Frame{}, ErrCameraNotOpen
	}
	if len(c.frames) == 0 {
		return frame.Frame{}, ErrNoFrame
	}
	if c.index >= len(c.frames) {
		if !c.loop {
			return frame.Frame{}, fmt.Errorf("%w: playback finished", ErrNoFrame)
		}
		c.index = 0
	}

	f := c.frames[c.index]
	f.Pix = append([]byte(nil), f.Pix...)
	c.index++
	return f, nil
}

func (c *MockCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	c.mu.Lock()
	c.fps = fps
	c.mu.Unlock()
}

func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// SetFrames replaces the frame sequence.
func (c *MockCamera) SetFrames(frames []frame.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = frames
	c.index = 0
}

// Reset restarts playback from the beginning.
func (c *MockCamera) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = 0
}
