package capture

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ayusman/accuread/internal/frame"
	"github.com/ayusman/accuread/internal/testutil"
)

func TestMockCamera_Playback(t *testing.T) {
	cam := NewMockCamera([]frame.Frame{testutil.Gray(8, 6, 10), testutil.Gray(8, 6, 20)}, false)

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Fatalf("ReadFrame() before Open error = %v, want ErrCameraNotOpen", err)
	}
	if err := cam.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer cam.Close()

	for _, want := range []uint8{10, 20} {
		f, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() error = %v", err)
		}
		if f.Pix[0] != want {
			t.Errorf("frame luma = %d, want %d", f.Pix[0], want)
		}
	}

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrNoFrame) {
		t.Errorf("ReadFrame() after playback error = %v, want ErrNoFrame", err)
	}
}

func TestMockCamera_Loop(t *testing.T) {
	cam := NewMockCamera([]frame.Frame{testutil.Gray(4, 4, 1)}, true)
	cam.Open()
	defer cam.Close()

	for i := 0; i < 5; i++ {
		if _, err := cam.ReadFrame(); err != nil {
			t.Fatalf("ReadFrame() iteration %d error = %v", i, err)
		}
	}
}

func TestMockCamera_ReturnsCopies(t *testing.T) {
	src := testutil.Gray(4, 4, 50)
	cam := NewMockCamera([]frame.Frame{src}, true)
	cam.Open()

	f, _ := cam.ReadFrame()
	f.Pix[0] = 255
	if src.Pix[0] != 50 {
		t.Error("modifying a returned frame changed the recording")
	}
}

func TestMockCamera_FPS(t *testing.T) {
	cam := NewMockCamera(nil, false)
	if cam.FPS() != DefaultFPS {
		t.Errorf("FPS() = %d, want %d", cam.FPS(), DefaultFPS)
	}
	cam.SetFPS(3)
	cam.SetFPS(0)
	if cam.FPS() != 3 {
		t.Errorf("FPS() = %d, want 3", cam.FPS())
	}
}

func TestLoadFrames(t *testing.T) {
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	path := filepath.Join(dir, "meter.png")
	out, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(out, img); err != nil {
		t.Fatal(err)
	}
	out.Close()

	frames, err := LoadFrames([]string{path}, 100)
	if err != nil {
		t.Fatalf("LoadFrames() error = %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("LoadFrames() returned %d frames, want 1", len(frames))
	}
	if frames[0].Width != 100 || frames[0].Height != 50 {
		t.Errorf("frame size = %dx%d, want 100x50", frames[0].Width, frames[0].Height)
	}

	if _, err := LoadFrames([]string{filepath.Join(dir, "missing.png")}, 100); err == nil {
		t.Error("expected error for missing file")
	}
}
