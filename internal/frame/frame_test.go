package frame

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		width   int
		height  int
		pixLen  int
		wantErr bool
	}{
		{name: "valid 2x2", width: 2, height: 2, pixLen: 16},
		{name: "valid 1x1", width: 1, height: 1, pixLen: 4},
		{name: "short buffer", width: 2, height: 2, pixLen: 15, wantErr: true},
		{name: "long buffer", width: 2, height: 2, pixLen: 20, wantErr: true},
		{name: "zero width", width: 0, height: 2, pixLen: 0, wantErr: true},
		{name: "negative height", width: 2, height: -1, pixLen: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(tt.width, tt.height, make([]byte, tt.pixLen), time.Time{})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, ErrInvalidFrame) {
					t.Errorf("errors.Is(err, ErrInvalidFrame) = false for %v", err)
				}
				var ife *InvalidFrameError
				if !errors.As(err, &ife) {
					t.Fatalf("expected *InvalidFrameError, got %T", err)
				}
				if ife.Len != tt.pixLen {
					t.Errorf("Len = %d, want %d", ife.Len, tt.pixLen)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if f.PixelCount() != tt.width*tt.height {
				t.Errorf("PixelCount() = %d, want %d", f.PixelCount(), tt.width*tt.height)
			}
		})
	}
}

func TestLuma(t *testing.T) {
	tests := []struct {
		r, g, b uint8
		want    uint8
	}{
		{0, 0, 0, 0},
		{255, 255, 255, 255},
		{255, 0, 0, 76},  // 76.245
		{0, 255, 0, 150}, // 149.685
		{0, 0, 255, 29},  // 29.07
		{128, 128, 128, 128},
		{200, 200, 200, 200},
	}

	for _, tt := range tests {
		if got := Luma(tt.r, tt.g, tt.b); got != tt.want {
			t.Errorf("Luma(%d,%d,%d) = %d, want %d", tt.r, tt.g, tt.b, got, tt.want)
		}
	}
}

func TestGrayscale_IgnoresAlpha(t *testing.T) {
	pix := []byte{
		10, 10, 10, 0,
		10, 10, 10, 255,
	}
	f, err := New(2, 1, pix, time.Time{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	gray := Grayscale(f)
	if len(gray) != 2 {
		t.Fatalf("len(gray) = %d, want 2", len(gray))
	}
	if gray[0] != gray[1] {
		t.Errorf("alpha changed luma: %d vs %d", gray[0], gray[1])
	}
}

func TestFromImage(t *testing.T) {
	img := image.NewGray(image.Rect(5, 5, 8, 7))
	img.SetGray(5, 5, color.Gray{Y: 42})

	f := FromImage(img, time.Unix(10, 0))
	if f.Width != 3 || f.Height != 2 {
		t.Fatalf("dimensions = %dx%d, want 3x2", f.Width, f.Height)
	}
	if err := Validate(f); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	r, g, b, a := f.At(0, 0)
	if r != 42 || g != 42 || b != 42 || a != 255 {
		t.Errorf("At(0,0) = (%d,%d,%d,%d), want (42,42,42,255)", r, g, b, a)
	}
}

func TestDecode_DownsizesLargeImages(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 400, 200))
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}

	f, err := Decode(&buf, 100, time.Now())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if f.Width != 100 || f.Height != 50 {
		t.Errorf("dimensions = %dx%d, want 100x50", f.Width, f.Height)
	}
}

func TestDecode_RejectsGarbage(t *testing.T) {
	if _, err := Decode(bytes.NewReader([]byte("not an image")), 0, time.Now()); err == nil {
		t.Error("expected error decoding garbage")
	}
}
