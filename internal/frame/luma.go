package frame

// BT.601 luma weights.
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// Luma converts one RGB triple to 8-bit luma, rounded to nearest.
func Luma(r, g, b uint8) uint8 {
	y := lumaR*float64(r) + lumaG*float64(g) + lumaB*float64(b) + 0.5
	if y >= 255 {
		return 255
	}
	return uint8(y)
}

// Grayscale returns the row-major luma plane of f. Alpha is ignored.
func Grayscale(f Frame) []uint8 {
	n := f.PixelCount()
	gray := make([]uint8, n)
	for i, p := 0, 0; i < n; i, p = i+1, p+Channels {
		gray[i] = Luma(f.Pix[p], f.Pix[p+1], f.Pix[p+2])
	}
	return gray
}
