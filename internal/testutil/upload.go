package testutil

import (
	"bytes"
	"image/png"
	"mime/multipart"

	"github.com/ayusman/accuread/internal/frame"
)

// PNG encodes f losslessly so a decoded upload reproduces it exactly.
func PNG(f frame.Frame) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, f.Image()); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// MultipartImage builds a multipart form body holding data under field.
func MultipartImage(field string, data []byte) (*bytes.Buffer, string) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "frame.png")
	if err != nil {
		panic(err)
	}
	part.Write(data)
	mw.Close()
	return &body, mw.FormDataContentType()
}
