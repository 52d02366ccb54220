// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"image"
	"image/draw"

	"github.com/pkg/errors"
)

// TextureStagingData holds decoded RGBA pixel data for a texture pending GPU upload.
// It is the hand-off format between the external texture loader and the renderer.
type TextureStagingData struct {
	// Name identifies the texture in logs and GPU labels.
	Name string
	// Pixels is the byte slice representing the actual pixel data for the texture. It should be in RGBA format, with 4 bytes per pixel.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

// NewTextureStagingData converts any decoded image into tightly packed RGBA staging data.
//
// Parameters:
//   - name: identifier for the texture
//   - img: the decoded source image
//
// Returns:
//   - *TextureStagingData: the staged pixels
func NewTextureStagingData(name string, img image.Image) *TextureStagingData {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || bounds.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	return &TextureStagingData{
		Name:   name,
		Pixels: rgba.Pix,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	}
}

// Validate checks that the pixel buffer matches the declared dimensions.
//
// Returns:
//   - error: error if the buffer is empty or its length does not match Width*Height*4
func (t *TextureStagingData) Validate() error {
	if t == nil {
		return errors.New("texture is nil")
	}
	if t.Width == 0 || t.Height == 0 {
		return errors.Errorf("texture %q has zero size %dx%d", t.Name, t.Width, t.Height)
	}
	if want := int(t.Width) * int(t.Height) * 4; len(t.Pixels) != want {
		return errors.Errorf("texture %q has %d bytes, want %d", t.Name, len(t.Pixels), want)
	}
	return nil
}

// Image wraps the staged pixels in an *image.RGBA without copying.
//
// Returns:
//   - *image.RGBA: an image view over Pixels
func (t *TextureStagingData) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    t.Pixels,
		Stride: int(t.Width) * 4,
		Rect:   image.Rect(0, 0, int(t.Width), int(t.Height)),
	}
}
