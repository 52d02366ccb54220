package common

import (
	"image"
	"image/color"
	"testing"
)

func TestNewTextureStagingDataConvertsToRGBA(t *testing.T) {
	gray := image.NewGray(image.Rect(2, 3, 4, 4))
	gray.SetGray(3, 3, color.Gray{Y: 128})

	data := NewTextureStagingData("gray", gray)
	if err := data.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if data.Width != 2 || data.Height != 1 {
		t.Fatalf("size = %dx%d, want 2x1", data.Width, data.Height)
	}
	want := []byte{0, 0, 0, 255, 128, 128, 128, 255}
	if string(data.Pixels) != string(want) {
		t.Fatalf("pixels = %v, want %v", data.Pixels, want)
	}
}

func TestNewTextureStagingDataKeepsPackedRGBA(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(0, 0, 2, 2))
	data := NewTextureStagingData("rgba", rgba)
	if &data.Pixels[0] != &rgba.Pix[0] {
		t.Fatal("packed RGBA was copied")
	}
	data.Image().Set(1, 1, color.RGBA{R: 9, A: 255})
	if rgba.RGBAAt(1, 1).R != 9 {
		t.Fatal("Image does not share the staged pixels")
	}
}

func TestTextureStagingDataValidate(t *testing.T) {
	tests := []struct {
		name string
		data *TextureStagingData
	}{
		{"nil", nil},
		{"zero size", &TextureStagingData{Name: "z", Width: 0, Height: 4}},
		{"short buffer", &TextureStagingData{Name: "s", Width: 2, Height: 2, Pixels: make([]byte, 12)}},
	}
	for _, tt := range tests {
		if err := tt.data.Validate(); err == nil {
			t.Errorf("%s: Validate accepted invalid staging data", tt.name)
		}
	}
}

func TestSliceToBytes(t *testing.T) {
	if SliceToBytes([]float32{}) != nil {
		t.Fatal("empty slice did not map to nil")
	}
	b := SliceToBytes([]uint32{1, 2, 3})
	if len(b) != 12 {
		t.Fatalf("len = %d, want 12", len(b))
	}
}
