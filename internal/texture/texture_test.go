package texture

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
)

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 60), G: uint8(y * 60), B: 128, A: 255})
		}
	}
	return img
}

func TestDecodeBMP(t *testing.T) {
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, testImage()); err != nil {
		t.Fatalf("bmp encode: %v", err)
	}

	img, err := Decode("citywal1.bmp", buf.Bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 4 {
		t.Errorf("decoded bounds = %v", img.Bounds())
	}
	got := img.NRGBAAt(1, 2)
	want := color.NRGBA{R: 60, G: 120, B: 128, A: 255}
	if got != want {
		t.Errorf("pixel (1,2) = %v, want %v", got, want)
	}
}

func TestDecodeTGA(t *testing.T) {
	var buf bytes.Buffer
	if err := tga.Encode(&buf, testImage()); err != nil {
		t.Fatalf("tga encode: %v", err)
	}

	img, err := Decode("FIRE1.TGA", buf.Bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 4 {
		t.Errorf("decoded bounds = %v", img.Bounds())
	}
}

func TestDecodeUnsupported(t *testing.T) {
	if _, err := Decode("water.dds", []byte{0, 1, 2}); err == nil {
		t.Error("expected an error for unsupported format")
	}
}

func TestDecodeGarbage(t *testing.T) {
	if _, err := Decode("broken.bmp", []byte{1, 2, 3}); err == nil {
		t.Error("expected an error for truncated bitmap data")
	}
}

func TestEncodeWebPRoundTrip(t *testing.T) {
	src := testImage()

	var buf bytes.Buffer
	if err := EncodeWebP(&buf, src); err != nil {
		t.Fatalf("EncodeWebP: %v", err)
	}

	decoded, err := nativewebp.Decode(&buf)
	if err != nil {
		t.Fatalf("webp decode: %v", err)
	}
	if decoded.Bounds() != src.Bounds() {
		t.Errorf("round trip bounds = %v, want %v", decoded.Bounds(), src.Bounds())
	}
}

func TestWebPName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"citywal1.bmp", "citywal1.webp"},
		{"FIRE1.TGA", "FIRE1.webp"},
		{"noext", "noext.webp"},
	}
	for _, tt := range tests {
		if got := WebPName(tt.in); got != tt.want {
			t.Errorf("WebPName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
