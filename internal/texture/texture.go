// Package texture decodes the bitmap formats found inside S3D
// archives and converts them for export.
package texture

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
)

// Decode parses raw texture bytes by the extension of their archive
// name. Zone and character archives carry BMP almost exclusively;
// TGA shows up in a few later expansions.
func Decode(name string, data []byte) (*image.NRGBA, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".bmp":
		img, err := bmp.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("texture: decode %s: %w", name, err)
		}
		return toNRGBA(img), nil
	case ".tga":
		img, err := tga.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("texture: decode %s: %w", name, err)
		}
		return toNRGBA(img), nil
	default:
		return nil, fmt.Errorf("texture: unsupported format: %s", name)
	}
}

// EncodeWebP writes img as lossless WebP.
func EncodeWebP(w io.Writer, img image.Image) error {
	if err := nativewebp.Encode(w, img, nil); err != nil {
		return fmt.Errorf("texture: webp encode: %w", err)
	}
	return nil
}

// WebPName swaps a texture filename's extension for .webp.
func WebPName(name string) string {
	ext := filepath.Ext(name)
	return name[:len(name)-len(ext)] + ".webp"
}

// toNRGBA converts any image to NRGBA format.
func toNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA(b)
	switch src.(type) {
	case *image.YCbCr, *image.Gray:
		// No alpha channel to preserve.
		draw.Draw(dst, b, src, b.Min, draw.Src)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				dst.Pix[dst.PixOffset(x, y)+3] = 255
			}
		}
	default:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
				i := dst.PixOffset(x, y)
				dst.Pix[i] = c.R
				dst.Pix[i+1] = c.G
				dst.Pix[i+2] = c.B
				dst.Pix[i+3] = c.A
			}
		}
	}
	return dst
}
