package raster

import (
	"image"
	"image/png"
	"os"

	"github.com/pkg/errors"
)

// ConvertToPNG reads the first band of a raster and writes it as an 8-bit
// grayscale PNG. With normalize set, pixel values are rescaled linearly so
// the band minimum maps to 0 and the maximum to 255; a constant-valued band
// yields a uniform zero image instead of dividing by zero.
func (g *GDAL) ConvertToPNG(src, dst string, normalize bool) error {
	bd, err := readFirstBand(src)
	if err != nil {
		return err
	}

	img := image.NewGray(image.Rect(0, 0, bd.sizeX, bd.sizeY))
	if normalize {
		writeNormalized(img.Pix, bd.pix)
	} else {
		for i, v := range bd.pix {
			img.Pix[i] = clampByte(v)
		}
	}

	out, err := os.Create(dst)
	if err != nil {
		return errors.Wrapf(err, "create %s", dst)
	}
	defer out.Close()

	if err := png.Encode(out, img); err != nil {
		return errors.Wrapf(err, "encode %s", dst)
	}
	return nil
}

func writeNormalized(pix []uint8, data []float64) {
	if len(data) == 0 {
		return
	}
	lo, hi := data[0], data[0]
	for _, v := range data {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		// Constant-valued raster: nothing to stretch.
		for i := range data {
			pix[i] = 0
		}
		return
	}
	scale := 255.0 / (hi - lo)
	for i, v := range data {
		pix[i] = clampByte((v - lo) * scale)
	}
}

func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
