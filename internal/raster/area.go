package raster

import "math"

// SquareMetersPerSquareNauticalMile converts projected areas to square
// nautical miles (1 nmi = 1852 m, 1852² = 3,429,904).
const SquareMetersPerSquareNauticalMile = 3429904.0

// EstimateArea computes iceberg surface area from a segmentation mask.
// Pixel footprint comes from the mask's affine geotransform (assumed metric);
// any pixel value greater than zero counts as iceberg.
func (g *GDAL) EstimateArea(path string) (float64, error) {
	bd, err := readFirstBand(path)
	if err != nil {
		return 0, err
	}
	if bd.gtErr != nil {
		return 0, bd.gtErr
	}

	pixelAreaM2 := math.Abs(bd.gt[1]) * math.Abs(bd.gt[5])

	var foreground int
	for _, v := range bd.pix {
		if v > 0 {
			foreground++
		}
	}

	areaM2 := float64(foreground) * pixelAreaM2
	return areaM2 / SquareMetersPerSquareNauticalMile, nil
}
