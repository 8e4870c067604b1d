// Package raster wraps GDAL access to geo-referenced imagery: reading mask
// pixels for area estimation and converting GeoTIFF tiles to display PNGs.
package raster

import (
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/pkg/errors"
)

// ErrNotGeoraster marks input that is not a raster carrying an affine
// geotransform (e.g. a plain PNG). Callers map it to a validation failure.
var ErrNotGeoraster = errors.New("not a geo-referenced raster")

// Processor is the raster capability surface consumed by the service layer.
type Processor interface {
	// EstimateArea returns the foreground area of a mask raster in square
	// nautical miles.
	EstimateArea(path string) (float64, error)
	// ConvertToPNG writes a display PNG for the given raster, optionally
	// rescaling pixel values to the full 8-bit range.
	ConvertToPNG(src, dst string, normalize bool) error
}

// GDAL implements Processor on top of the godal bindings.
type GDAL struct{}

var registerOnce sync.Once

// NewGDAL returns a GDAL-backed processor, registering GDAL drivers on first use.
func NewGDAL() *GDAL {
	registerOnce.Do(godal.RegisterAll)
	return &GDAL{}
}

// bandData is the first band of a raster plus its geospatial context.
// gtErr is non-nil when the source carries no affine transform; display
// conversion tolerates that, area estimation does not.
type bandData struct {
	pix   []float64
	sizeX int
	sizeY int
	gt    [6]float64
	gtErr error
}

func readFirstBand(path string) (*bandData, error) {
	ds, err := godal.Open(path)
	if err != nil {
		return nil, errors.Wrapf(ErrNotGeoraster, "open %s: %v", path, err)
	}
	defer ds.Close()

	structure := ds.Structure()
	if structure.NBands < 1 {
		return nil, errors.Wrapf(ErrNotGeoraster, "%s has no raster bands", path)
	}

	bd := &bandData{
		pix:   make([]float64, structure.SizeX*structure.SizeY),
		sizeX: structure.SizeX,
		sizeY: structure.SizeY,
	}

	gt, err := ds.GeoTransform()
	if err != nil {
		bd.gtErr = errors.Wrapf(ErrNotGeoraster, "%s carries no geotransform", path)
	} else {
		bd.gt = gt
	}

	if err := ds.Bands()[0].Read(0, 0, bd.pix, bd.sizeX, bd.sizeY); err != nil {
		return nil, errors.Wrapf(err, "read band 1 of %s", path)
	}
	return bd, nil
}
