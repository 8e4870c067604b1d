package services

import (
	"context"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"iceberg-service/internal/extraction"
	"iceberg-service/internal/metrics"
	"iceberg-service/internal/models"
	"iceberg-service/internal/raster"
	"iceberg-service/internal/repository"
	"iceberg-service/internal/storage"
)

// DemoIcebergName identifies the bundled demo record.
const DemoIcebergName = "A23A Demo Iceberg"

const (
	demoImageFile = "A23A_001.tif"
	demoMaskFile  = "A23A_001_mask.tif"
)

// ErrDemoAssetMissing is returned by SeedDemo when the demo mask GeoTIFF is
// not present on disk.
var ErrDemoAssetMissing = errors.New("demo mask not found")

// MaskUpload carries the reconciliation inputs of a mask upload.
type MaskUpload struct {
	// IDParam and NameParam are the optional form fields; Filename is the
	// uploaded file's name, used for name inference when neither resolves.
	IDParam   string
	NameParam string
	Filename  string
}

// ArchiveResult reports the outcome for one tile of a batch archive upload.
type ArchiveResult struct {
	File   string     `json:"file"`
	Kind   string     `json:"kind"`
	Error  string     `json:"error,omitempty"`
	Record *uuid.UUID `json:"id,omitempty"`
}

// IcebergService owns the upload, reconciliation and area pipeline.
type IcebergService struct {
	Repo     *repository.IcebergRepository
	Raster   raster.Processor
	Notifier *Notifier
	Archiver *storage.Archiver
	Metrics  *metrics.Collector

	UploadDir string
	MaskDir   string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewIcebergService creates an IcebergService with the given collaborators.
// Notifier, Archiver and Metrics may be nil.
func NewIcebergService(repo *repository.IcebergRepository, processor raster.Processor,
	notifier *Notifier, archiver *storage.Archiver, collector *metrics.Collector,
	uploadDir, maskDir string) *IcebergService {
	return &IcebergService{
		Repo:      repo,
		Raster:    processor,
		Notifier:  notifier,
		Archiver:  archiver,
		Metrics:   collector,
		UploadDir: uploadDir,
		MaskDir:   maskDir,
		locks:     make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing reconciliation for one identity key.
func (s *IcebergService) lockFor(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// InferName derives an iceberg name from a mask or tile filename by stripping
// the extension and the conventional "_mask" suffix.
func InferName(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	return strings.TrimSuffix(base, "_mask")
}

func pngPathFor(rasterPath string) string {
	return strings.TrimSuffix(rasterPath, filepath.Ext(rasterPath)) + ".png"
}

func isTiff(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".tif" || ext == ".tiff"
}

// CreateFromImage saves an uploaded imagery tile, converts it for display and
// creates a pending record. No mask exists yet; the segmentation pipeline
// delivers it later through UpsertFromMask.
func (s *IcebergService) CreateFromImage(fileHeader *multipart.FileHeader) (*models.Iceberg, error) {
	tiffPath := filepath.Join(s.UploadDir, filepath.Base(fileHeader.Filename))
	if err := saveMultipart(fileHeader, tiffPath); err != nil {
		return nil, errors.Wrap(err, "could not save uploaded file")
	}
	return s.createFromImageFile(tiffPath, fileHeader.Filename)
}

func (s *IcebergService) createFromImageFile(tiffPath, originalName string) (*models.Iceberg, error) {
	pngPath := pngPathFor(tiffPath)
	if err := s.Raster.ConvertToPNG(tiffPath, pngPath, true); err != nil {
		s.Metrics.RecordConversionFailure()
		return nil, errors.Wrap(err, "failed to convert image")
	}

	iceberg := &models.Iceberg{
		ID:        uuid.New(),
		Name:      originalName,
		Latitude:  models.PendingLatitude,
		Longitude: models.PendingLongitude,
		ImagePath: pngPath,
		MaskPath:  "",
		Area:      nil,
		Status:    models.StatusPending,
	}
	if err := s.Repo.Create(iceberg); err != nil {
		return nil, errors.Wrap(err, "failed to save iceberg record")
	}

	s.Metrics.RecordUpload("image")
	s.archiveOriginal(tiffPath, iceberg.ID)
	return iceberg, nil
}

// UpsertFromMask saves an uploaded segmentation mask, converts it for
// display, computes the iceberg area and reconciles the result into the
// catalog. The returned record is always complete.
func (s *IcebergService) UpsertFromMask(fileHeader *multipart.FileHeader, upload MaskUpload) (*models.Iceberg, error) {
	maskTiffPath := filepath.Join(s.MaskDir, filepath.Base(fileHeader.Filename))
	if !isTiff(maskTiffPath) {
		return nil, errors.Wrap(raster.ErrNotGeoraster, "mask must be a GeoTIFF (.tif)")
	}
	if err := saveMultipart(fileHeader, maskTiffPath); err != nil {
		return nil, errors.Wrap(err, "could not save uploaded mask")
	}
	return s.upsertFromMaskFile(maskTiffPath, upload)
}

func (s *IcebergService) upsertFromMaskFile(maskTiffPath string, upload MaskUpload) (*models.Iceberg, error) {
	maskPNGPath := pngPathFor(maskTiffPath)
	if err := s.Raster.ConvertToPNG(maskTiffPath, maskPNGPath, true); err != nil {
		s.Metrics.RecordConversionFailure()
		return nil, errors.Wrap(err, "failed to convert mask")
	}

	start := time.Now()
	area, err := s.Raster.EstimateArea(maskTiffPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to calculate area")
	}
	s.Metrics.RecordAreaComputation(time.Since(start))

	iceberg, err := s.reconcile(upload, maskPNGPath, area)
	if err != nil {
		return nil, err
	}

	s.Metrics.RecordUpload("mask")
	s.archiveOriginal(maskTiffPath, iceberg.ID)
	return iceberg, nil
}

// reconcile applies the lookup-or-create rule: match by id, then by exact
// name, then by name inferred from the filename; create a new complete record
// when nothing matches. The whole sequence holds a per-identity lock across a
// database transaction so concurrent uploads for one iceberg cannot create
// duplicate records.
func (s *IcebergService) reconcile(upload MaskUpload, maskPNGPath string, area float64) (*models.Iceberg, error) {
	inferred := InferName(filepath.Base(upload.Filename))

	key := upload.IDParam
	if key == "" {
		key = upload.NameParam
	}
	if key == "" {
		key = inferred
	}
	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	var iceberg *models.Iceberg
	err := s.Repo.Transaction(func(tx *repository.IcebergRepository) error {
		found, err := s.lookup(tx, upload, inferred)
		if err != nil {
			return err
		}

		if found != nil {
			found.MaskPath = maskPNGPath
			found.Area = &area
			found.Status = models.StatusComplete
			iceberg = found
			return tx.Save(found)
		}

		imagePath := ""
		if candidate := filepath.Join(s.UploadDir, inferred+".png"); fileExists(candidate) {
			imagePath = candidate
		}
		iceberg = &models.Iceberg{
			ID:        uuid.New(),
			Name:      inferred,
			Latitude:  models.PendingLatitude,
			Longitude: models.PendingLongitude,
			ImagePath: imagePath,
			MaskPath:  maskPNGPath,
			Area:      &area,
			Status:    models.StatusComplete,
		}
		return tx.Create(iceberg)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to save iceberg record")
	}
	return iceberg, nil
}

// lookup resolves the reconciliation target, first match wins.
func (s *IcebergService) lookup(tx *repository.IcebergRepository, upload MaskUpload, inferred string) (*models.Iceberg, error) {
	if upload.IDParam != "" {
		if id, err := uuid.Parse(upload.IDParam); err == nil {
			rec, err := tx.GetByID(id)
			if err == nil {
				return rec, nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		}
	}
	for _, name := range []string{upload.NameParam, inferred} {
		if name == "" {
			continue
		}
		rec, err := tx.GetByName(name)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

// RefreshAllAreas recomputes the area of every record whose mask is still a
// geotransform-bearing raster. Display-only masks (PNG) are skipped silently:
// the conversion discards the transform needed for area computation.
func (s *IcebergService) RefreshAllAreas() error {
	icebergs, err := s.Repo.List()
	if err != nil {
		return errors.Wrap(err, "failed to list icebergs")
	}
	for i := range icebergs {
		iceberg := &icebergs[i]
		if !isTiff(iceberg.MaskPath) {
			log.Printf("Skipping non-TIFF mask: %s", iceberg.MaskPath)
			continue
		}
		area, err := s.Raster.EstimateArea(iceberg.MaskPath)
		if err != nil {
			if errors.Is(err, raster.ErrNotGeoraster) {
				log.Printf("Skipping mask without geotransform: %s", iceberg.MaskPath)
				continue
			}
			return errors.Wrapf(err, "failed to refresh area for %s", iceberg.Name)
		}
		iceberg.Area = &area
		if err := s.Repo.Save(iceberg); err != nil {
			return errors.Wrap(err, "failed to save refreshed area")
		}
	}
	return nil
}

// SeedDemo recomputes the demo mask's area and upserts the demo record.
func (s *IcebergService) SeedDemo() (float64, error) {
	demoMask := filepath.Join(s.MaskDir, demoMaskFile)
	if !fileExists(demoMask) {
		return 0, ErrDemoAssetMissing
	}

	area, err := s.Raster.EstimateArea(demoMask)
	if err != nil {
		return 0, errors.Wrap(err, "failed to calculate area")
	}

	iceberg, err := s.Repo.GetByName(DemoIcebergName)
	switch {
	case err == nil:
		iceberg.Area = &area
		iceberg.Status = models.StatusComplete
		if err := s.Repo.Save(iceberg); err != nil {
			return 0, errors.Wrap(err, "failed to save demo iceberg")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		demo := s.demoRecord()
		demo.Area = &area
		if err := s.Repo.Create(demo); err != nil {
			return 0, errors.Wrap(err, "failed to create demo iceberg")
		}
	default:
		return 0, errors.Wrap(err, "failed to look up demo iceberg")
	}
	return area, nil
}

// List returns all catalog records.
func (s *IcebergService) List() ([]models.Iceberg, error) {
	return s.Repo.List()
}

// ProcessArchive extracts a tile archive and routes every GeoTIFF through the
// image or mask pipeline, chosen by the "_mask" filename convention. Per-tile
// failures do not abort the batch.
func (s *IcebergService) ProcessArchive(fileHeader *multipart.FileHeader) ([]ArchiveResult, error) {
	tmp, err := os.CreateTemp("", "archive-*"+filepath.Ext(fileHeader.Filename))
	if err != nil {
		return nil, errors.Wrap(err, "could not create temporary file")
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := saveMultipart(fileHeader, tmpPath); err != nil {
		return nil, errors.Wrap(err, "could not save uploaded archive")
	}

	tiles, destDir, err := extraction.ExtractTileArchive(context.Background(), tmpPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to extract archive")
	}
	defer os.RemoveAll(destDir)

	results := make([]ArchiveResult, 0, len(tiles))
	for _, tile := range tiles {
		filename := filepath.Base(tile)
		isMask := strings.HasSuffix(strings.TrimSuffix(filename, filepath.Ext(filename)), "_mask")

		var (
			rec     *models.Iceberg
			kind    string
			tileErr error
		)
		if isMask {
			kind = "mask"
			destPath := filepath.Join(s.MaskDir, filename)
			if tileErr = copyFile(tile, destPath); tileErr == nil {
				rec, tileErr = s.upsertFromMaskFile(destPath, MaskUpload{Filename: filename})
			}
		} else {
			kind = "image"
			destPath := filepath.Join(s.UploadDir, filename)
			if tileErr = copyFile(tile, destPath); tileErr == nil {
				rec, tileErr = s.createFromImageFile(destPath, filename)
			}
		}

		result := ArchiveResult{File: filename, Kind: kind}
		if tileErr != nil {
			result.Error = tileErr.Error()
		} else if rec != nil {
			id := rec.ID
			result.Record = &id
		}
		results = append(results, result)
	}

	s.Metrics.RecordUpload("archive")
	return results, nil
}

// EnsureSeedData bootstraps an empty catalog with the demo record and, when
// the demo GeoTIFFs are on disk, pre-converts them for display.
func (s *IcebergService) EnsureSeedData() error {
	demoImage := filepath.Join(s.UploadDir, demoImageFile)
	demoMask := filepath.Join(s.MaskDir, demoMaskFile)
	if fileExists(demoImage) && fileExists(demoMask) {
		if err := s.Raster.ConvertToPNG(demoImage, pngPathFor(demoImage), true); err != nil {
			log.Printf("Demo image conversion failed: %v", err)
		}
		if err := s.Raster.ConvertToPNG(demoMask, pngPathFor(demoMask), true); err != nil {
			log.Printf("Demo mask conversion failed: %v", err)
		}
	}

	count, err := s.Repo.Count()
	if err != nil {
		return errors.Wrap(err, "failed to count icebergs")
	}
	if count > 0 {
		return nil
	}

	demo := s.demoRecord()
	placeholder := 123.4
	demo.Area = &placeholder
	if err := s.Repo.Create(demo); err != nil {
		return errors.Wrap(err, "failed to preload demo iceberg")
	}
	log.Printf("Demo iceberg preloaded")
	return nil
}

func (s *IcebergService) demoRecord() *models.Iceberg {
	return &models.Iceberg{
		ID:        uuid.New(),
		Name:      DemoIcebergName,
		Latitude:  models.PendingLatitude,
		Longitude: models.PendingLongitude,
		ImagePath: filepath.Join(s.UploadDir, "A23A_001.png"),
		MaskPath:  filepath.Join(s.MaskDir, "A23A_001_mask.png"),
		Status:    models.StatusComplete,
	}
}

// archiveOriginal mirrors the original GeoTIFF into object storage when an
// archiver is configured. Best effort: a failed copy never fails the upload.
func (s *IcebergService) archiveOriginal(localPath string, id uuid.UUID) {
	if s.Archiver == nil {
		return
	}
	key := id.String() + "/" + filepath.Base(localPath)
	if err := s.Archiver.ArchiveRaster(context.Background(), localPath, key); err != nil {
		log.Printf("GeoTIFF archival failed for %s: %v", localPath, err)
	}
}

func saveMultipart(fileHeader *multipart.FileHeader, destPath string) error {
	src, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, src)
	return err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
