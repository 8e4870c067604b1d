package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"iceberg-service/internal/raster"
	"iceberg-service/internal/services"
)

const NoFileError = "No file provided"

// IcebergHandler defines handlers for the iceberg catalog and upload routes.
type IcebergHandler struct {
	Service *services.IcebergService
}

// NewIcebergHandler creates a new IcebergHandler with the given IcebergService.
func NewIcebergHandler(service *services.IcebergService) *IcebergHandler {
	return &IcebergHandler{Service: service}
}

// Home handles GET / as a liveness check.
// @Summary Liveness check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{} "API status"
// @Router / [get]
func (h *IcebergHandler) Home(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "API is running"})
}

// ListIcebergs handles GET /icebergs to retrieve the full catalog.
// @Summary List all icebergs
// @Description Gets all tracked icebergs with imagery paths and computed areas
// @Tags icebergs
// @Produce json
// @Success 200 {array} models.Iceberg "All iceberg records"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /icebergs [get]
func (h *IcebergHandler) ListIcebergs(c *fiber.Ctx) error {
	icebergs, err := h.Service.List()
	if err != nil {
		log.Printf("Error listing icebergs: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": true, "message": err.Error(),
		})
	}
	log.Printf("Successfully listed %d icebergs", len(icebergs))
	return c.JSON(icebergs)
}

// RefreshIcebergs handles GET /refresh-icebergs, the polling route the
// frontend hits after a webhook notification. Same payload as /icebergs,
// serialized record by record.
// @Summary Current iceberg list for client polling
// @Tags icebergs
// @Produce json
// @Success 200 {array} map[string]interface{} "All iceberg records"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /refresh-icebergs [get]
func (h *IcebergHandler) RefreshIcebergs(c *fiber.Ctx) error {
	icebergs, err := h.Service.List()
	if err != nil {
		log.Printf("Error listing icebergs: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": true, "message": err.Error(),
		})
	}
	serialized := make([]map[string]interface{}, 0, len(icebergs))
	for i := range icebergs {
		serialized = append(serialized, icebergs[i].Serialize())
	}
	return c.JSON(serialized)
}

// UploadImage handles POST /upload-image to ingest a satellite imagery tile.
// @Summary Upload a satellite imagery tile
// @Description Stores a GeoTIFF tile, converts it to PNG for display and creates a pending iceberg record
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "GeoTIFF imagery tile"
// @Success 200 {object} models.Iceberg "Created pending record"
// @Failure 400 {object} map[string]interface{} "No file provided"
// @Failure 500 {object} map[string]interface{} "Processing failure"
// @Router /upload-image [post]
func (h *IcebergHandler) UploadImage(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		log.Printf("Image upload rejected, no file: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": NoFileError,
		})
	}
	log.Printf("Processing image upload: %s (%d bytes)", fileHeader.Filename, fileHeader.Size)

	iceberg, err := h.Service.CreateFromImage(fileHeader)
	if err != nil {
		log.Printf("Image upload failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": true, "message": err.Error(),
		})
	}

	log.Printf("Created pending iceberg: ID=%s, Name=%s", iceberg.ID, iceberg.Name)
	return c.JSON(iceberg)
}

// UploadMask handles POST /upload-mask to ingest a segmentation mask from the
// ML pipeline. Reconciles against the catalog by id, name or inferred name
// and completes the matched record.
// @Summary Upload a segmentation mask
// @Description Stores a GeoTIFF mask, converts it to PNG, computes the iceberg area and completes the matching record
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "GeoTIFF segmentation mask"
// @Param id formData string false "Iceberg ID (preferred lookup)"
// @Param name formData string false "Iceberg name (fallback lookup)"
// @Success 200 {object} map[string]interface{} "Completed record with notification message"
// @Failure 400 {object} map[string]interface{} "No file or mask is not a GeoTIFF"
// @Failure 500 {object} map[string]interface{} "Processing failure"
// @Router /upload-mask [post]
func (h *IcebergHandler) UploadMask(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		log.Printf("Mask upload rejected, no file: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": NoFileError,
		})
	}

	idParam := c.FormValue("id")
	if idParam == "" {
		idParam = c.FormValue("iceberg_id")
	}
	upload := services.MaskUpload{
		IDParam:   idParam,
		NameParam: c.FormValue("name"),
		Filename:  fileHeader.Filename,
	}
	log.Printf("Processing mask upload: %s (id=%q name=%q)", fileHeader.Filename, upload.IDParam, upload.NameParam)

	iceberg, err := h.Service.UpsertFromMask(fileHeader, upload)
	if err != nil {
		log.Printf("Mask upload failed: %v", err)
		status := fiber.StatusInternalServerError
		if errors.Is(err, raster.ErrNotGeoraster) {
			status = fiber.StatusBadRequest
		}
		return c.Status(status).JSON(fiber.Map{
			"error": true, "message": err.Error(),
		})
	}

	response := iceberg.Serialize()
	response["notification"] = "Mask has been generated and saved!"
	h.Service.Notifier.NotifyAsync(response)

	log.Printf("Completed iceberg: ID=%s, Name=%s, Area=%v", iceberg.ID, iceberg.Name, *iceberg.Area)
	return c.JSON(response)
}

// UploadArchive handles POST /upload-archive for batch tile ingestion.
// @Summary Upload an archive of GeoTIFF tiles
// @Description Extracts a zip of imagery tiles and masks and runs each through the upload pipeline
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} map[string]interface{} "Per-tile results"
// @Failure 400 {object} map[string]interface{} "No file provided"
// @Failure 500 {object} map[string]interface{} "Extraction failure"
// @Router /upload-archive [post]
func (h *IcebergHandler) UploadArchive(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		log.Printf("Archive upload rejected, no file: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": NoFileError,
		})
	}
	log.Printf("Processing archive upload: %s (%d bytes)", fileHeader.Filename, fileHeader.Size)

	results, err := h.Service.ProcessArchive(fileHeader)
	if err != nil {
		log.Printf("Archive upload failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": true, "message": err.Error(),
		})
	}

	log.Printf("Processed archive with %d tiles", len(results))
	return c.JSON(fiber.Map{"results": results})
}

// UpdateAreas handles POST /update-areas to recompute areas for all records
// whose masks still carry a geotransform.
// @Summary Refresh all iceberg areas
// @Tags icebergs
// @Produce json
// @Success 200 {object} map[string]interface{} "status success"
// @Failure 500 {object} map[string]interface{} "Processing failure"
// @Router /update-areas [post]
func (h *IcebergHandler) UpdateAreas(c *fiber.Ctx) error {
	if err := h.Service.RefreshAllAreas(); err != nil {
		log.Printf("Area refresh failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": true, "message": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"status": "success"})
}

// SeedDemo handles POST /seed-demo to (re)compute the demo mask's area.
// @Summary Seed or refresh the demo iceberg
// @Tags icebergs
// @Produce json
// @Success 200 {object} map[string]interface{} "Demo record updated"
// @Failure 400 {object} map[string]interface{} "Demo mask not found"
// @Failure 500 {object} map[string]interface{} "Processing failure"
// @Router /seed-demo [post]
func (h *IcebergHandler) SeedDemo(c *fiber.Ctx) error {
	area, err := h.Service.SeedDemo()
	if err != nil {
		log.Printf("Demo seed failed: %v", err)
		status := fiber.StatusInternalServerError
		if errors.Is(err, services.ErrDemoAssetMissing) {
			status = fiber.StatusBadRequest
		}
		return c.Status(status).JSON(fiber.Map{
			"error": true, "message": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"message": "Demo iceberg updated",
		"area":    area,
	})
}
