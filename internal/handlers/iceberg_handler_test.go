package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"iceberg-service/internal/models"
	"iceberg-service/internal/repository"
	"iceberg-service/internal/services"
)

// stubRaster fakes the GDAL processor for handler tests.
type stubRaster struct {
	area float64
}

func (s *stubRaster) EstimateArea(path string) (float64, error) {
	return s.area, nil
}

func (s *stubRaster) ConvertToPNG(src, dst string, normalize bool) error {
	return os.WriteFile(dst, []byte("png"), 0o644)
}

func newTestApp(t *testing.T) (*fiber.App, *services.IcebergService) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Iceberg{}))

	base := t.TempDir()
	uploadDir := filepath.Join(base, "uploads")
	maskDir := filepath.Join(base, "masks")
	require.NoError(t, os.MkdirAll(uploadDir, 0o755))
	require.NoError(t, os.MkdirAll(maskDir, 0o755))

	svc := services.NewIcebergService(
		repository.NewIcebergRepository(db), &stubRaster{area: 42}, nil, nil, nil, uploadDir, maskDir)

	app := fiber.New()
	h := NewIcebergHandler(svc)
	app.Get("/", h.Home)
	app.Get("/icebergs", h.ListIcebergs)
	app.Get("/refresh-icebergs", h.RefreshIcebergs)
	app.Post("/upload-image", h.UploadImage)
	app.Post("/upload-mask", h.UploadMask)
	app.Post("/upload-archive", h.UploadArchive)
	app.Post("/update-areas", h.UpdateAreas)
	app.Post("/seed-demo", h.SeedDemo)
	return app, svc
}

// multipartRequest builds a multipart POST with one file and optional form fields.
func multipartRequest(t *testing.T, url, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, url, buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeJSON(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestHome(t *testing.T) {
	app, _ := newTestApp(t)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decodeJSON(t, resp, &body)
	assert.Equal(t, "API is running", body["message"])
}

func TestUploadImageMissingFile(t *testing.T) {
	app, _ := newTestApp(t)
	req := multipartRequest(t, "/upload-image", "", nil, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadImageCreatesPending(t *testing.T) {
	app, _ := newTestApp(t)
	req := multipartRequest(t, "/upload-image", "BergA.tif", []byte("tiff"), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var record models.Iceberg
	decodeJSON(t, resp, &record)
	assert.Equal(t, "BergA.tif", record.Name)
	assert.Equal(t, models.StatusPending, record.Status)
	assert.Nil(t, record.Area)
	assert.Empty(t, record.MaskPath)
}

func TestUploadMaskRejectsNonTiff(t *testing.T) {
	app, _ := newTestApp(t)
	req := multipartRequest(t, "/upload-mask", "BergA_mask.png", []byte("png"), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]interface{}
	decodeJSON(t, resp, &body)
	assert.Equal(t, true, body["error"])
}

func TestUploadMaskCompletesRecord(t *testing.T) {
	app, _ := newTestApp(t)
	req := multipartRequest(t, "/upload-mask", "BergB_mask.tif", []byte("tiff"), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	decodeJSON(t, resp, &body)
	assert.Equal(t, "BergB", body["name"])
	assert.Equal(t, "complete", body["status"])
	assert.Equal(t, 42.0, body["area"])
	assert.Equal(t, "Mask has been generated and saved!", body["notification"])
}

func TestUploadMaskTargetsRecordByID(t *testing.T) {
	app, svc := newTestApp(t)

	// Create a pending record through the API first.
	resp, err := app.Test(multipartRequest(t, "/upload-image", "BergC.tif", []byte("tiff"), nil))
	require.NoError(t, err)
	var pending models.Iceberg
	decodeJSON(t, resp, &pending)

	req := multipartRequest(t, "/upload-mask", "unrelated_mask.tif", []byte("tiff"),
		map[string]string{"id": pending.ID.String()})
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	decodeJSON(t, resp, &body)
	assert.Equal(t, pending.ID.String(), body["id"])
	assert.Equal(t, "complete", body["status"])

	count, err := svc.Repo.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestListIcebergs(t *testing.T) {
	app, _ := newTestApp(t)

	_, err := app.Test(multipartRequest(t, "/upload-image", "BergD.tif", []byte("tiff"), nil))
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/icebergs", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var records []models.Iceberg
	decodeJSON(t, resp, &records)
	require.Len(t, records, 1)
	assert.Equal(t, "BergD.tif", records[0].Name)
}

func TestRefreshIcebergsSerializedShape(t *testing.T) {
	app, _ := newTestApp(t)

	_, err := app.Test(multipartRequest(t, "/upload-mask", "BergE_mask.tif", []byte("tiff"), nil))
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/refresh-icebergs", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var records []map[string]interface{}
	decodeJSON(t, resp, &records)
	require.Len(t, records, 1)
	for _, key := range []string{"id", "name", "latitude", "longitude", "image_path", "mask_path", "area", "status"} {
		assert.Contains(t, records[0], key)
	}
}

func TestUpdateAreas(t *testing.T) {
	app, _ := newTestApp(t)
	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/update-areas", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decodeJSON(t, resp, &body)
	assert.Equal(t, "success", body["status"])
}

func TestSeedDemoMissingAsset(t *testing.T) {
	app, _ := newTestApp(t)
	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/seed-demo", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSeedDemoComputesArea(t *testing.T) {
	app, svc := newTestApp(t)
	require.NoError(t, os.WriteFile(filepath.Join(svc.MaskDir, "A23A_001_mask.tif"), []byte("tiff"), 0o644))

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/seed-demo", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	decodeJSON(t, resp, &body)
	assert.Equal(t, "Demo iceberg updated", body["message"])
	assert.Equal(t, 42.0, body["area"])
}
