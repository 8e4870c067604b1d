package extraction

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, entries map[string][]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tiles.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range entries {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return path
}

func TestExtractTileArchive(t *testing.T) {
	archivePath := writeZip(t, map[string][]byte{
		"BergA.tif":         []byte("tiff-a"),
		"BergA_mask.tif":    []byte("tiff-a-mask"),
		"nested/BergB.tiff": []byte("tiff-b"),
		"notes.txt":         []byte("not a tile"),
		".hidden.tif":       []byte("junk"),
		"._BergA.tif":       []byte("resource fork"),
		"Thumbs.db":         []byte("junk"),
		"preview/BergA.png": []byte("display only"),
	})

	tiles, destDir, err := ExtractTileArchive(context.Background(), archivePath)
	require.NoError(t, err)
	defer os.RemoveAll(destDir)

	names := make([]string, 0, len(tiles))
	for _, tile := range tiles {
		assert.FileExists(t, tile)
		names = append(names, filepath.Base(tile))
	}
	sort.Strings(names)
	assert.Equal(t, []string{"BergA.tif", "BergA_mask.tif", "BergB.tiff"}, names)
}

func TestExtractTileArchiveEmpty(t *testing.T) {
	archivePath := writeZip(t, map[string][]byte{"readme.md": []byte("nothing here")})

	tiles, destDir, err := ExtractTileArchive(context.Background(), archivePath)
	require.NoError(t, err)
	defer os.RemoveAll(destDir)
	assert.Empty(t, tiles)
}

func TestExtractTileArchiveRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.zip")
	require.NoError(t, os.WriteFile(path, []byte("not an archive"), 0o644))

	_, _, err := ExtractTileArchive(context.Background(), path)
	assert.Error(t, err)
}
