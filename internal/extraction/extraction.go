package extraction

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"
)

// tileExtensions are the raster formats accepted from batch archives.
var tileExtensions = map[string]bool{
	".tif": true, ".tiff": true,
}

// shouldIgnore filters system and hidden files that archiving tools sneak in.
func shouldIgnore(filename string) bool {
	if strings.HasPrefix(filename, "._") || strings.HasPrefix(filename, ".") {
		return true
	}
	if strings.EqualFold(filename, "thumbs.db") {
		return true
	}
	return filename == "" || strings.HasSuffix(filename, "/")
}

// ExtractTileArchive extracts a tile archive (zip, tar, ...) to a temporary
// directory and returns the paths of the contained GeoTIFF tiles plus the
// directory to clean up afterwards. Non-raster entries are skipped.
func ExtractTileArchive(ctx context.Context, archivePath string) ([]string, string, error) {
	destDir, err := os.MkdirTemp("", "tiles-*")
	if err != nil {
		return nil, "", err
	}

	fsys, err := archives.FileSystem(ctx, archivePath, nil)
	if err != nil {
		os.RemoveAll(destDir)
		return nil, "", err
	}

	var tiles []string
	err = fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		filename := filepath.Base(path)
		if shouldIgnore(filename) || !tileExtensions[strings.ToLower(filepath.Ext(filename))] {
			return nil
		}

		reader, err := fsys.Open(path)
		if err != nil {
			return err
		}
		defer reader.Close()

		// Flatten: tiles are addressed by basename downstream.
		destPath := filepath.Join(destDir, filename)
		outFile, err := os.Create(destPath)
		if err != nil {
			return err
		}
		defer outFile.Close()

		if _, err := io.Copy(outFile, reader); err != nil {
			return err
		}

		tiles = append(tiles, destPath)
		return nil
	})
	if err != nil {
		os.RemoveAll(destDir)
		return nil, "", err
	}

	return tiles, destDir, nil
}
