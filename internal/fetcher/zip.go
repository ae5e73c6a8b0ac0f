package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractZIP extracts all files from a ZIP archive to the destination
// directory. Shapefile bundles ship zipped (.shp/.shx/.dbf/.prj together).
// Returns the list of extracted file paths.
func ExtractZIP(zipPath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrapf(err, "zip: open %s", zipPath)
	}
	defer func() { _ = r.Close() }()

	var extracted []string
	for _, f := range r.File {
		path, err := extractZIPEntry(f, destDir)
		if err != nil {
			return extracted, err
		}
		if path != "" {
			extracted = append(extracted, path)
		}
	}

	return extracted, nil
}

// extractZIPEntry writes one archive entry under destDir, rejecting paths
// that escape it. Directories are created, not returned.
func extractZIPEntry(f *zip.File, destDir string) (string, error) {
	cleaned := filepath.Clean(f.Name)
	if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", eris.Errorf("zip: illegal entry path %q", f.Name)
	}
	target := filepath.Join(destDir, cleaned)

	if f.FileInfo().IsDir() {
		if err := os.MkdirAll(target, 0o755); err != nil {
			return "", eris.Wrapf(err, "zip: mkdir %s", target)
		}
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", eris.Wrapf(err, "zip: mkdir parent of %s", target)
	}

	src, err := f.Open()
	if err != nil {
		return "", eris.Wrapf(err, "zip: open entry %s", f.Name)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.Create(target)
	if err != nil {
		return "", eris.Wrapf(err, "zip: create %s", target)
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, src); err != nil {
		return "", eris.Wrapf(err, "zip: extract %s", f.Name)
	}

	return target, nil
}

// FindByExt returns the first file under dir with the given extension.
func FindByExt(dir, ext string) (string, error) {
	var found string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if found == "" && !info.IsDir() && strings.EqualFold(filepath.Ext(path), ext) {
			found = path
		}
		return nil
	})
	if err != nil {
		return "", eris.Wrapf(err, "zip: walk %s", dir)
	}
	if found == "" {
		return "", eris.Errorf("zip: no %s file under %s", ext, dir)
	}
	return found, nil
}
