package engine

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// maxBinarySize caps extraction at 512 MB to bound a hostile archive.
const maxBinarySize = 512 << 20

// extractBinary pulls the named binary out of a gzipped tarball and writes
// it into destDir, returning the extracted file's path. Archive entries
// other than the binary are ignored.
func extractBinary(archivePath, binaryName, destDir string) (string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return "", fmt.Errorf("not a gzip archive: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		// Match on base name so "dist/dyad-engine" style entries work.
		if filepath.Base(filepath.Clean(hdr.Name)) != binaryName {
			continue
		}
		if strings.Contains(hdr.Name, "..") {
			return "", fmt.Errorf("refusing archive entry with path traversal: %s", hdr.Name)
		}

		dest := filepath.Join(destDir, binaryName)
		out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o700)
		if err != nil {
			return "", err
		}
		if _, err := io.Copy(out, io.LimitReader(tr, maxBinarySize)); err != nil {
			out.Close()
			return "", fmt.Errorf("extracting %s: %w", hdr.Name, err)
		}
		if err := out.Close(); err != nil {
			return "", err
		}
		return dest, nil
	}

	return "", fmt.Errorf("archive has no %q entry", binaryName)
}
