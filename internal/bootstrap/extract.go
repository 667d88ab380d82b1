package bootstrap

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

// ErrPathTraversal is returned by Extract when an archive entry would land
// outside the destination root.
type ErrPathTraversal struct {
	Entry string
}

func (e *ErrPathTraversal) Error() string {
	return fmt.Sprintf("bootstrap: archive entry %q escapes destination root", e.Entry)
}

// VerifySHA256 checks that the file at path hashes to the expected hex digest.
func VerifySHA256(path, expectedHex string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return err
	}
	got := hex.EncodeToString(h.Sum(nil))
	if !strings.EqualFold(got, expectedHex) {
		return fmt.Errorf("bootstrap: sha256 mismatch for %s: want %s, got %s", path, expectedHex, got)
	}
	return nil
}

// Format identifies an archive's container format from its extension.
type Format int

const (
	FormatZip Format = iota
	FormatTarGz
	FormatTarXz
)

// DetectFormat infers the archive format from a filename.
func DetectFormat(name string) (Format, error) {
	switch {
	case strings.HasSuffix(name, ".zip"):
		return FormatZip, nil
	case strings.HasSuffix(name, ".tar.gz") || strings.HasSuffix(name, ".tgz"):
		return FormatTarGz, nil
	case strings.HasSuffix(name, ".tar.xz"):
		return FormatTarXz, nil
	default:
		return 0, fmt.Errorf("bootstrap: unrecognized archive extension: %s", name)
	}
}

// Extract unpacks archivePath (in the given format) into destRoot. Every
// resolved entry path must remain under destRoot; an entry containing ".."
// segments or an absolute path that would escape is rejected and extraction
// stops there with an error. Entries extracted before it are left in place.
func Extract(archivePath string, format Format, destRoot string) error {
	switch format {
	case FormatZip:
		return extractZip(archivePath, destRoot)
	case FormatTarGz:
		return extractTar(archivePath, destRoot, gzipReader)
	case FormatTarXz:
		return extractTar(archivePath, destRoot, xzReader)
	default:
		return fmt.Errorf("bootstrap: unknown archive format %d", format)
	}
}

func gzipReader(r io.Reader) (io.Reader, error) { return gzip.NewReader(r) }
func xzReader(r io.Reader) (io.Reader, error)   { return xz.NewReader(r) }

func safeJoin(root, entry string) (string, error) {
	if filepath.IsAbs(entry) {
		return "", &ErrPathTraversal{Entry: entry}
	}
	dest := filepath.Join(root, entry)
	if dest != root && !strings.HasPrefix(dest, root+string(os.PathSeparator)) {
		return "", &ErrPathTraversal{Entry: entry}
	}
	return dest, nil
}

func extractZip(archivePath, destRoot string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, f := range zr.File {
		dest, err := safeJoin(destRoot, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		if err := writeExtractedFile(dest, rc, f.Mode()); err != nil {
			rc.Close()
			return err
		}
		rc.Close()
	}
	return nil
}

func extractTar(archivePath, destRoot string, wrap func(io.Reader) (io.Reader, error)) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	decompressed, err := wrap(f)
	if err != nil {
		return err
	}

	tr := tar.NewReader(decompressed)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		dest, err := safeJoin(destRoot, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return err
			}
			if err := writeExtractedFile(dest, tr, os.FileMode(hdr.Mode)); err != nil {
				return err
			}
		}
	}
}

func writeExtractedFile(dest string, r io.Reader, mode os.FileMode) error {
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm()|0o600)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, r)
	return err
}
