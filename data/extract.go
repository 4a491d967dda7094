package data

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ErrUnsafePath is returned when an archive contains an entry that would be
// extracted outside the target directory.
var ErrUnsafePath = errors.New("unsafe path")

// Extract extracts the archive archivePath into dir. The archive type is
// determined from the archive's extension.
func Extract(archivePath, dir string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch {
	case strings.HasSuffix(archivePath, string(ArchiveTypeTarBz2)):
		return extractTarBz2(archivePath, dir, logger)
	case strings.HasSuffix(archivePath, string(ArchiveTypeZip)):
		return extractZip(archivePath, dir, logger)
	default:
		return fmt.Errorf("%s: %w: unknown archive type", archivePath, errors.ErrUnsupported)
	}
}

func extractTarBz2(archivePath, dir string, logger *zap.Logger) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer file.Close()

	tarReader := tar.NewReader(bzip2.NewReader(file))
	for {
		header, err := tarReader.Next()
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, tar.ErrInsecurePath):
			// Checked by extractPath.
		case err != nil:
			return fmt.Errorf("%s: %w", archivePath, err)
		}

		target, err := extractPath(dir, header.Name)
		if err != nil {
			return fmt.Errorf("%s: %w", archivePath, err)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o777); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := extractFile(target, tarReader, header.FileInfo().Mode()); err != nil {
				return err
			}
		default:
			logger.Debug("skipping archive entry",
				zap.String("archive", archivePath),
				zap.String("name", header.Name),
				zap.Uint8("type", header.Typeflag))
		}
	}
}

func extractZip(archivePath, dir string, logger *zap.Logger) error {
	zipReader, err := zip.OpenReader(archivePath)
	switch {
	case errors.Is(err, zip.ErrInsecurePath):
		// Checked by extractPath.
	case err != nil:
		return err
	}
	defer zipReader.Close()

	for _, zipFile := range zipReader.File {
		target, err := extractPath(dir, zipFile.Name)
		if err != nil {
			return fmt.Errorf("%s: %w", archivePath, err)
		}

		mode := zipFile.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0o777); err != nil {
				return err
			}
		case mode.IsRegular():
			if err := extractZipFile(target, zipFile); err != nil {
				return err
			}
		default:
			logger.Debug("skipping archive entry",
				zap.String("archive", archivePath),
				zap.String("name", zipFile.Name),
				zap.Stringer("mode", mode))
		}
	}
	return nil
}

func extractZipFile(target string, zipFile *zip.File) error {
	r, err := zipFile.Open()
	if err != nil {
		return err
	}
	defer r.Close()
	return extractFile(target, r, zipFile.Mode())
}

// extractPath returns the path in dir at which the archive entry name should
// be extracted.
func extractPath(dir, name string) (string, error) {
	name = strings.TrimPrefix(filepath.FromSlash(name), "."+string(filepath.Separator))
	if name == "" || name == "." {
		return dir, nil
	}
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("%s: %w", name, ErrUnsafePath)
	}
	return filepath.Join(dir, name), nil
}

func extractFile(target string, r io.Reader, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o777); err != nil {
		return err
	}
	file, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode.Perm()|0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, r); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
