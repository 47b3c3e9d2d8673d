// Package testutil holds assertions on files produced by the compression workflow.
package testutil

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // registers the jpeg decoder
	_ "image/png"  // registers the png decoder
	"io"
	"os"

	"github.com/klauspost/compress/zip"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// FileChecker allows chaining multiple checks on a file path.
type FileChecker struct {
	Path   string
	Checks []func(string) error
}

// NewFileChecker creates a FileChecker for the given path.
func NewFileChecker(path string) *FileChecker {
	return &FileChecker{Path: path}
}

// Check runs all checks and returns every failure joined.
func (fc *FileChecker) Check() error {
	var errs []error
	for _, check := range fc.Checks {
		if err := check(fc.Path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// IsFile adds a check that the path is a regular file.
func (fc *FileChecker) IsFile() *FileChecker {
	fc.Checks = append(fc.Checks, func(path string) error {
		info, err := getInfo(path)
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("expected regular file: %s", path)
		}
		return nil
	})
	return fc
}

// SizeEquals adds a check on the exact file size.
func (fc *FileChecker) SizeEquals(size int64) *FileChecker {
	fc.Checks = append(fc.Checks, func(path string) error {
		info, err := getInfo(path)
		if err != nil {
			return err
		}
		if info.Size() != size {
			return fmt.Errorf("size mismatch for %s: want %d got %d", path, size, info.Size())
		}
		return nil
	})
	return fc
}

// SmallerThan adds a check that the file is strictly smaller than the given one.
func (fc *FileChecker) SmallerThan(other string) *FileChecker {
	fc.Checks = append(fc.Checks, func(path string) error {
		info, err := getInfo(path)
		if err != nil {
			return err
		}
		otherInfo, err := getInfo(other)
		if err != nil {
			return err
		}
		if info.Size() >= otherInfo.Size() {
			return fmt.Errorf("%s (%d bytes) is not smaller than %s (%d bytes)", path, info.Size(), other, otherInfo.Size())
		}
		return nil
	})
	return fc
}

// ImageFormat adds a check that the file decodes as an image of the given format ("jpeg", "png").
func (fc *FileChecker) ImageFormat(format string) *FileChecker {
	fc.Checks = append(fc.Checks, func(path string) error {
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		_, got, err := image.DecodeConfig(file)
		if err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		if got != format {
			return fmt.Errorf("image format mismatch for %s: want %s got %s", path, format, got)
		}
		return nil
	})
	return fc
}

// ZipEntryContent adds a check that the archive holds the named entry with the given content.
func (fc *FileChecker) ZipEntryContent(name, content string) *FileChecker {
	fc.Checks = append(fc.Checks, func(path string) error {
		reader, err := zip.OpenReader(path)
		if err != nil {
			return fmt.Errorf("open archive %s: %w", path, err)
		}
		defer reader.Close()

		for _, entry := range reader.File {
			if entry.Name != name {
				continue
			}
			got, err := readZipEntry(entry)
			if err != nil {
				return err
			}
			if got != content {
				return fmt.Errorf("entry %s of %s content mismatch\nwant:\n%q\n\ngot:\n%q", name, path, content, got)
			}
			return nil
		}
		return fmt.Errorf("entry %s not found in %s", name, path)
	})
	return fc
}

// PDFPageCount adds a check that the file reads as a PDF with the given number of pages.
func (fc *FileChecker) PDFPageCount(pages int) *FileChecker {
	fc.Checks = append(fc.Checks, func(path string) error {
		api.DisableConfigDir()
		got, err := api.PageCountFile(path)
		if err != nil {
			return fmt.Errorf("read pdf %s: %w", path, err)
		}
		if got != pages {
			return fmt.Errorf("page count mismatch for %s: want %d got %d", path, pages, got)
		}
		return nil
	})
	return fc
}

func readZipEntry(entry *zip.File) (string, error) {
	rc, err := entry.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func getInfo(path string) (os.FileInfo, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("path does not exist: %s", path)
		}
		return nil, fmt.Errorf("lstat %s: %w", path, err)
	}
	return info, nil
}
