package workflow

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// File is a file handle picked by the user.
type File struct {
	Name string
	Size int64
	// Open returns a fresh reader over the raw content.
	Open func() (io.ReadCloser, error)
}

// LocalFile describes a file on the local filesystem.
func LocalFile(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, err
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", path)
	}

	return File{
		Name: filepath.Base(path),
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}
