package devserver

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/google/uuid"
)

type fileRecord struct {
	ID             string
	OriginalName   string
	OriginalPath   string
	OriginalSize   int64
	Extension      string
	CompressedPath string
	CompressedSize int64
}

func (r fileRecord) compressed() bool {
	return r.CompressedPath != ""
}

// fileStore keeps uploaded and compressed files on disk and their metadata in memory.
type fileStore struct {
	uploadDir     string
	compressedDir string

	mu      sync.Mutex
	records map[string]fileRecord
}

func newFileStore(storageDir string, pathProvider pathutil.PathProvider) (*fileStore, error) {
	if storageDir == "" {
		tmpDir, err := pathProvider.CreateTempDir("compressor-devserver")
		if err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
		storageDir = tmpDir
	}

	s := &fileStore{
		uploadDir:     filepath.Join(storageDir, "uploads"),
		compressedDir: filepath.Join(storageDir, "compressed"),
		records:       map[string]fileRecord{},
	}
	for _, dir := range []string{s.uploadDir, s.compressedDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return s, nil
}

func (s *fileStore) save(name string, content io.Reader) (fileRecord, error) {
	id := uuid.NewString()
	safeName := secureFilename(name)
	path := filepath.Join(s.uploadDir, fmt.Sprintf("%s_%s", id, safeName))

	file, err := os.Create(path)
	if err != nil {
		return fileRecord{}, fmt.Errorf("create upload file: %w", err)
	}
	size, err := io.Copy(file, content)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fileRecord{}, fmt.Errorf("write upload file: %w", err)
	}

	record := fileRecord{
		ID:           id,
		OriginalName: safeName,
		OriginalPath: path,
		OriginalSize: size,
		Extension:    extension(safeName),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = record

	return record, nil
}

func (s *fileStore) get(id string) (fileRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	return record, ok
}

func (s *fileStore) compressedPathFor(record fileRecord) string {
	return filepath.Join(s.compressedDir, fmt.Sprintf("%s_compressed_%s", record.ID, record.OriginalName))
}

func (s *fileStore) markCompressed(id, path string, size int64) (fileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return fileRecord{}, fmt.Errorf("unknown file id: %s", id)
	}
	record.CompressedPath = path
	record.CompressedSize = size
	s.records[id] = record
	return record, nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

func secureFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	return name
}

func extension(name string) string {
	ext := filepath.Ext(name)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
