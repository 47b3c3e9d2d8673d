// Package devserver is a local implementation of the compression service API,
// used for development and integration testing of the client.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
)

const (
	defaultQuality    = 70
	maxMultipartInRAM = 32 << 20
	shutdownTimeout   = 5 * time.Second
)

type uploadResponse struct {
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

type compressRequest struct {
	FileID  string `json:"file_id"`
	Quality *int   `json:"quality"`
}

type compressResponse struct {
	FileID              string  `json:"file_id"`
	OriginalSize        int64   `json:"original_size"`
	CompressedSize      int64   `json:"compressed_size"`
	ReductionPercentage float64 `json:"reduction_percentage"`
	DownloadURL         string  `json:"download_url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server ...
type Server struct {
	store  *fileStore
	logger log.Logger
}

// New creates a server storing files under storageDir, or under a fresh temp dir when it is empty.
func New(storageDir string, logger log.Logger) (*Server, error) {
	store, err := newFileStore(storageDir, pathutil.NewPathProvider())
	if err != nil {
		return nil, err
	}
	return &Server{store: store, logger: logger}, nil
}

// Handler ...
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/upload", s.handleUpload)
	mux.HandleFunc("POST /api/compress", s.handleCompress)
	mux.HandleFunc("GET /api/download/{id}", s.handleDownload)
	return withCORS(mux)
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("Listening on %s", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		s.logger.Donef("Server stopped")
		return nil
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartInRAM); err != nil {
		s.writeError(w, http.StatusBadRequest, "No file part")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "No file part")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		s.writeError(w, http.StatusBadRequest, "No selected file")
		return
	}

	record, err := s.store.save(header.Filename, file)
	if err != nil {
		s.logger.Errorf("Failed to store upload: %s", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Infof("Stored %s as %s (%d bytes)", record.OriginalName, record.ID, record.OriginalSize)

	s.writeJSON(w, http.StatusOK, uploadResponse{
		FileID:   record.ID,
		Filename: record.OriginalName,
		Size:     record.OriginalSize,
	})
}

func (s *Server) handleCompress(w http.ResponseWriter, r *http.Request) {
	var req compressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	record, ok := s.store.get(req.FileID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "File not found")
		return
	}

	if record.OriginalSize == 0 {
		s.writeError(w, http.StatusInternalServerError, "Cannot compress an empty file")
		return
	}

	quality := defaultQuality
	if req.Quality != nil {
		quality = *req.Quality
	}

	compressedPath := s.store.compressedPathFor(record)
	if err := compressFile(record.OriginalPath, compressedPath, quality, record.Extension); err != nil {
		s.logger.Errorf("Failed to compress %s: %s", record.ID, err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	info, err := os.Stat(compressedPath)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	record, err = s.store.markCompressed(record.ID, compressedPath, info.Size())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Infof("Compressed %s at quality %d: %d -> %d bytes", record.ID, quality, record.OriginalSize, record.CompressedSize)

	s.writeJSON(w, http.StatusOK, compressResponse{
		FileID:              record.ID,
		OriginalSize:        record.OriginalSize,
		CompressedSize:      record.CompressedSize,
		ReductionPercentage: reductionPercentage(record.OriginalSize, record.CompressedSize),
		DownloadURL:         fmt.Sprintf("%s/api/download/%s", requestBaseURL(r), record.ID),
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	record, ok := s.store.get(r.PathValue("id"))
	if !ok || !record.compressed() {
		s.writeError(w, http.StatusNotFound, "Compressed file not found")
		return
	}

	file, err := os.Open(record.CompressedPath)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "Compressed file not found")
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.OriginalName))
	http.ServeContent(w, r, filepath.Base(record.CompressedPath), info.ModTime(), file)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil && !errors.Is(err, http.ErrHandlerTimeout) {
		s.logger.Warnf("Failed to write response: %s", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message})
}

func reductionPercentage(originalSize, compressedSize int64) float64 {
	if originalSize == 0 {
		return 0
	}
	reduction := float64(originalSize-compressedSize) / float64(originalSize) * 100
	return math.Round(reduction*100) / 100
}

func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
