package network

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"
	"github.com/hashicorp/go-retryablehttp"
)

// UploadParams ...
type UploadParams struct {
	FileName string
	Size     int64
	// Open returns a fresh reader over the raw file content. The client closes it.
	Open func() (io.ReadCloser, error)
	// OnProgress is called with the number of content bytes sent so far.
	// It may be called from a transport goroutine.
	OnProgress func(sent, total int64)
}

// UploadResponse ...
type UploadResponse struct {
	FileID   FileID `json:"file_id"`
	Filename string `json:"filename,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// CompressParams ...
type CompressParams struct {
	FileID  FileID
	Quality int
}

// CompressResponse holds the figures computed by the service. They are kept exactly as returned.
type CompressResponse struct {
	FileID              FileID      `json:"file_id,omitempty"`
	OriginalSize        int64       `json:"original_size"`
	CompressedSize      int64       `json:"compressed_size"`
	ReductionPercentage json.Number `json:"reduction_percentage"`
	DownloadURL         string      `json:"download_url"`
}

// ClientParams ...
type ClientParams struct {
	// APIBaseURL is the service root the endpoints hang off, e.g. http://localhost:5000/api
	APIBaseURL string
	// HTTPClient is optional, a non-retrying client is created when nil.
	HTTPClient *retryablehttp.Client
}

// DefaultClient talks to the compression service over HTTP. A failed request is never retried.
type DefaultClient struct {
	api apiClient
}

// NewClient ...
func NewClient(params ClientParams, logger log.Logger) (DefaultClient, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(params.APIBaseURL), "/")
	if baseURL == "" {
		return DefaultClient{}, fmt.Errorf("API base URL is empty")
	}

	httpClient := params.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient(logger)
	}

	return DefaultClient{api: newAPIClient(httpClient, baseURL, logger)}, nil
}

// NewHTTPClient returns the go-utils retryable client with retries switched off.
func NewHTTPClient(logger log.Logger) *retryablehttp.Client {
	client := retryhttp.NewClient(logger)
	client.RetryMax = 0
	client.CheckRetry = noRetryPolicy
	return client
}

// noRetryPolicy hands every response back to the caller, so non-2xx bodies stay readable.
func noRetryPolicy(ctx context.Context, _ *http.Response, _ error) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return false, nil
}

// Upload sends the raw file content to the service and returns the issued file id.
func (c DefaultClient) Upload(ctx context.Context, params UploadParams) (UploadResponse, error) {
	c.api.logger.Debugf("Upload %s (%d bytes)", params.FileName, params.Size)
	resp, err := c.api.upload(ctx, params)
	if err != nil {
		return UploadResponse{}, fmt.Errorf("upload %s: %w", params.FileName, err)
	}
	c.api.logger.Debugf("File ID: %s", resp.FileID)
	return resp, nil
}

// Compress asks the service to compress a previously uploaded file.
func (c DefaultClient) Compress(ctx context.Context, params CompressParams) (CompressResponse, error) {
	if params.FileID.IsZero() {
		return CompressResponse{}, fmt.Errorf("file id is empty")
	}

	c.api.logger.Debugf("Compress %s at quality %d", params.FileID, params.Quality)
	resp, err := c.api.compress(ctx, params)
	if err != nil {
		return CompressResponse{}, fmt.Errorf("compress %s: %w", params.FileID, err)
	}
	return resp, nil
}
