package network

import (
	"context"

	"github.com/bitrise-io/go-utils/v2/log"
)

// Client ...
type Client interface {
	Upload(context.Context, UploadParams) (UploadResponse, error)
	Compress(context.Context, CompressParams) (CompressResponse, error)
}

// Downloader ...
type Downloader interface {
	Download(context.Context, DownloadParams, log.Logger) error
}
