package network

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/melbahja/got"
)

// DownloadParams ...
type DownloadParams struct {
	APIBaseURL string
	// Reference is the download_url returned by the compress endpoint, absolute or relative to APIBaseURL.
	Reference    string
	DownloadPath string
}

// DefaultDownloader ...
type DefaultDownloader struct{}

// Download ...
func (DefaultDownloader) Download(ctx context.Context, params DownloadParams, logger log.Logger) error {
	return Download(ctx, params, logger)
}

// Download fetches a compression result to DownloadPath.
func Download(ctx context.Context, params DownloadParams, logger log.Logger) error {
	if params.Reference == "" {
		return fmt.Errorf("download reference is empty")
	}
	if params.DownloadPath == "" {
		return fmt.Errorf("download path is empty")
	}

	downloadURL, err := ResolveDownloadURL(params.APIBaseURL, params.Reference)
	if err != nil {
		return err
	}

	logger.Debugf("Download %s to %s", downloadURL, params.DownloadPath)
	if err := downloadFile(ctx, NewHTTPClient(logger).StandardClient(), downloadURL, params.DownloadPath); err != nil {
		return fmt.Errorf("failed to download result: %w", err)
	}
	return nil
}

// ResolveDownloadURL resolves a download reference against the API base URL.
// Absolute references are returned unchanged; "/files/x" resolves against the base URL's host.
func ResolveDownloadURL(apiBaseURL, reference string) (string, error) {
	ref, err := url.Parse(reference)
	if err != nil {
		return "", fmt.Errorf("parse download reference: %w", err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}

	if apiBaseURL == "" {
		return "", fmt.Errorf("relative download reference %s needs an API base URL", reference)
	}
	base, err := url.Parse(apiBaseURL)
	if err != nil {
		return "", fmt.Errorf("parse API base URL: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}

func downloadFile(ctx context.Context, client *http.Client, url string, dest string) error {
	downloader := got.New()
	downloader.Client = client

	return downloader.Do(got.NewDownload(ctx, url, dest))
}
