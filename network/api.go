package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httputil"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/hashicorp/go-retryablehttp"
)

const uploadFormField = "file"

type compressRequest struct {
	FileID  FileID `json:"file_id"`
	Quality int    `json:"quality"`
}

type apiClient struct {
	httpClient *retryablehttp.Client
	baseURL    string
	logger     log.Logger
}

func newAPIClient(client *retryablehttp.Client, baseURL string, logger log.Logger) apiClient {
	return apiClient{
		httpClient: client,
		baseURL:    baseURL,
		logger:     logger,
	}
}

func (c apiClient) upload(ctx context.Context, params UploadParams) (UploadResponse, error) {
	url := fmt.Sprintf("%s/upload", c.baseURL)

	body, err := newMultipartBody(params)
	if err != nil {
		return UploadResponse{}, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, body.readerFunc())
	if err != nil {
		return UploadResponse{}, err
	}
	req.Header.Set("Content-Type", body.contentType)

	// Add Content-Length header manually because retryablehttp doesn't do it automatically
	req.Header.Set("Content-Length", fmt.Sprintf("%d", body.size))
	req.ContentLength = body.size

	dump, err := httputil.DumpRequest(req.Request, false)
	if err != nil {
		c.logger.Warnf("error while dumping request: %s", err)
	}
	c.logger.Debugf("Upload request dump: %s", string(dump))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return UploadResponse{}, err
	}
	defer func(body io.ReadCloser) {
		err := body.Close()
		if err != nil {
			c.logger.Printf(err.Error())
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return UploadResponse{}, unwrapError(resp)
	}

	var response UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return UploadResponse{}, fmt.Errorf("decode upload response: %w", err)
	}
	if response.FileID.IsZero() {
		return UploadResponse{}, fmt.Errorf("upload response has no file_id")
	}

	return response, nil
}

func (c apiClient) compress(ctx context.Context, params CompressParams) (CompressResponse, error) {
	url := fmt.Sprintf("%s/compress", c.baseURL)

	body, err := json.Marshal(compressRequest{
		FileID:  params.FileID,
		Quality: params.Quality,
	})
	if err != nil {
		return CompressResponse{}, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return CompressResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	dump, err := httputil.DumpRequest(req.Request, true)
	if err != nil {
		c.logger.Warnf("error while dumping request: %s", err)
	}
	c.logger.Debugf("Compress request dump: %s", string(dump))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return CompressResponse{}, err
	}
	defer func(body io.ReadCloser) {
		err := body.Close()
		if err != nil {
			c.logger.Printf(err.Error())
		}
	}(resp.Body)

	dump, err = httputil.DumpResponse(resp, true)
	if err != nil {
		c.logger.Warnf("error while dumping response: %s", err)
	}
	c.logger.Debugf("Compress response dump: %s", string(dump))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return CompressResponse{}, unwrapError(resp)
	}

	var response CompressResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return CompressResponse{}, fmt.Errorf("decode compress response: %w", err)
	}
	if response.ReductionPercentage == "" {
		return CompressResponse{}, fmt.Errorf("compress response has no reduction_percentage")
	}

	return response, nil
}

func unwrapError(resp *http.Response) error {
	errorResp, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return fmt.Errorf("HTTP %d: %s", resp.StatusCode, errorResp)
}

// multipartBody streams the raw file between a pre-rendered multipart header and trailer,
// so the request size is known up front and the content is never buffered.
type multipartBody struct {
	params      UploadParams
	header      []byte
	trailer     []byte
	contentType string
	size        int64
}

func newMultipartBody(params UploadParams) (multipartBody, error) {
	if params.Open == nil {
		return multipartBody{}, fmt.Errorf("no content provided for %s", params.FileName)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if _, err := writer.CreateFormFile(uploadFormField, params.FileName); err != nil {
		return multipartBody{}, fmt.Errorf("create form file: %w", err)
	}
	headerLen := buf.Len()
	if err := writer.Close(); err != nil {
		return multipartBody{}, fmt.Errorf("close multipart writer: %w", err)
	}
	raw := buf.Bytes()

	// The trailer written by Close starts with the CRLF that ends the part content.
	header := append([]byte(nil), raw[:headerLen]...)
	trailer := append([]byte(nil), raw[headerLen:]...)

	return multipartBody{
		params:      params,
		header:      header,
		trailer:     trailer,
		contentType: writer.FormDataContentType(),
		size:        int64(len(header)) + params.Size + int64(len(trailer)),
	}, nil
}

func (b multipartBody) readerFunc() retryablehttp.ReaderFunc {
	return func() (io.Reader, error) {
		content, err := b.params.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", b.params.FileName, err)
		}

		var fileReader io.Reader = content
		if b.params.OnProgress != nil {
			fileReader = &progressReader{reader: content, total: b.params.Size, onProgress: b.params.OnProgress}
		}

		return &multiReadCloser{
			Reader: io.MultiReader(bytes.NewReader(b.header), fileReader, bytes.NewReader(b.trailer)),
			closer: content,
		}, nil
	}
}

type multiReadCloser struct {
	io.Reader
	closer io.Closer
}

func (m *multiReadCloser) Close() error {
	return m.closer.Close()
}

type progressReader struct {
	reader     io.Reader
	sent       int64
	total      int64
	onProgress func(sent, total int64)
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.sent += int64(n)
		r.onProgress(r.sent, r.total)
	}
	return n, err
}
