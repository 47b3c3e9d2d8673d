package devserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	s, err := New(t.TempDir(), log.NewLogger())
	require.NoError(t, err)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func uploadFile(t *testing.T, baseURL, name string, content []byte) *http.Response {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	resp, err := http.Post(baseURL+"/api/upload", writer.FormDataContentType(), body)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func compress(t *testing.T, baseURL, body string) *http.Response {
	resp, err := http.Post(baseURL+"/api/compress", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for x := 0; x < 64; x++ {
		for y := 0; y < 64; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: uint8((x + y) * 2), A: 255})
		}
	}
	return img
}

func testPNG(t *testing.T) []byte {
	var buf bytes.Buffer
	require.NoError(t, (&png.Encoder{CompressionLevel: png.NoCompression}).Encode(&buf, testImage()))
	return buf.Bytes()
}

func testJPEG(t *testing.T) []byte {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(), &jpeg.Options{Quality: 100}))
	return buf.Bytes()
}

func testDOCX(t *testing.T) []byte {
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	entry, err := writer.CreateHeader(&zip.FileHeader{Name: "word/document.xml", Method: zip.Store})
	require.NoError(t, err)
	_, err = entry.Write([]byte(strings.Repeat("<w:p>hello</w:p>", 500)))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return buf.Bytes()
}

func TestServer_uploadCompressDownload(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content func(t *testing.T) []byte
		quality int
	}{
		{name: "png at low quality", file: "image.png", content: testPNG, quality: 30},
		{name: "png at high quality", file: "image.png", content: testPNG, quality: 90},
		{name: "jpeg", file: "photo.jpg", content: testJPEG, quality: 40},
		{name: "docx", file: "report.docx", content: testDOCX, quality: 70},
		{name: "pdf", file: "doc.pdf", content: testPDF, quality: 70},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t)
			content := tt.content(t)

			resp := uploadFile(t, srv.URL, tt.file, content)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			uploaded := decode[uploadResponse](t, resp)
			assert.NotEmpty(t, uploaded.FileID)
			assert.Equal(t, tt.file, uploaded.Filename)
			assert.Equal(t, int64(len(content)), uploaded.Size)

			body, err := json.Marshal(map[string]interface{}{"file_id": uploaded.FileID, "quality": tt.quality})
			require.NoError(t, err)
			resp = compress(t, srv.URL, string(body))
			require.Equal(t, http.StatusOK, resp.StatusCode)
			compressed := decode[compressResponse](t, resp)
			assert.Equal(t, uploaded.FileID, compressed.FileID)
			assert.Equal(t, int64(len(content)), compressed.OriginalSize)
			assert.Positive(t, compressed.CompressedSize)
			assert.Equal(t, srv.URL+"/api/download/"+uploaded.FileID, compressed.DownloadURL)

			download, err := http.Get(compressed.DownloadURL)
			require.NoError(t, err)
			defer download.Body.Close()
			require.Equal(t, http.StatusOK, download.StatusCode)
			assert.Contains(t, download.Header.Get("Content-Disposition"), tt.file)
			got, err := io.ReadAll(download.Body)
			require.NoError(t, err)
			assert.Equal(t, compressed.CompressedSize, int64(len(got)))
		})
	}
}

// testPDF builds a single page document whose body is padded with comment lines.
// Rewriting the document drops the comments.
func testPDF(t *testing.T) []byte {
	content := "0 0 m 100 100 l S"
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	buf.WriteString(strings.Repeat("% generated test document padding line\n", 200))

	offsets := make([]int, len(objects))
	for i, object := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, object)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, offset := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offset)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	require.Greater(t, buf.Len(), 8000)
	return buf.Bytes()
}

func TestServer_compressDefaultQuality(t *testing.T) {
	srv := newTestServer(t)

	resp := uploadFile(t, srv.URL, "photo.jpeg", testJPEG(t))
	uploaded := decode[uploadResponse](t, resp)

	resp = compress(t, srv.URL, `{"file_id":"`+uploaded.FileID+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	compressed := decode[compressResponse](t, resp)
	assert.Less(t, compressed.CompressedSize, compressed.OriginalSize)
	assert.Positive(t, compressed.ReductionPercentage)
}

func TestServer_uploadErrors(t *testing.T) {
	srv := newTestServer(t)

	t.Run("no file part", func(t *testing.T) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		require.NoError(t, writer.WriteField("other", "value"))
		require.NoError(t, writer.Close())

		resp, err := http.Post(srv.URL+"/api/upload", writer.FormDataContentType(), body)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "No file part", decode[errorResponse](t, resp).Error)
	})

	t.Run("not multipart", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/api/upload", "text/plain", strings.NewReader("hello"))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestServer_compressErrors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{name: "unknown file", body: `{"file_id":"missing","quality":50}`, wantStatus: http.StatusNotFound, wantError: "File not found"},
		{name: "invalid body", body: `not json`, wantStatus: http.StatusBadRequest, wantError: "Invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := compress(t, srv.URL, tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantError, decode[errorResponse](t, resp).Error)
		})
	}

	t.Run("empty file", func(t *testing.T) {
		resp := uploadFile(t, srv.URL, "empty.png", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		uploaded := decode[uploadResponse](t, resp)

		resp = compress(t, srv.URL, `{"file_id":"`+uploaded.FileID+`","quality":50}`)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "Cannot compress an empty file", decode[errorResponse](t, resp).Error)
	})

	t.Run("corrupt pdf", func(t *testing.T) {
		resp := uploadFile(t, srv.URL, "broken.pdf", []byte("%PDF-1.4 not really"))
		uploaded := decode[uploadResponse](t, resp)

		resp = compress(t, srv.URL, `{"file_id":"`+uploaded.FileID+`","quality":50}`)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})

	t.Run("corrupt image", func(t *testing.T) {
		resp := uploadFile(t, srv.URL, "broken.png", []byte("not a png"))
		uploaded := decode[uploadResponse](t, resp)

		resp = compress(t, srv.URL, `{"file_id":"`+uploaded.FileID+`","quality":50}`)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}

func TestServer_downloadNotCompressed(t *testing.T) {
	srv := newTestServer(t)

	resp := uploadFile(t, srv.URL, "doc.pdf", []byte("%PDF"))
	uploaded := decode[uploadResponse](t, resp)

	for _, id := range []string{uploaded.FileID, "missing"} {
		download, err := http.Get(srv.URL + "/api/download/" + id)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, download.StatusCode)
		_ = download.Body.Close()
	}
}

func TestServer_cors(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/compress", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func Test_reductionPercentage(t *testing.T) {
	assert.Equal(t, 0.0, reductionPercentage(0, 0))
	assert.Equal(t, 50.0, reductionPercentage(200, 100))
	assert.Equal(t, 33.33, reductionPercentage(3, 2))
	assert.Equal(t, -50.0, reductionPercentage(100, 150))
}

func Test_secureFilename(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "photo.jpg", want: "photo.jpg"},
		{name: "my photo.jpg", want: "my_photo.jpg"},
		{name: "../../etc/passwd", want: "passwd"},
		{name: `C:\Users\me\report.docx`, want: "report.docx"},
		{name: "...", want: "file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, secureFilename(tt.name))
		})
	}
}
