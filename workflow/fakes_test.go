package workflow

import (
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bitrise-io/go-compressor/network"
)

type fakeClient struct {
	uploadFn      func(ctx context.Context, params network.UploadParams) (network.UploadResponse, error)
	compressFn    func(ctx context.Context, params network.CompressParams) (network.CompressResponse, error)
	uploadCalls   int32
	compressCalls int32

	mu           sync.Mutex
	lastCompress network.CompressParams
}

func (f *fakeClient) Upload(ctx context.Context, params network.UploadParams) (network.UploadResponse, error) {
	atomic.AddInt32(&f.uploadCalls, 1)
	return f.uploadFn(ctx, params)
}

func (f *fakeClient) Compress(ctx context.Context, params network.CompressParams) (network.CompressResponse, error) {
	atomic.AddInt32(&f.compressCalls, 1)
	f.mu.Lock()
	f.lastCompress = params
	f.mu.Unlock()
	return f.compressFn(ctx, params)
}

func (f *fakeClient) uploads() int32 {
	return atomic.LoadInt32(&f.uploadCalls)
}

func (f *fakeClient) compressions() int32 {
	return atomic.LoadInt32(&f.compressCalls)
}

func (f *fakeClient) lastCompressParams() network.CompressParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastCompress
}

func uploadReturning(id string) func(context.Context, network.UploadParams) (network.UploadResponse, error) {
	return func(context.Context, network.UploadParams) (network.UploadResponse, error) {
		return network.UploadResponse{FileID: network.NewFileID(id)}, nil
	}
}

func compressReturning(resp network.CompressResponse) func(context.Context, network.CompressParams) (network.CompressResponse, error) {
	return func(context.Context, network.CompressParams) (network.CompressResponse, error) {
		return resp, nil
	}
}

type recordingView struct {
	mu sync.Mutex

	inputEnabled    bool
	fileInfoVisible bool
	progressVisible bool
	resultVisible   bool

	fileName string
	fileSize int64
	progress []int
	result   Result
	notices  []Notice
}

func newRecordingView() *recordingView {
	return &recordingView{inputEnabled: true}
}

func (v *recordingView) SetInputEnabled(enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.inputEnabled = enabled
}

func (v *recordingView) ShowFileInfo(name string, size int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fileInfoVisible = true
	v.fileName = name
	v.fileSize = size
}

func (v *recordingView) ShowProgress(percent int, status string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.progressVisible = true
	v.progress = append(v.progress, percent)
}

func (v *recordingView) HideProgress() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.progressVisible = false
}

func (v *recordingView) ShowResult(result Result) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.resultVisible = true
	v.result = result
}

func (v *recordingView) Notify(notice Notice) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notices = append(v.notices, notice)
}

func (v *recordingView) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fileInfoVisible = false
	v.progressVisible = false
	v.resultVisible = false
}

func (v *recordingView) progressUpdates() []int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]int(nil), v.progress...)
}

func (v *recordingView) lastProgress() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.progress) == 0 {
		return -1
	}
	return v.progress[len(v.progress)-1]
}

func (v *recordingView) noticeKinds() []NoticeKind {
	v.mu.Lock()
	defer v.mu.Unlock()
	var kinds []NoticeKind
	for _, n := range v.notices {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}

func (v *recordingView) allHidden() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.fileInfoVisible && !v.progressVisible && !v.resultVisible
}

func (v *recordingView) isInputEnabled() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.inputEnabled
}

func memoryFile(name string, size int64) File {
	return File{
		Name: name,
		Size: size,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(strings.Repeat("x", int(size)))), nil
		},
	}
}
