package workflow

import "errors"

var (
	// ErrInvalidFileType is returned when the file name's extension is not on the allow-list.
	ErrInvalidFileType = errors.New("unsupported file type")
	// ErrBusy is returned when a file is selected while another one is in the workflow.
	ErrBusy = errors.New("a file is already being processed, reset first")
	// ErrNotReady is returned when compression is requested without a successfully uploaded file.
	ErrNotReady = errors.New("no uploaded file to compress")
	// ErrUploadFailed wraps transport and server failures of the upload.
	ErrUploadFailed = errors.New("upload failed")
	// ErrCompressionFailed wraps transport and server failures of the compression request.
	ErrCompressionFailed = errors.New("compression failed")
	// ErrStaleResponse is returned when a response arrives for a session that was reset meanwhile.
	ErrStaleResponse = errors.New("response belongs to a superseded session")
)
