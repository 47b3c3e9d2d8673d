package workflow

import "encoding/json"

// View is the user-facing surface the controller drives.
// The controller calls it while holding its lock: calls are totally ordered,
// and an implementation must not call back into the Controller.
type View interface {
	// SetInputEnabled enables or disables the file selection surface.
	SetInputEnabled(enabled bool)
	ShowFileInfo(name string, size int64)
	ShowProgress(percent int, status string)
	HideProgress()
	ShowResult(result Result)
	// Notify presents a blocking notice to the user.
	Notify(notice Notice)
	// Clear hides the file info, progress and result surfaces.
	Clear()
}

// Result is the outcome of a compression, exactly as the service reported it.
type Result struct {
	FileName            string
	OriginalSize        int64
	CompressedSize      int64
	ReductionPercentage json.Number
	DownloadURL         string
}

// NoticeKind ...
type NoticeKind int

const (
	// NoticeInvalidFileType is shown when a file outside the allow-list is selected.
	NoticeInvalidFileType NoticeKind = iota
	// NoticeUploadFailed ...
	NoticeUploadFailed
	// NoticeCompressionFailed ...
	NoticeCompressionFailed
)

// Notice is a user-visible message about a failed step.
type Notice struct {
	Kind    NoticeKind
	Message string
	Err     error
}

func newNotice(kind NoticeKind, err error) Notice {
	var message string
	switch kind {
	case NoticeInvalidFileType:
		message = "Please upload a supported file type (JPEG, PNG, PDF, or DOCX)"
	case NoticeUploadFailed:
		message = "Failed to upload file. Please try again."
	case NoticeCompressionFailed:
		message = "An error occurred during compression."
	}
	return Notice{Kind: kind, Message: message, Err: err}
}
