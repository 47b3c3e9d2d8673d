package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bitrise-io/go-compressor/network"
	"github.com/bitrise-io/go-utils/v2/log"
)

const (
	statusUploading           = "Uploading file..."
	statusUploadComplete      = "Upload complete!"
	statusCompressing         = "Compressing..."
	statusCompressionComplete = "Compression complete!"
)

// Controller sequences file selection, upload, compression request, result display and reset.
// It holds at most one file at a time. All methods are safe for concurrent use.
type Controller struct {
	client         network.Client
	view           View
	logger         log.Logger
	progressConfig ProgressConfig

	mu            sync.Mutex
	state         State
	session       Session
	lastSessionID uint64
	fileName      string
	uploadPercent int
	progress      *simulatedProgress
}

// NewController creates a controller in the idle state with an empty session.
func NewController(client network.Client, view View, logger log.Logger, progressConfig ProgressConfig) *Controller {
	c := &Controller{
		client:         client,
		view:           view,
		logger:         logger,
		progressConfig: progressConfig.normalized(),
		state:          StateIdle,
	}
	c.beginSessionLocked()
	return c
}

// State ...
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns a snapshot of the active session.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// SelectFile validates the file type and uploads the file. It blocks until the upload finished.
// A file outside the allow-list is rejected with a notice and leaves the controller untouched.
func (c *Controller) SelectFile(ctx context.Context, file File) error {
	c.mu.Lock()
	if !c.state.acceptsInput() {
		state := c.state
		c.mu.Unlock()
		c.logger.Debugf("Selection of %s suppressed in state %s", file.Name, state)
		return fmt.Errorf("%w (state: %s)", ErrBusy, state)
	}
	if !IsAllowedFileType(file.Name) {
		c.view.Notify(newNotice(NoticeInvalidFileType, nil))
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", file.Name, ErrInvalidFileType)
	}

	session := c.beginSessionLocked()
	c.fileName = file.Name
	c.transitionLocked(StateUploading)
	c.view.ShowFileInfo(file.Name, file.Size)
	c.view.ShowProgress(0, statusUploading)
	c.mu.Unlock()

	return c.upload(ctx, session.ID, file)
}

func (c *Controller) upload(ctx context.Context, sessionID uint64, file File) error {
	resp, err := c.client.Upload(ctx, network.UploadParams{
		FileName: file.Name,
		Size:     file.Size,
		Open:     file.Open,
		OnProgress: func(sent, total int64) {
			c.reportUploadProgress(sessionID, sent, total)
		},
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isActiveLocked(sessionID, StateUploading) {
		c.logger.Warnf("Ignoring upload response of superseded session %d", sessionID)
		return ErrStaleResponse
	}

	if err == nil && resp.FileID.IsZero() {
		err = errors.New("service issued no file id")
	}
	if err != nil {
		c.logger.Errorf("Upload failed: %s", err)
		c.view.Notify(newNotice(NoticeUploadFailed, err))
		c.resetLocked()
		return fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	c.session.FileID = resp.FileID
	c.transitionLocked(StateReady)
	c.view.ShowProgress(100, statusUploadComplete)
	c.view.HideProgress()

	return nil
}

func (c *Controller) reportUploadProgress(sessionID uint64, sent, total int64) {
	if total <= 0 {
		return
	}

	percent := int(sent * 100 / total)
	// 100 is reserved for the server's confirmation
	if percent > 99 {
		percent = 99
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isActiveLocked(sessionID, StateUploading) || percent <= c.uploadPercent {
		return
	}
	c.uploadPercent = percent
	c.view.ShowProgress(percent, statusUploading)
}

// RequestCompression asks the service to compress the uploaded file and blocks until it answers.
// It issues no request unless a previous upload succeeded. The quality is passed through as is.
func (c *Controller) RequestCompression(ctx context.Context, quality int) (Result, error) {
	c.mu.Lock()
	if c.state != StateReady || !c.session.HasFile() {
		state := c.state
		c.mu.Unlock()
		return Result{}, fmt.Errorf("%w (state: %s)", ErrNotReady, state)
	}

	session := c.session
	fileName := c.fileName
	c.transitionLocked(StateCompressing)
	c.view.ShowProgress(0, statusCompressing)
	task := startSimulatedProgress(c.progressConfig, func(taskCtx context.Context, percent int) {
		c.mu.Lock()
		defer c.mu.Unlock()

		if taskCtx.Err() != nil || !c.isActiveLocked(session.ID, StateCompressing) {
			return
		}
		c.view.ShowProgress(percent, statusCompressing)
	})
	c.progress = task
	c.mu.Unlock()
	defer task.wait()

	c.logger.Debugf("Requesting compression of %s at quality %d", session.FileID, quality)
	resp, err := c.client.Compress(ctx, network.CompressParams{
		FileID:  session.FileID,
		Quality: quality,
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	task.stop()
	if c.progress == task {
		c.progress = nil
	}

	if !c.isActiveLocked(session.ID, StateCompressing) {
		c.logger.Warnf("Ignoring compression response of superseded session %d", session.ID)
		return Result{}, ErrStaleResponse
	}

	if err != nil {
		c.logger.Errorf("Compression failed: %s", err)
		c.view.Notify(newNotice(NoticeCompressionFailed, err))
		c.resetLocked()
		return Result{}, fmt.Errorf("%w: %w", ErrCompressionFailed, err)
	}

	result := Result{
		FileName:            fileName,
		OriginalSize:        resp.OriginalSize,
		CompressedSize:      resp.CompressedSize,
		ReductionPercentage: resp.ReductionPercentage,
		DownloadURL:         resp.DownloadURL,
	}
	c.transitionLocked(StateDone)
	c.view.ShowProgress(100, statusCompressionComplete)
	c.view.HideProgress()
	c.view.ShowResult(result)

	return result, nil
}

// Reset discards the session, hides every surface and returns to idle. Callable in any state;
// responses of requests still in flight are ignored when they arrive.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetLocked()
}

func (c *Controller) resetLocked() {
	if c.progress != nil {
		c.progress.stop()
		c.progress = nil
	}
	c.beginSessionLocked()
	c.fileName = ""
	c.transitionLocked(StateIdle)
	c.view.Clear()
}

func (c *Controller) beginSessionLocked() Session {
	c.lastSessionID++
	c.session = Session{ID: c.lastSessionID}
	c.uploadPercent = 0
	return c.session
}

func (c *Controller) isActiveLocked(sessionID uint64, state State) bool {
	return c.session.ID == sessionID && c.state == state
}

func (c *Controller) transitionLocked(to State) {
	from := c.state
	c.state = to
	if from.acceptsInput() != to.acceptsInput() {
		c.view.SetInputEnabled(to.acceptsInput())
	}
	c.logger.Debugf("Workflow state: %s -> %s", from, to)
}
