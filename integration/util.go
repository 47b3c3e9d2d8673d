//go:build integration
// +build integration

package integration

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/bitrise-io/go-compressor/config"
	"github.com/bitrise-io/go-compressor/devserver"
	"github.com/bitrise-io/go-compressor/workflow"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/stretchr/testify/require"
)

var logger = log.NewLogger()

// apiBaseURL returns COMPRESSOR_API_URL when set, otherwise the URL of a local service started for the test.
func apiBaseURL(t *testing.T, envRepo env.Repository) string {
	if url := envRepo.Get(config.APIBaseURLKey); url != "" {
		return url
	}

	server, err := devserver.New(t.TempDir(), logger)
	require.NoError(t, err)
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)

	return srv.URL + "/api"
}

func checksumOf(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// eventView records the order of the view calls.
type eventView struct {
	mu     sync.Mutex
	events []string
}

func (v *eventView) record(event string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.events = append(v.events, event)
}

func (v *eventView) SetInputEnabled(enabled bool) {
	if enabled {
		v.record("input:on")
	} else {
		v.record("input:off")
	}
}

func (v *eventView) ShowFileInfo(string, int64) { v.record("file") }

func (v *eventView) ShowProgress(percent int, status string) {
	if percent == 100 {
		v.record("progress:100")
	}
}

func (v *eventView) HideProgress()                 { v.record("progress:hide") }
func (v *eventView) ShowResult(workflow.Result)    { v.record("result") }
func (v *eventView) Notify(notice workflow.Notice) { v.record("notice") }
func (v *eventView) Clear()                        { v.record("clear") }

func (v *eventView) recorded() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.events...)
}
