package workflow

import "github.com/bitrise-io/go-compressor/network"

// Session correlates an upload with the compression request that follows it.
type Session struct {
	// ID tags every request sent on behalf of the session. A new session always gets a new ID,
	// so responses carrying an older tag are recognised as stale.
	ID uint64
	// FileID is zero until an upload succeeds.
	FileID network.FileID
}

// HasFile ...
func (s Session) HasFile() bool {
	return !s.FileID.IsZero()
}
