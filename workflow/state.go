package workflow

// State is a step of the upload/compress workflow.
type State int

const (
	// StateIdle waits for a file to be selected.
	StateIdle State = iota
	// StateUploading has a file transfer in flight.
	StateUploading
	// StateReady holds an accepted file id and waits for a compression request.
	StateReady
	// StateCompressing has a compression request in flight.
	StateCompressing
	// StateDone shows the compression result until reset.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateUploading:
		return "uploading"
	case StateReady:
		return "ready"
	case StateCompressing:
		return "compressing"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// acceptsInput reports whether the file input surface is enabled in the state.
func (s State) acceptsInput() bool {
	return s == StateIdle
}
