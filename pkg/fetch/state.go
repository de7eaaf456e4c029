package fetch

// State is the processing state of a task.
//
//	Pending → Probing → Skipped
//	                  → Downloading → DownloadFailed
//	                                → Decompressing → DecompressFailed
//	                                                → Converting → ConvertFailed
//	                                                             → Done
type State int

// Task states.
const (
	StatePending State = iota
	StateProbing
	StateSkipped
	StateDownloading
	StateDownloadFailed
	StateDecompressing
	StateDecompressFailed
	StateConverting
	StateConvertFailed
	StateDone
)

func (s State) String() string {
	if s < StatePending || s > StateDone {
		return "unknown"
	}
	return [...]string{"pending", "probing", "skipped", "downloading", "download_failed",
		"decompressing", "decompress_failed", "converting", "convert_failed", "done"}[s]
}

// Terminal returns true if no further transition follows s.
func (s State) Terminal() bool {
	switch s {
	case StateSkipped, StateDownloadFailed, StateDecompressFailed, StateConvertFailed, StateDone:
		return true
	}
	return false
}

// Succeeded returns true for the final state of a successful task.
func (s State) Succeeded() bool {
	return s == StateDone
}

// failure returns the terminal state of a task that broke off in state s.
func (s State) failure() State {
	switch s {
	case StatePending, StateProbing:
		return StateSkipped
	case StateDownloading:
		return StateDownloadFailed
	case StateDecompressing:
		return StateDecompressFailed
	case StateConverting:
		return StateConvertFailed
	}
	return s
}
