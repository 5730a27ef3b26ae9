package upload

import "github.com/google/uuid"

// PreviewSize is how large an entry's preview renders.
type PreviewSize int

const (
	// SizeAuto picks SizeSmall for multi-file fields and SizeRegular otherwise.
	SizeAuto PreviewSize = iota
	SizeRegular
	SizeSmall
	SizeTiny
)

func (s PreviewSize) String() string {
	switch s {
	case SizeRegular:
		return "regular"
	case SizeSmall:
		return "small"
	case SizeTiny:
		return "tiny"
	default:
		return "auto"
	}
}

// State of an entry.
type State int

const (
	// StatePending: the file is uploading.
	StatePending State = iota
	// StateFailed: the upload failed; the file and error stay for display.
	StateFailed
	// StateSettled: the entry holds its final location.
	StateSettled
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateFailed:
		return "failed"
	case StateSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// Entry is one item of an upload field. A settled entry carries Location and
// no File; a pending or failed entry carries File and no Location.
type Entry struct {
	ID       string
	Location string // storage path or download URL
	File     File
	FileName string
	Err      error
	Metadata map[string]string
	Size     PreviewSize
}

// State derives the entry state from its fields.
func (e Entry) State() State {
	switch {
	case e.Location != "":
		return StateSettled
	case e.Err != nil:
		return StateFailed
	default:
		return StatePending
	}
}

// SettledEntry builds an entry for an already stored location.
func SettledEntry(location string, metadata map[string]string, size PreviewSize) Entry {
	return Entry{ID: uuid.NewString(), Location: location, Metadata: metadata, Size: size}
}

// PendingEntry builds an entry for a file about to be uploaded.
func PendingEntry(f File, fileName string, metadata map[string]string, size PreviewSize) Entry {
	return Entry{ID: uuid.NewString(), File: f, FileName: fileName, Metadata: metadata, Size: size}
}
