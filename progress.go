package rvth

// ProgressType identifies which long-running operation a ProgressCallback
// invocation reports on.
type ProgressType int

const (
	ProgressExtract ProgressType = iota
	ProgressImport
	ProgressRecrypt
	// ProgressVerify reports progress for the Verify operation;
	// Processed/Total count partitions, not LBAs.
	ProgressVerify
	// ProgressWADResign reports progress for wad.Resign's data-streaming
	// pass; Processed/Total count bytes copied, not LBAs, since a WAD's
	// data section isn't LBA-aligned.
	ProgressWADResign
)

func (t ProgressType) String() string {
	switch t {
	case ProgressExtract:
		return "extract"
	case ProgressImport:
		return "import"
	case ProgressRecrypt:
		return "recrypt"
	case ProgressVerify:
		return "verify"
	case ProgressWADResign:
		return "wad-resign"
	default:
		return "unknown"
	}
}

// ProgressState is what a ProgressCallback receives at each boundary.
type ProgressState struct {
	Type      ProgressType
	Processed uint32 // LBAs processed so far
	Total     uint32 // total LBAs for this operation

	// Bank identifies which bank or partition this update refers to, for
	// operations that process several.
	Bank int
}

// ProgressCallback is invoked at buffer boundaries and on completion. It
// returns false to request cancellation; the engine then stops I/O and
// returns ErrCancelled without leaving partial bank-table state.
//
// During Recrypt, a metadata-only pass reports Total==1: Processed==0
// means "starting," Processed==1 means "done."
type ProgressCallback func(state ProgressState) (cont bool)

// noopProgress is used internally whenever a caller passes a nil callback.
func noopProgress(ProgressState) bool { return true }

func callProgress(cb ProgressCallback, state ProgressState) bool {
	if cb == nil {
		return true
	}
	return cb(state)
}
