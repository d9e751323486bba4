package tasks

import "fmt"

// Phase identifies which stage of a sync run a progress update belongs to.
type Phase int

const (
	PhaseFetchPlaylist Phase = iota
	PhaseScanLibrary
	PhaseBuildQueue
	PhaseDownload
	PhaseRetry
	PhaseReport
)

func (p Phase) String() string {
	switch p {
	case PhaseFetchPlaylist:
		return "fetch playlist"
	case PhaseScanLibrary:
		return "scan library"
	case PhaseBuildQueue:
		return "build queue"
	case PhaseDownload:
		return "download"
	case PhaseRetry:
		return "retry"
	case PhaseReport:
		return "report"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ItemProgress carries byte-level progress for a single in-flight download.
type ItemProgress struct {
	Title string
	Done  int64
	Total int64
}

// ProgressUpdate is a single observable step in a sync run. Step and Total
// count completed items within the phase; Data carries per-item byte
// progress for download phases.
type ProgressUpdate struct {
	Phase   Phase
	Step    int
	Total   int
	Message string
	Data    *ItemProgress
}

func phaseUpdate(phase Phase, message string) ProgressUpdate {
	return ProgressUpdate{Phase: phase, Message: message}
}

func stepUpdate(phase Phase, step, total int, message string) ProgressUpdate {
	return ProgressUpdate{Phase: phase, Step: step, Total: total, Message: message}
}
