package engine

// Status enumerates the lifecycle states a download item reports.
type Status int

const (
	// StatusDownloading indicates bytes are being transferred for an item.
	StatusDownloading Status = iota
	// StatusFinished indicates an item completed and was written to disk.
	StatusFinished
	// StatusError indicates an item failed terminally within this pass.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusDownloading:
		return "downloading"
	case StatusFinished:
		return "finished"
	case StatusError:
		return "error"
	default:
		return ""
	}
}

// Event is one progress report from the download engine.
//
// Events for different items may interleave; the engine guarantees exactly
// one terminal event (finished or error) per submitted URL, delivered on a
// single channel.
type Event struct {
	Status    Status
	SourceURL string // URL the item was submitted under
	Title     string // track title as reported by the extractor
	Filename  string // path written by the engine (finished only)
	Message   string // failure detail (error only)

	DownloadedBytes int64
	TotalBytes      int64
	EstimatedBytes  int64 // extractor estimate when TotalBytes is unknown
}
