package tasks

import (
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/kherzog/ytmsync/internal/engine"
	"github.com/kherzog/ytmsync/internal/models"
)

// Appender persists a completed download to the playlist file.
type Appender interface {
	Append(filename string) error
}

// HistoryRecorder persists the outcome of one download attempt.
type HistoryRecorder interface {
	Record(entry models.HistoryEntry) error
}

// errorSet collects failed source URLs, deduplicated, in the order the
// failures were first observed.
type errorSet struct {
	order []string
	seen  map[string]struct{}
}

func newErrorSet() *errorSet {
	return &errorSet{seen: make(map[string]struct{})}
}

func (s *errorSet) add(url string) {
	if _, ok := s.seen[url]; ok {
		return
	}
	s.seen[url] = struct{}{}
	s.order = append(s.order, url)
}

func (s *errorSet) urls() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// byteTracker holds the latest byte counts reported for one download. Counts
// only move forward; stale or out-of-order events cannot regress them.
type byteTracker struct {
	title string
	done  int64
	total int64
}

func (t *byteTracker) observe(ev engine.Event) {
	if ev.Title != "" {
		t.title = ev.Title
	}
	if ev.DownloadedBytes > t.done {
		t.done = ev.DownloadedBytes
	}
	total := ev.TotalBytes
	if total == 0 {
		total = ev.EstimatedBytes
	}
	if total > t.total {
		t.total = total
	}
}

// Aggregator consumes engine events for one download pass, maintains
// per-item byte trackers and the failure set, appends completed items to
// the playlist file and records every outcome to history.
type Aggregator struct {
	logger   *log.Logger
	appender Appender
	recorder HistoryRecorder
	audioExt string

	pass      int
	total     int
	done      int
	succeeded int
	failures  *errorSet
	meta      map[string]WorkItem
	trackers  map[string]*byteTracker
}

func NewAggregator(logger *log.Logger, appender Appender, recorder HistoryRecorder, audioExt string) *Aggregator {
	return &Aggregator{
		logger:   logger,
		appender: appender,
		recorder: recorder,
		audioExt: audioExt,
	}
}

// BeginPass resets all per-pass state and registers the items about to be
// submitted so later events can be tied back to their tracks.
func (a *Aggregator) BeginPass(pass int, items []WorkItem) {
	a.pass = pass
	a.total = len(items)
	a.done = 0
	a.succeeded = 0
	a.failures = newErrorSet()
	a.meta = make(map[string]WorkItem, len(items))
	a.trackers = make(map[string]*byteTracker, len(items))
	for _, item := range items {
		a.meta[item.URL] = item
	}
}

// Handle folds one engine event into the pass state and returns the progress
// update the caller should surface. Exactly one terminal event is expected
// per submitted item, so after the pass drains, Done() equals the number of
// items handed to the engine.
func (a *Aggregator) Handle(ev engine.Event) ProgressUpdate {
	phase := PhaseDownload
	if a.pass > 1 {
		phase = PhaseRetry
	}

	switch ev.Status {
	case engine.StatusDownloading:
		tracker := a.tracker(ev)
		tracker.observe(ev)
		update := stepUpdate(phase, a.done, a.total, tracker.title)
		update.Data = &ItemProgress{Title: tracker.title, Done: tracker.done, Total: tracker.total}
		return update

	case engine.StatusFinished:
		a.done++
		a.succeeded++
		delete(a.trackers, trackerKey(ev))
		a.finish(ev)
		return stepUpdate(phase, a.done, a.total, a.title(ev))

	case engine.StatusError:
		a.done++
		a.failures.add(ev.SourceURL)
		delete(a.trackers, trackerKey(ev))
		a.fail(ev)
		return stepUpdate(phase, a.done, a.total, a.title(ev))
	}
	return stepUpdate(phase, a.done, a.total, "")
}

func (a *Aggregator) finish(ev engine.Event) {
	title := a.title(ev)
	filename := deriveFilename(ev.Filename, a.audioExt)
	if filename == "" {
		a.logger.Warn("download finished without a filename, skipping playlist append", "title", title, "url", ev.SourceURL)
	} else if err := a.appender.Append(filename); err != nil {
		a.logger.Error("failed to append to playlist file", "filename", filename, "error", err)
	}
	a.record(ev, title, filename, models.StatusCompleted)
	a.logger.Info("download complete", "title", title, "file", filename)
}

func (a *Aggregator) fail(ev engine.Event) {
	title := a.title(ev)
	a.record(ev, title, "", models.StatusFailed)
	a.logger.Error("download failed", "title", title, "url", ev.SourceURL, "error", ev.Message)
}

func (a *Aggregator) record(ev engine.Event, title, filename, status string) {
	if a.recorder == nil {
		return
	}
	entry := models.HistoryEntry{
		VideoID:   a.meta[ev.SourceURL].VideoID,
		Title:     title,
		Filename:  filename,
		SourceURL: ev.SourceURL,
		Status:    status,
		Pass:      a.pass,
	}
	if err := a.recorder.Record(entry); err != nil {
		a.logger.Error("failed to record download history", "title", title, "error", err)
	}
}

// trackerKey identifies an event's download, preferring the source URL so
// concurrent downloads never share counters.
func trackerKey(ev engine.Event) string {
	if ev.SourceURL != "" {
		return ev.SourceURL
	}
	if ev.Title != "" {
		return ev.Title
	}
	return "unknown"
}

// tracker returns the byte tracker for an event.
func (a *Aggregator) tracker(ev engine.Event) *byteTracker {
	key := trackerKey(ev)
	t, ok := a.trackers[key]
	if !ok {
		t = &byteTracker{title: a.title(ev)}
		a.trackers[key] = t
	}
	return t
}

// title resolves the best known title for an event, preferring the event's
// own, then the queued track's, then the placeholder.
func (a *Aggregator) title(ev engine.Event) string {
	if ev.Title != "" {
		return ev.Title
	}
	if item, ok := a.meta[ev.SourceURL]; ok && item.Title != "" {
		return item.Title
	}
	return unknownTitle
}

// Done reports how many terminal events the pass has absorbed.
func (a *Aggregator) Done() int { return a.done }

// Succeeded reports how many items finished cleanly this pass.
func (a *Aggregator) Succeeded() int { return a.succeeded }

// Failures returns the failed source URLs in first-failure order.
func (a *Aggregator) Failures() []string {
	if a.failures == nil {
		return nil
	}
	return a.failures.urls()
}

// deriveFilename maps the path reported by the downloader to the playlist
// entry name: the base name with its extension replaced by the configured
// audio extension, since post-processing converts the fetched stream.
func deriveFilename(path, ext string) string {
	if path == "" {
		return ""
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ext
}
