// package engine wraps yt-dlp as a batch audio download mechanism.
//
// One subprocess is spawned per URL; progress lines printed by yt-dlp are
// parsed into [Event] values and delivered on a single channel, so consumers
// see a serialized stream even when fetches overlap.
package engine

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// progressMarker prefixes every template line so engine output can be told
// apart from anything else yt-dlp writes to stdout.
const progressMarker = "ytmsync"

// progressTemplate is passed to yt-dlp's --progress-template flag. Fields
// are tab separated with the title last, since titles are the only field
// that can contain arbitrary text.
const progressTemplate = "download:" + progressMarker +
	"\t%(progress.status)s" +
	"\t%(progress.downloaded_bytes)s" +
	"\t%(progress.total_bytes)s" +
	"\t%(progress.total_bytes_estimate)s" +
	"\t%(progress.filename)s" +
	"\t%(info.title)s"

// Options configures a [Downloader].
type Options struct {
	BinPath      string  // yt-dlp executable, defaults to "yt-dlp" on PATH
	AudioFormat  string  // target codec, defaults to "mp3"
	AudioQuality string  // target quality, defaults to "320"
	TargetDir    string  // directory media files are written into
	CookieFile   string  // optional Netscape cookie export for authenticated fetches
	IgnoreErrors bool    // continue past failed items rather than aborting the batch
	Concurrency  int     // max overlapping fetches, defaults to 1
	RateLimit    float64 // max fetch starts per second, defaults to 1
}

func (o *Options) applyDefaults() {
	if o.BinPath == "" {
		o.BinPath = "yt-dlp"
	}
	if o.AudioFormat == "" {
		o.AudioFormat = "mp3"
	}
	if o.AudioQuality == "" {
		o.AudioQuality = "320"
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.RateLimit <= 0 {
		o.RateLimit = 1.0
	}
}

// Downloader drives yt-dlp over a list of URLs.
type Downloader struct {
	opts   Options
	logger *log.Logger
}

// New creates a Downloader with the given options. Zero-valued option
// fields are filled with defaults.
func New(opts Options, logger *log.Logger) *Downloader {
	opts.applyDefaults()
	return &Downloader{opts: opts, logger: logger}
}

// Run downloads every URL in order of submission, emitting events on the
// provided channel. Run owns the channel and closes it once all items have
// reported a terminal event.
//
// With Options.IgnoreErrors set, per-item failures surface only as error
// events and Run returns nil unless the context is cancelled.
func (d *Downloader) Run(ctx context.Context, urls []string, events chan<- Event) error {
	defer close(events)

	limiter := rate.NewLimiter(rate.Limit(d.opts.RateLimit), 1)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Concurrency)

	for _, u := range urls {
		u := u
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return err
			}
			err := d.fetch(gctx, u, events)
			if d.opts.IgnoreErrors {
				return nil
			}
			return err
		})
	}

	return g.Wait()
}

// fetch runs one yt-dlp process for a single URL and translates its output
// into events. Exactly one terminal event is emitted per call.
func (d *Downloader) fetch(ctx context.Context, url string, events chan<- Event) error {
	cmd := exec.CommandContext(ctx, d.opts.BinPath, d.buildArgs(url)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return d.emit(ctx, events, Event{Status: StatusError, SourceURL: url, Message: err.Error()})
	}

	if err := cmd.Start(); err != nil {
		return d.emit(ctx, events, Event{Status: StatusError, SourceURL: url,
			Message: fmt.Sprintf("%v: failed to start %s", err, d.opts.BinPath)})
	}

	var title, filename string
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		ev, ok := parseProgressLine(scanner.Text(), url)
		if !ok {
			continue
		}
		if ev.Title != "" {
			title = ev.Title
		}
		if ev.Filename != "" {
			filename = ev.Filename
		}
		if ev.Status == StatusDownloading {
			if err := d.emit(ctx, events, ev); err != nil {
				cmd.Wait()
				return err
			}
		}
		// "finished" progress lines fire per download stage; the single
		// terminal event is derived from the process exit below.
	}

	if err := cmd.Wait(); err != nil {
		msg := lastLine(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		if d.logger != nil {
			d.logger.Error("download failed", "url", url, "error", msg)
		}
		return d.emit(ctx, events, Event{Status: StatusError, SourceURL: url, Title: title, Message: msg})
	}

	return d.emit(ctx, events, Event{Status: StatusFinished, SourceURL: url, Title: title, Filename: filename})
}

// emit delivers an event unless the context is cancelled first.
func (d *Downloader) emit(ctx context.Context, events chan<- Event, ev Event) error {
	select {
	case events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// buildArgs assembles the yt-dlp argv for a single URL.
func (d *Downloader) buildArgs(url string) []string {
	args := []string{
		"--newline",
		"--no-playlist",
		"--format", "bestaudio/best",
		"--extract-audio",
		"--audio-format", d.opts.AudioFormat,
		"--audio-quality", d.opts.AudioQuality,
		"--embed-thumbnail",
		"--embed-metadata",
		"--progress-template", progressTemplate,
	}

	if d.opts.TargetDir != "" {
		args = append(args, "--paths", "home:"+d.opts.TargetDir)
	}
	if d.opts.CookieFile != "" {
		args = append(args, "--cookies", d.opts.CookieFile)
	}

	return append(args, url)
}

// parseProgressLine decodes one templated progress line. Lines that do not
// carry the engine marker are ignored.
func parseProgressLine(line, url string) (Event, bool) {
	if !strings.HasPrefix(line, progressMarker+"\t") {
		return Event{}, false
	}

	// status, downloaded, total, estimate, filename, title
	fields := strings.SplitN(line[len(progressMarker)+1:], "\t", 6)
	if len(fields) < 1 {
		return Event{}, false
	}

	ev := Event{SourceURL: url}
	switch fields[0] {
	case "finished":
		ev.Status = StatusFinished
	case "error":
		ev.Status = StatusError
	default:
		ev.Status = StatusDownloading
	}

	if len(fields) > 1 {
		ev.DownloadedBytes = parseBytes(fields[1])
	}
	if len(fields) > 2 {
		ev.TotalBytes = parseBytes(fields[2])
	}
	if len(fields) > 3 {
		ev.EstimatedBytes = parseBytes(fields[3])
	}
	if len(fields) > 4 && fields[4] != "NA" {
		ev.Filename = fields[4]
	}
	if len(fields) > 5 && fields[5] != "NA" {
		ev.Title = fields[5]
	}

	return ev, true
}

// parseBytes converts a template byte field to int64. yt-dlp prints "NA"
// for unknown values and may render floats for estimates.
func parseBytes(s string) int64 {
	if s == "" || s == "NA" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}

// lastLine returns the final non-empty line of s.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
