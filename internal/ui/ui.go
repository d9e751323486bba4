// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI drives a single sync run through two views:
//  1. [SyncView] : live progress with an overall bar for queue position and a byte bar for the active download
//  2. [ResultView] : the run summary, including any URLs that failed both passes
//
// The [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the Syncer, so a stalled
// terminal never blocks downloads.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kherzog/ytmsync/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	SyncView ViewState = iota
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	syncer       *tasks.Syncer
	width        int
	overallBar   progress.Model
	itemBar      progress.Model
	update       tasks.ProgressUpdate
	item         *tasks.ItemProgress
	progressChan chan tasks.ProgressUpdate
	result       *tasks.SyncResult
	err          error
	help         help.Model
	keys         keyMap
}

// keyMap defines the key bindings for the TUI.
type keyMap struct {
	quit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.quit}}
}

type progressUpdateMsg tasks.ProgressUpdate

type syncCompleteMsg struct {
	result *tasks.SyncResult
	err    error
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, syncer *tasks.Syncer) *Model {
	return &Model{
		ctx:        ctx,
		view:       SyncView,
		syncer:     syncer,
		overallBar: progress.New(progress.WithDefaultGradient()),
		itemBar:    progress.New(progress.WithSolidFill("#04B575")),
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

// Result returns the finished run's summary and error, for callers that need
// them after the program exits.
func (m *Model) Result() (*tasks.SyncResult, error) {
	return m.result, m.err
}

// Init starts the sync in a goroutine and begins pumping progress updates.
func (m *Model) Init() tea.Cmd {
	return m.startSync()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.overallBar.Width = msg.Width - 4
		m.itemBar.Width = msg.Width - 4
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
		return m, nil

	case progressUpdateMsg:
		m.update = tasks.ProgressUpdate(msg)
		// Updates without byte data mark a step boundary, so the byte bar
		// from the previous download comes down.
		m.item = m.update.Data
		return m, m.waitForProgress()

	case syncCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.view = ResultView
		return m, nil
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) startSync() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)

	go func() {
		result, err := m.syncer.Run(m.ctx, m.progressChan)
		m.result = result
		m.err = err
		close(m.progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		update, ok := <-m.progressChan
		if !ok {
			return syncCompleteMsg{result: m.result, err: m.err}
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderSync() string {
	title := styles.title.Render("Syncing Playlist")

	var phase string
	switch m.update.Phase {
	case tasks.PhaseFetchPlaylist:
		phase = "Fetching playlist..."
	case tasks.PhaseScanLibrary:
		phase = "Scanning local library..."
	case tasks.PhaseBuildQueue:
		phase = "Building download queue..."
	case tasks.PhaseDownload:
		phase = fmt.Sprintf("Downloading (%d/%d)", m.update.Step, m.update.Total)
	case tasks.PhaseRetry:
		phase = fmt.Sprintf("Retrying with cookies (%d/%d)", m.update.Step, m.update.Total)
	default:
		phase = "Working..."
	}

	var body strings.Builder
	body.WriteString(title)
	body.WriteString("\n\n")
	body.WriteString(phase)
	body.WriteString("\n")

	if m.update.Total > 0 {
		body.WriteString(m.overallBar.ViewAs(float64(m.update.Step) / float64(m.update.Total)))
		body.WriteString("\n")
	}
	if m.item != nil && m.item.Total > 0 {
		body.WriteString("\n")
		body.WriteString(m.item.Title)
		body.WriteString("\n")
		body.WriteString(m.itemBar.ViewAs(float64(m.item.Done) / float64(m.item.Total)))
		body.WriteString("\n")
	}
	if m.update.Message != "" {
		body.WriteString("\n")
		body.WriteString(styles.help.Render(m.update.Message))
	}

	body.WriteString("\n\n")
	body.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return body.String()
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Sync failed: %v\n\nPress q to quit", m.err))
	}

	if m.result == nil {
		return styles.err.Render("No result available\n\nPress q to quit")
	}

	title := styles.ok.Render("✓ Sync Complete")
	if m.result.NoNewTracks() {
		title = styles.ok.Render("✓ Library Up To Date")
	}

	info := fmt.Sprintf(
		"\nPlaylist: %s (%d tracks)\nLocal files: %d\nQueued: %d\nDownloaded: %d",
		m.result.Playlist.Name,
		m.result.TotalTracks,
		m.result.LocalFiles,
		m.result.Queued,
		m.result.Completed,
	)
	if m.result.Retried {
		info += fmt.Sprintf("\nRecovered on retry: %d", m.result.Recovered)
	}

	var failed string
	if len(m.result.PermanentFailures) > 0 {
		failed = fmt.Sprintf("\n\n%s", styles.warn.Render(fmt.Sprintf("Failed to download %d tracks:", len(m.result.PermanentFailures))))
		for _, url := range m.result.PermanentFailures {
			failed += fmt.Sprintf("\n  • %s", url)
		}
	}

	helpView := m.help.ShortHelpView(m.keys.ShortHelp())
	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, failed, helpView)
}
