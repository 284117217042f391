// Package tui provides a Bubble Tea terminal user interface for tmx-downloader.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tmx-tools/tmx-downloader/internal/config"
	"github.com/tmx-tools/tmx-downloader/internal/download"
	"github.com/tmx-tools/tmx-downloader/internal/tmx"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3FA7FF")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	packStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))

	keywordStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4ECDC4"))
)

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateInitializing
	StateDownloading
	StateComplete
	StateError
)

// Input fields, in focus order.
const (
	inputLink = iota
	inputFolder
	inputCount
)

const maxLogs = 10

var errCancelled = errors.New("cancelled by user")

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state    State
	inputs   []textinput.Model
	focus    int
	spinner  spinner.Model
	progress progress.Model
	settings *config.Settings
	logs     []LogEntry
	packInfo string
	inputErr string
	showHelp bool
	err      error

	// Download context
	ctx    context.Context
	cancel context.CancelFunc

	// Download manager reference and its event stream
	manager *download.Manager
	events  chan download.ProgressEvent

	stats download.Stats

	// Options
	playlist bool
	shuffle  bool
	metadata bool
	verbose  bool

	width  int
	height int
}

// NewModel creates a new TUI model. Options start from settings.
func NewModel(settings *config.Settings) Model {
	if settings == nil {
		settings = config.DefaultSettings()
	}

	link := textinput.New()
	link.Placeholder = "https://tmnf.exchange/tracksearch?query=... or a trackpack id"
	link.CharLimit = 1000
	link.Width = 60
	link.Focus()

	folder := textinput.New()
	folder.Placeholder = settings.DownloadsPath
	folder.CharLimit = 500
	folder.Width = 60

	count := textinput.New()
	count.Placeholder = "all"
	count.CharLimit = 8
	count.Width = 10
	if settings.MaxTracks > 0 {
		count.SetValue(fmt.Sprint(settings.MaxTracks))
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#3FA7FF"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:    StateInput,
		inputs:   []textinput.Model{link, folder, count},
		spinner:  sp,
		progress: prog,
		settings: settings,
		logs:     make([]LogEntry, 0),
		ctx:      ctx,
		cancel:   cancel,
		events:   make(chan download.ProgressEvent, 256),
		playlist: settings.CreatePlaylist,
		shuffle:  settings.Shuffle,
		metadata: settings.SaveMetadata,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// ProgressMsg is sent for every manager progress event.
	ProgressMsg struct {
		Event download.ProgressEvent
	}

	// InitDoneMsg is sent when initialization completes.
	InitDoneMsg struct {
		PackInfo string
		Manager  *download.Manager
		Err      error
	}

	// DownloadDoneMsg is sent when all downloads complete.
	DownloadDoneMsg struct {
		Stats download.Stats
		Err   error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}

	// eventsStoppedMsg ends the event loop of a cancelled or reset run.
	eventsStoppedMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		if m.state == StateInput {
			if cmd, handled := m.handleInputKey(msg); handled {
				return m, cmd
			}
			break
		}

		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateDownloading || m.state == StateInitializing {
				m.cancel()
				m.state = StateError
				m.err = errCancelled
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				m.reset()
				return m, textinput.Blink
			}
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		cmds = append(cmds, m.waitForEvent())
		// Filter verbose messages if not in verbose mode
		if msg.Event.Level == download.LevelVerbose && !m.verbose {
			break
		}
		m.logs = append(m.logs, LogEntry{
			Message: msg.Event.Message,
			Level:   msg.Event.Level,
		})
		if len(m.logs) > maxLogs {
			m.logs = m.logs[len(m.logs)-maxLogs:]
		}

	case InitDoneMsg:
		if m.state != StateInitializing {
			break
		}
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
		} else {
			m.packInfo = msg.PackInfo
			m.manager = msg.Manager
			m.state = StateDownloading
			// Start the actual download and tick for progress updates
			cmds = append(cmds, m.startDownload(), m.tickProgress())
		}

	case DownloadDoneMsg:
		if m.state != StateDownloading {
			break
		}
		m.stats = msg.Stats
		switch {
		case m.ctx.Err() != nil:
			m.state = StateError
			m.err = errCancelled
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
		}

	case TickMsg:
		// Update progress from manager
		if m.manager != nil && m.state == StateDownloading {
			m.stats = m.manager.GetProgress()
			cmds = append(cmds, m.progress.SetPercent(percentOf(m.stats)), m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	// Update the focused text input
	if m.state == StateInput {
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// handleInputKey handles keys on the input screen. Keys it does not
// handle are typed into the focused field.
func (m *Model) handleInputKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.cancel()
		return tea.Quit, true

	case "tab", "down":
		m.setFocus((m.focus + 1) % len(m.inputs))
		return nil, true

	case "shift+tab", "up":
		m.setFocus((m.focus + len(m.inputs) - 1) % len(m.inputs))
		return nil, true

	case "enter":
		return m.submit(), true

	case "f1":
		m.showHelp = !m.showHelp
		return nil, true

	case "?":
		// "?" is part of every search link, so it only opens help from an
		// empty field.
		if m.inputs[m.focus].Value() == "" {
			m.showHelp = !m.showHelp
			return nil, true
		}

	case "ctrl+p":
		m.playlist = !m.playlist
		return nil, true

	case "ctrl+r":
		m.shuffle = !m.shuffle
		return nil, true

	case "ctrl+e":
		m.metadata = !m.metadata
		return nil, true

	case "ctrl+o":
		m.verbose = !m.verbose
		return nil, true
	}
	return nil, false
}

func (m *Model) setFocus(i int) {
	m.inputs[m.focus].Blur()
	m.focus = i
	m.inputs[m.focus].Focus()
}

// submit validates the inputs and starts initialization.
func (m *Model) submit() tea.Cmd {
	link := strings.TrimSpace(m.inputs[inputLink].Value())
	if link == "" {
		m.inputErr = "enter a search link or a trackpack id"
		m.setFocus(inputLink)
		return nil
	}
	if _, isPack := download.ParsePackID(link); !isPack && !tmx.IsSearchLink(link) {
		m.inputErr = fmt.Sprintf("%q is not a search link or a trackpack id", link)
		m.setFocus(inputLink)
		return nil
	}

	count, err := config.ParseTrackCount(m.inputs[inputCount].Value())
	if err != nil {
		m.inputErr = err.Error()
		m.setFocus(inputCount)
		return nil
	}

	settings := *m.settings
	settings.SetOutputFolder(strings.TrimSpace(m.inputs[inputFolder].Value()))
	settings.MaxTracks = count
	settings.CreatePlaylist = m.playlist
	settings.Shuffle = m.shuffle
	settings.SaveMetadata = m.metadata

	m.inputErr = ""
	m.showHelp = false
	m.state = StateInitializing
	return tea.Batch(m.initializeDownload(link, &settings), m.waitForEvent(), m.spinner.Tick)
}

func (m *Model) reset() {
	m.cancel()
	m.state = StateInput
	m.logs = nil
	m.packInfo = ""
	m.err = nil
	m.stats = download.Stats{}
	m.manager = nil
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.events = make(chan download.ProgressEvent, 256)
	m.inputs[inputLink].SetValue("")
	m.setFocus(inputLink)
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// waitForEvent delivers the next manager event as a ProgressMsg. It stops
// once the run's context is done.
func (m Model) waitForEvent() tea.Cmd {
	ctx, events := m.ctx, m.events
	return func() tea.Msg {
		select {
		case event := <-events:
			return ProgressMsg{Event: event}
		case <-ctx.Done():
			return eventsStoppedMsg{}
		}
	}
}

func percentOf(s download.Stats) float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Done()) / float64(s.Total)
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("TMX Downloader"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Download tracks from TrackMania Exchange"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		if m.showHelp {
			b.WriteString(m.viewHelp())
		} else {
			b.WriteString(m.viewInput())
		}
	case StateInitializing:
		b.WriteString(m.viewInitializing())
	case StateDownloading:
		b.WriteString(m.viewDownloading())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func (m Model) viewInput() string {
	var b strings.Builder

	labels := []string{"Search link or trackpack id:", "Output folder (optional):", "Number of tracks (number or all):"}
	for i, input := range m.inputs {
		b.WriteString(subtitleStyle.Render(labels[i]))
		b.WriteString("\n")
		b.WriteString(input.View())
		b.WriteString("\n\n")
	}

	if m.inputErr != "" {
		b.WriteString(errorStyle.Render(m.inputErr))
		b.WriteString("\n\n")
	}

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s Create playlist (ctrl+p)\n", checkbox(m.playlist)))
	b.WriteString(fmt.Sprintf("  %s Shuffle (ctrl+r)\n", checkbox(m.shuffle)))
	b.WriteString(fmt.Sprintf("  %s Save metadata (ctrl+e)\n", checkbox(m.metadata)))
	b.WriteString(fmt.Sprintf("  %s Verbose output (ctrl+o)\n", checkbox(m.verbose)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Exchange: %s", m.settings.Exchange)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewHelp() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Search keywords:"))
	b.WriteString("\n\n")
	for _, kw := range tmx.SearchHelp {
		b.WriteString(fmt.Sprintf("  %s %s\n", keywordStyle.Render(fmt.Sprintf("%-24s", kw.Keyword)), kw.Description))
	}
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render("Examples:"))
	b.WriteString("\n")
	for _, link := range tmx.ExampleLinks {
		b.WriteString("  " + link + "\n")
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("A number instead of a link downloads that trackpack."))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewInitializing() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Fetching track list..."))
	b.WriteString("\n\n")

	// Show logs
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	if m.packInfo != "" {
		b.WriteString(packStyle.Render(m.packInfo))
		b.WriteString("\n\n")
	}

	b.WriteString(m.progress.ViewAs(percentOf(m.stats)))
	b.WriteString("\n")

	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Tracks: %d/%d | Skipped: %d | Failed: %d | Downloaded: %.2f MB",
		m.stats.Done(),
		m.stats.Total,
		m.stats.Skipped,
		m.stats.Failed,
		float64(m.stats.ReceivedBytes)/1024/1024,
	)))
	b.WriteString("\n\n")

	// Logs
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var b strings.Builder

	box := boxStyle.Render(fmt.Sprintf(
		"Download complete!\n\n"+
			"%s\n"+
			"Downloaded: %d\n"+
			"Skipped: %d\n"+
			"Failed: %d\n"+
			"Size: %.2f MB",
		m.packInfo,
		m.stats.Downloaded,
		m.stats.Skipped,
		m.stats.Failed,
		float64(m.stats.ReceivedBytes)/1024/1024,
	))
	b.WriteString(box)
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "-"
		switch log.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "x"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "+"
		case download.LevelInfo:
			style = infoStyle
			prefix = ">"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateInput:
		if m.showHelp {
			return "?/f1: close help • esc: quit"
		}
		return "enter: start • tab: next field • ?/f1: search help • esc: quit"
	case StateInitializing, StateDownloading:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new download • q: quit"
	}
	return ""
}

// initializeDownload creates the manager and fetches the track list.
func (m Model) initializeDownload(input string, settings *config.Settings) tea.Cmd {
	ctx, events := m.ctx, m.events
	return func() tea.Msg {
		// Drop events when the UI falls behind.
		manager := download.NewManager(settings, func(event download.ProgressEvent) {
			select {
			case events <- event:
			default:
			}
		})

		if err := manager.Initialize(ctx, input); err != nil {
			return InitDoneMsg{Err: err}
		}

		pack := manager.Pack()
		info := fmt.Sprintf("%s: %d tracks -> %s", pack.Name, len(pack.Tracks), pack.Path)
		return InitDoneMsg{PackInfo: info, Manager: manager}
	}
}

// startDownload starts the actual download in background.
func (m Model) startDownload() tea.Cmd {
	ctx, manager := m.ctx, m.manager
	return func() tea.Msg {
		if manager == nil {
			return DownloadDoneMsg{Err: errors.New("no manager")}
		}

		err := manager.StartDownloads(ctx)
		return DownloadDoneMsg{Stats: manager.GetProgress(), Err: err}
	}
}

// Run starts the TUI application.
func Run(settings *config.Settings) error {
	p := tea.NewProgram(NewModel(settings), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
