package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/herbtrace/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/herbtrace/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/herbtrace/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/herbtrace/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/herbtrace/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/herbtrace/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	styles *styles.Styles
	keymap *keymap.KeyMap

	statusBar  *status.Bar
	recordList *list.RecordList
	spinner    spinner.Model

	// updates receives snapshots pushed by the StatusService. It holds at
	// most one pending snapshot; older ones are dropped.
	updates     chan domain.SyncSnapshot
	unsubscribe func()

	snapshot    domain.SyncSnapshot
	lastCycle   *domain.CycleResult
	syncing     bool
	currentView messages.ViewType

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has received its first window size.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Syncing

	a := &App{
		ports:       ports,
		ctx:         context.Background(),
		styles:      s,
		keymap:      km,
		statusBar:   status.NewBar(s, km),
		recordList:  list.NewRecordList(s),
		spinner:     sp,
		updates:     make(chan domain.SyncSnapshot, 1),
		currentView: messages.ViewDashboard,
	}
	a.unsubscribe = ports.Status.Subscribe(a.push)
	return a, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// push hands a snapshot to the program loop without blocking the publisher.
func (a *App) push(snap domain.SyncSnapshot) {
	select {
	case a.updates <- snap:
		return
	default:
	}
	// Replace the stale pending snapshot.
	select {
	case <-a.updates:
	default:
	}
	select {
	case a.updates <- snap:
	default:
	}
}

// waitForSnapshot blocks until the next pushed snapshot arrives.
func (a *App) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		select {
		case snap := <-a.updates:
			return messages.SnapshotUpdated{Snapshot: snap}
		case <-a.ctx.Done():
			return messages.Quit{}
		}
	}
}

// initialSnapshot is the snapshot read at startup. Unlike SnapshotUpdated
// it does not re-arm waitForSnapshot.
type initialSnapshot struct {
	snapshot domain.SyncSnapshot
}

// loadSnapshot reads the current snapshot once.
func (a *App) loadSnapshot() tea.Cmd {
	return func() tea.Msg {
		snap, err := a.ports.Status.GetSnapshot(a.ctx)
		if err != nil {
			return messages.ErrorOccurred{Err: err}
		}
		return initialSnapshot{snapshot: snap}
	}
}

// loadRecords reads the queue for the queue view.
func (a *App) loadRecords() tea.Cmd {
	if a.ports.Queue == nil {
		return nil
	}
	return func() tea.Msg {
		records, err := a.ports.Queue.Records(a.ctx)
		return messages.RecordsLoaded{Records: records, Err: err}
	}
}

// triggerSync runs one sync cycle in the background.
func (a *App) triggerSync() tea.Cmd {
	return func() tea.Msg {
		err := a.ports.Sync.TriggerSync(a.ctx)
		return messages.SyncFinished{Result: a.ports.Sync.Status().LastCycle, Err: err}
	}
}

// retryFailed resets exhausted records.
func (a *App) retryFailed() tea.Cmd {
	return func() tea.Msg {
		n, err := a.ports.Sync.RetryFailed(a.ctx)
		return messages.RetryFinished{Reset: n, Err: err}
	}
}

// Init implements tea.Model.
// It runs initial commands when the program starts.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("herbtrace - sync status"),
		a.loadSnapshot(),
		a.waitForSnapshot(),
		a.spinner.Tick,
	)
}

// Update implements tea.Model.
// It handles messages and updates the model state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		a.ready = true
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case initialSnapshot:
		a.applySnapshot(msg.snapshot)
		return a, nil

	case messages.SnapshotUpdated:
		a.applySnapshot(msg.Snapshot)
		cmds := []tea.Cmd{a.waitForSnapshot()}
		if a.currentView == messages.ViewQueue {
			cmds = append(cmds, a.loadRecords())
		}
		return a, tea.Batch(cmds...)

	case messages.RecordsLoaded:
		if msg.Err != nil {
			a.setError(msg.Err)
			return a, nil
		}
		a.recordList.SetRecords(msg.Records)
		return a, nil

	case messages.SyncFinished:
		a.syncing = false
		if msg.Err != nil {
			a.setError(msg.Err)
			return a, nil
		}
		result := msg.Result
		a.lastCycle = &result
		a.statusBar.SetMessage(fmt.Sprintf("Synced %d of %d submissions", result.Synced, result.Submitted))
		return a, nil

	case messages.RetryFinished:
		if msg.Err != nil {
			a.setError(msg.Err)
			return a, nil
		}
		a.statusBar.SetMessage(fmt.Sprintf("Reset %d records", msg.Reset))
		return a, a.loadRecords()

	case messages.ViewChanged:
		return a, a.switchView(msg.View)

	case messages.ErrorOccurred:
		a.setError(msg.Err)
		return a, nil

	case messages.Quit:
		return a, tea.Quit
	}

	return a, nil
}

// handleKey dispatches a key press.
func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()

	switch {
	case keymap.Matches(k, a.keymap.Quit):
		return a, tea.Quit

	case keymap.Matches(k, a.keymap.Help):
		return a, a.switchView(messages.ViewHelp)

	case keymap.Matches(k, a.keymap.Back):
		return a, a.switchView(messages.ViewDashboard)

	case keymap.Matches(k, a.keymap.Queue):
		if a.currentView == messages.ViewQueue {
			return a, a.switchView(messages.ViewDashboard)
		}
		return a, a.switchView(messages.ViewQueue)

	case keymap.Matches(k, a.keymap.Sync):
		if a.ports.Sync == nil {
			a.setError(ErrSyncUnavailable)
			return a, nil
		}
		if a.syncing {
			return a, nil
		}
		a.syncing = true
		a.err = nil
		a.statusBar.Clear()
		return a, a.triggerSync()

	case keymap.Matches(k, a.keymap.Retry):
		if a.ports.Sync == nil {
			a.setError(ErrSyncUnavailable)
			return a, nil
		}
		return a, a.retryFailed()

	case keymap.Matches(k, a.keymap.Refresh):
		return a, a.loadRecords()
	}

	if a.currentView == messages.ViewQueue {
		a.recordList, _ = a.recordList.Update(msg)
	}
	return a, nil
}

// switchView changes the active view and loads any data it needs.
func (a *App) switchView(view messages.ViewType) tea.Cmd {
	if view == messages.ViewQueue && a.ports.Queue == nil {
		return nil
	}
	a.currentView = view

	switch view {
	case messages.ViewQueue:
		a.statusBar.SetState(status.StateQueue)
		return a.loadRecords()
	case messages.ViewHelp:
		a.statusBar.SetState(status.StateHelp)
	case messages.ViewDashboard:
		a.statusBar.SetState(status.StateReady)
		a.statusBar.SetSnapshot(a.snapshot)
	}
	return nil
}

func (a *App) applySnapshot(snap domain.SyncSnapshot) {
	a.snapshot = snap
	a.statusBar.SetSnapshot(snap)
}

func (a *App) setError(err error) {
	a.err = err
	a.statusBar.SetState(status.StateError)
	a.statusBar.SetMessage(err.Error())
}

// View implements tea.Model.
func (a *App) View() string {
	var body string
	switch a.currentView {
	case messages.ViewQueue:
		body = a.recordList.View()
	case messages.ViewHelp:
		body = a.viewHelp()
	default:
		body = a.viewDashboard()
	}

	title := a.styles.Title.Render("herbtrace")
	return lipgloss.JoinVertical(lipgloss.Left, title, "", body, "", a.statusBar.View())
}

// viewDashboard renders connectivity and the pending counters.
func (a *App) viewDashboard() string {
	snap := a.snapshot

	header := a.styles.Connectivity(snap.Connectivity.IsOnline()) + " "
	if snap.ActiveSyncInProgress || a.syncing {
		header += a.spinner.View() + " " + a.styles.Syncing.Render("Syncing data...")
	} else {
		header += a.styles.Normal.Render(snap.Summary())
	}

	rows := []string{
		header,
		"",
		fmt.Sprintf("%-12s %d", "Pending", snap.PendingCount),
		fmt.Sprintf("%-12s %d", "Failed", snap.FailedCount),
		fmt.Sprintf("%-12s %d", "Exhausted", snap.ExhaustedCount),
		fmt.Sprintf("%-12s %s", "Last sync", formatLastSync(snap)),
	}

	if a.lastCycle != nil {
		rows = append(rows, "", a.styles.Muted.Render(fmt.Sprintf(
			"Last cycle: %d waves, %d submitted, %d synced, %d failed",
			a.lastCycle.Waves, a.lastCycle.Submitted, a.lastCycle.Synced, a.lastCycle.Failed)))
	}
	if snap.ExhaustedCount > 0 {
		rows = append(rows, "", a.styles.Warning.Render("Press r to retry exhausted records"))
	}

	return a.styles.Panel.Render(strings.Join(rows, "\n"))
}

func formatLastSync(snap domain.SyncSnapshot) string {
	if snap.LastSyncAt.IsZero() {
		return "never"
	}
	return snap.LastSyncAt.Local().Format("2006-01-02 15:04:05")
}

// viewHelp renders the keybinding reference.
func (a *App) viewHelp() string {
	var b strings.Builder
	b.WriteString(a.styles.Subtitle.Render("Keybindings"))
	b.WriteString("\n\n")
	for _, group := range a.keymap.FullHelp() {
		for _, binding := range group {
			h := binding.Help()
			b.WriteString(fmt.Sprintf("  %-8s %s\n", h.Key, h.Desc))
		}
		b.WriteString("\n")
	}
	b.WriteString(a.styles.Help.Render("Press esc to return"))
	return b.String()
}

// Run starts the TUI application and detaches from the status service on exit.
func (a *App) Run() error {
	defer a.Close()
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// Close detaches from the status service.
func (a *App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
}

// Snapshot returns the last applied snapshot.
func (a *App) Snapshot() domain.SyncSnapshot {
	return a.snapshot
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.statusBar.SetWidth(width)
	a.recordList.SetDimensions(width, height-6)
}
