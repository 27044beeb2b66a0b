package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/herbtrace/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/herbtrace/internal/core/domain"
)

type testPorts struct {
	status *MockStatusService
	queue  *MockRecordQueue
	sync   *MockSyncCoordinator
}

func newTestApp(t *testing.T) (*App, testPorts) {
	t.Helper()
	tp := testPorts{
		status: &MockStatusService{snapshot: domain.SyncSnapshot{Connectivity: domain.Online}},
		queue:  &MockRecordQueue{},
		sync:   &MockSyncCoordinator{},
	}
	app, err := NewApp(&Ports{Status: tp.status, Queue: tp.queue, Sync: tp.sync})
	require.NoError(t, err)
	t.Cleanup(app.Close)
	app.SetDimensions(100, 30)
	return app, tp
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// run executes a command and returns its message.
func run(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	require.NotNil(t, cmd)
	return cmd()
}

func TestNewApp_Success(t *testing.T) {
	app, tp := newTestApp(t)

	assert.Equal(t, messages.ViewDashboard, app.CurrentView())
	assert.Equal(t, 1, tp.status.Subscribers())
}

func TestNewApp_InvalidPorts(t *testing.T) {
	app, err := NewApp(&Ports{Sync: &MockSyncCoordinator{}})

	assert.ErrorIs(t, err, ErrMissingStatusService)
	assert.Nil(t, app)
}

func TestApp_Init(t *testing.T) {
	app, _ := newTestApp(t)

	assert.NotNil(t, app.Init())
}

func TestApp_CloseDetaches(t *testing.T) {
	app, tp := newTestApp(t)

	app.Close()
	app.Close()

	assert.Equal(t, 0, tp.status.Subscribers())
}

func TestApp_Update_WindowSize(t *testing.T) {
	app, _ := newTestApp(t)

	app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	assert.True(t, app.Ready())
}

func TestApp_InitialSnapshot(t *testing.T) {
	app, tp := newTestApp(t)
	tp.status.snapshot = domain.SyncSnapshot{Connectivity: domain.Offline, PendingCount: 4}

	msg := run(t, app.loadSnapshot())
	_, cmd := app.Update(msg)

	assert.Nil(t, cmd)
	assert.Equal(t, 4, app.Snapshot().PendingCount)
	assert.Contains(t, app.View(), "Offline mode")
}

func TestApp_InitialSnapshotError(t *testing.T) {
	app, tp := newTestApp(t)
	tp.status.err = errors.New("store unavailable")

	app.Update(run(t, app.loadSnapshot()))

	assert.EqualError(t, app.Err(), "store unavailable")
}

func TestApp_PushedSnapshotReachesModel(t *testing.T) {
	app, tp := newTestApp(t)

	tp.status.Publish(domain.SyncSnapshot{Connectivity: domain.Online, PendingCount: 2, ActiveSyncInProgress: true})

	msg := run(t, app.waitForSnapshot())
	updated, ok := msg.(messages.SnapshotUpdated)
	require.True(t, ok)
	assert.Equal(t, 2, updated.Snapshot.PendingCount)

	_, cmd := app.Update(msg)
	assert.NotNil(t, cmd, "snapshot handling re-arms the listener")
	assert.True(t, app.Snapshot().ActiveSyncInProgress)
	assert.Contains(t, app.View(), "Syncing data...")
}

func TestApp_PushKeepsLatestSnapshot(t *testing.T) {
	app, tp := newTestApp(t)

	for i := 1; i <= 5; i++ {
		tp.status.Publish(domain.SyncSnapshot{PendingCount: i})
	}

	msg := run(t, app.waitForSnapshot()).(messages.SnapshotUpdated)
	assert.Equal(t, 5, msg.Snapshot.PendingCount)
}

func TestApp_WaitForSnapshotEndsWithContext(t *testing.T) {
	app, _ := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	app.WithContext(ctx)

	done := make(chan tea.Msg, 1)
	go func() { done <- app.waitForSnapshot()() }()
	cancel()

	select {
	case msg := <-done:
		assert.IsType(t, messages.Quit{}, msg)
	case <-time.After(time.Second):
		t.Fatal("listener did not observe cancellation")
	}
}

func TestApp_SyncKey(t *testing.T) {
	app, tp := newTestApp(t)
	tp.sync.activity.LastCycle = domain.CycleResult{Waves: 1, Submitted: 3, Synced: 3}

	_, cmd := app.Update(keyMsg("s"))
	require.NotNil(t, cmd)

	// A second press while the cycle runs is ignored.
	_, again := app.Update(keyMsg("s"))
	assert.Nil(t, again)

	app.Update(cmd())
	assert.Equal(t, 1, tp.sync.triggers)
	assert.Contains(t, app.View(), "Synced 3 of 3 submissions")
	assert.Contains(t, app.View(), "1 waves")
}

func TestApp_SyncKeyError(t *testing.T) {
	app, tp := newTestApp(t)
	tp.sync.err = domain.ErrRemoteNotConfigured

	_, cmd := app.Update(keyMsg("s"))
	app.Update(cmd())

	assert.ErrorIs(t, app.Err(), domain.ErrRemoteNotConfigured)
}

func TestApp_RetryKey(t *testing.T) {
	app, tp := newTestApp(t)
	tp.sync.reset = 2

	_, cmd := app.Update(keyMsg("r"))
	app.Update(run(t, cmd))

	assert.Contains(t, app.View(), "Reset 2 records")
}

func TestApp_KeysWithoutSync(t *testing.T) {
	app, err := NewApp(&Ports{Status: &MockStatusService{}})
	require.NoError(t, err)
	defer app.Close()

	_, cmd := app.Update(keyMsg("s"))
	assert.Nil(t, cmd)
	assert.ErrorIs(t, app.Err(), ErrSyncUnavailable)
	_, cmd = app.Update(keyMsg("r"))
	assert.Nil(t, cmd)
	assert.ErrorIs(t, app.Err(), ErrSyncUnavailable)
	_, cmd = app.Update(keyMsg("tab"))
	assert.Nil(t, cmd)
	assert.Equal(t, messages.ViewDashboard, app.CurrentView())
}

func TestApp_QueueView(t *testing.T) {
	app, tp := newTestApp(t)
	tp.queue.records = []domain.PendingRecord{
		{ClientID: "01JAAAAAAAAAAAAAAAAAAAAAAA", Kind: "herb-collection", SyncState: domain.SyncStatePending},
		{ClientID: "01JBBBBBBBBBBBBBBBBBBBBBBB", Kind: "herb-collection", SyncState: domain.SyncStateFailed, LastError: "timeout"},
	}

	_, cmd := app.Update(keyMsg("tab"))
	assert.Equal(t, messages.ViewQueue, app.CurrentView())
	app.Update(run(t, cmd))

	view := app.View()
	assert.Contains(t, view, "Queue (2)")
	assert.Contains(t, view, "01JBBBBBBBBBBBBBBBBBBBBBBB")

	app.Update(keyMsg("j"))
	assert.Equal(t, 1, app.recordList.Selected())

	app.Update(keyMsg("tab"))
	assert.Equal(t, messages.ViewDashboard, app.CurrentView())
}

func TestApp_QueueLoadError(t *testing.T) {
	app, tp := newTestApp(t)
	tp.queue.err = errors.New("disk gone")

	_, cmd := app.Update(keyMsg("tab"))
	app.Update(run(t, cmd))

	assert.EqualError(t, app.Err(), "disk gone")
}

func TestApp_HelpAndBack(t *testing.T) {
	app, _ := newTestApp(t)

	app.Update(keyMsg("?"))
	assert.Equal(t, messages.ViewHelp, app.CurrentView())
	assert.Contains(t, app.View(), "Keybindings")

	app.Update(keyMsg("esc"))
	assert.Equal(t, messages.ViewDashboard, app.CurrentView())
}

func TestApp_ViewChanged(t *testing.T) {
	app, _ := newTestApp(t)

	app.Update(messages.ViewChanged{View: messages.ViewHelp})

	assert.Equal(t, messages.ViewHelp, app.CurrentView())
}

func TestApp_Quit(t *testing.T) {
	app, _ := newTestApp(t)

	for _, k := range []string{"q", "ctrl+c"} {
		_, cmd := app.Update(keyMsg(k))
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	}

	_, cmd := app.Update(messages.Quit{})
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_DashboardCounts(t *testing.T) {
	app, _ := newTestApp(t)
	app.Update(messages.SnapshotUpdated{Snapshot: domain.SyncSnapshot{
		Connectivity:   domain.Online,
		PendingCount:   5,
		FailedCount:    2,
		ExhaustedCount: 1,
	}})

	view := app.View()
	assert.Contains(t, view, "Sync failed")
	assert.Contains(t, view, "Press r to retry")
	assert.Contains(t, view, "never")
}
