package status

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/herbtrace/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/herbtrace/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/herbtrace/internal/core/domain"
)

func TestNewBar(t *testing.T) {
	bar := NewBar(styles.DefaultStyles(), keymap.DefaultKeyMap())

	require.NotNil(t, bar)
	assert.Equal(t, StateReady, bar.State())
	assert.Equal(t, "", bar.Message())
	assert.Equal(t, 80, bar.Width())
}

func TestNewBar_NilStyles(t *testing.T) {
	bar := NewBar(nil, nil)

	require.NotNil(t, bar)
	assert.NotNil(t, bar.styles)
	assert.NotNil(t, bar.keymap)
}

func TestStatusBar_InitAndUpdate(t *testing.T) {
	bar := NewBar(nil, nil)

	assert.Nil(t, bar.Init())

	updated, cmd := bar.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, bar, updated)
	assert.Nil(t, cmd)
}

func TestStatusBar_View_OfflineWithPending(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(120)
	bar.SetSnapshot(domain.SyncSnapshot{Connectivity: domain.Offline, PendingCount: 3})

	view := bar.View()

	assert.Contains(t, view, "OFFLINE")
	assert.Contains(t, view, "Offline mode")
	assert.Contains(t, view, "s: sync now")
}

func TestStatusBar_View_AllSynced(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(120)
	bar.SetSnapshot(domain.SyncSnapshot{Connectivity: domain.Online})

	view := bar.View()

	assert.Contains(t, view, "ONLINE")
	assert.Contains(t, view, "All data synced")
}

func TestStatusBar_SetSnapshot_TracksSyncing(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(120)

	bar.SetSnapshot(domain.SyncSnapshot{Connectivity: domain.Online, PendingCount: 2, ActiveSyncInProgress: true})
	assert.Equal(t, StateSyncing, bar.State())
	assert.Contains(t, bar.View(), "Syncing data...")

	bar.SetSnapshot(domain.SyncSnapshot{Connectivity: domain.Online})
	assert.Equal(t, StateReady, bar.State())
}

func TestStatusBar_SetSnapshot_KeepsHelpState(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetState(StateHelp)

	bar.SetSnapshot(domain.SyncSnapshot{Connectivity: domain.Online})

	assert.Equal(t, StateHelp, bar.State())
}

func TestStatusBar_ErrorState(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(120)
	bar.SetState(StateError)

	assert.Contains(t, bar.View(), "Error")

	bar.SetMessage("remote rejected")
	assert.Contains(t, bar.View(), "Error: remote rejected")
}

func TestStatusBar_QueueHints(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(160)
	bar.SetState(StateQueue)

	view := bar.View()

	assert.Contains(t, view, "r: retry failed")
	assert.NotContains(t, view, "s: sync now")
}

func TestStatusBar_NarrowWidth(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(10)

	assert.NotEmpty(t, bar.View())
}

func TestStatusBar_Clear(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetState(StateError)
	bar.SetMessage("boom")

	bar.Clear()

	assert.Equal(t, StateReady, bar.State())
	assert.Equal(t, "", bar.Message())
}
