// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/herbtrace/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/herbtrace/internal/core/domain"
)

// RecordList displays queued records in a navigable list.
type RecordList struct {
	records  []domain.PendingRecord
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewRecordList creates a new record list component.
func NewRecordList(s *styles.Styles) *RecordList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &RecordList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the record list.
func (r *RecordList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (r *RecordList) Update(msg tea.Msg) (*RecordList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			r.MoveUp()
		case "down", "j":
			r.MoveDown()
		}
	}
	return r, nil
}

// View renders the record list.
func (r *RecordList) View() string {
	if len(r.records) == 0 {
		return r.styles.Muted.Render("Queue is empty")
	}

	lines := make([]string, 0, len(r.records)*2+2)
	lines = append(lines, r.styles.Subtitle.Render(fmt.Sprintf("Queue (%d)", len(r.records))), "")

	// Each record takes up to two lines.
	visibleCount := (r.height - 4) / 2
	if visibleCount < 1 {
		visibleCount = 1
	}

	start := 0
	if r.selected >= visibleCount {
		start = r.selected - visibleCount + 1
	}
	end := start + visibleCount
	if end > len(r.records) {
		end = len(r.records)
	}

	for i := start; i < end; i++ {
		lines = append(lines, r.renderRecord(i, &r.records[i]))
	}

	return strings.Join(lines, "\n")
}

// renderRecord formats one record with its state and last error.
func (r *RecordList) renderRecord(index int, rec *domain.PendingRecord) string {
	indicator := "  "
	if index == r.selected {
		indicator = "> "
	}

	label := fmt.Sprintf("%s%-26s %-18s %-8s %d",
		indicator, rec.ClientID, rec.Kind, rec.SyncState, rec.Attempts)
	if len(label) > r.width && r.width > 3 {
		label = label[:r.width-3] + "..."
	}

	line := r.styles.State(rec.SyncState).Render(label)
	if index == r.selected {
		line = r.styles.Selected.Render(label)
	}

	if rec.LastError == "" {
		return line
	}

	msg := rec.LastError
	maxLen := r.width - 6
	if maxLen < 20 {
		maxLen = 20
	}
	if len(msg) > maxLen {
		msg = msg[:maxLen-3] + "..."
	}
	return line + "\n" + r.styles.Error.Render("    "+msg)
}

// SetRecords replaces the list contents and keeps the selection in range.
func (r *RecordList) SetRecords(records []domain.PendingRecord) {
	r.records = records
	if r.selected >= len(records) {
		r.selected = max(len(records)-1, 0)
	}
}

// Records returns the current records.
func (r *RecordList) Records() []domain.PendingRecord {
	return r.records
}

// Selected returns the index of the selected record.
func (r *RecordList) Selected() int {
	return r.selected
}

// SelectedRecord returns the currently selected record, or nil if none.
func (r *RecordList) SelectedRecord() *domain.PendingRecord {
	if len(r.records) == 0 || r.selected < 0 || r.selected >= len(r.records) {
		return nil
	}
	return &r.records[r.selected]
}

// MoveUp moves selection up.
func (r *RecordList) MoveUp() {
	if r.selected > 0 {
		r.selected--
	}
}

// MoveDown moves selection down.
func (r *RecordList) MoveDown() {
	if r.selected < len(r.records)-1 {
		r.selected++
	}
}

// SetDimensions sets the component dimensions.
func (r *RecordList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

// Count returns the number of records.
func (r *RecordList) Count() int {
	return len(r.records)
}

// IsEmpty returns whether the list is empty.
func (r *RecordList) IsEmpty() bool {
	return len(r.records) == 0
}
