package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
)

// mockCapture implements driving.CaptureService.
type mockCapture struct {
	kind    domain.RecordKind
	payload []byte
	id      string
	err     error
}

func (m *mockCapture) SubmitRecord(_ context.Context, kind domain.RecordKind, payload []byte) (string, error) {
	m.kind = kind
	m.payload = payload
	return m.id, m.err
}

// mockDrafts implements driving.DraftService.
type mockDrafts struct {
	drafts map[domain.RecordKind]*domain.Draft
	id     string
	err    error
}

func newMockDrafts() *mockDrafts {
	return &mockDrafts{drafts: make(map[domain.RecordKind]*domain.Draft)}
}

func (m *mockDrafts) SaveDraft(_ context.Context, kind domain.RecordKind, payload []byte) error {
	if m.err != nil {
		return m.err
	}
	m.drafts[kind] = &domain.Draft{Kind: kind, Payload: payload}
	return nil
}

func (m *mockDrafts) LoadDraft(_ context.Context, kind domain.RecordKind) (*domain.Draft, error) {
	d, ok := m.drafts[kind]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return d, nil
}

func (m *mockDrafts) DiscardDraft(_ context.Context, kind domain.RecordKind) error {
	delete(m.drafts, kind)
	return nil
}

func (m *mockDrafts) FinalizeDraft(_ context.Context, kind domain.RecordKind) (string, error) {
	if _, ok := m.drafts[kind]; !ok {
		return "", domain.ErrNotFound
	}
	delete(m.drafts, kind)
	return m.id, nil
}

// mockStatus implements driving.StatusService.
type mockStatus struct {
	snapshot domain.SyncSnapshot
	err      error
}

func (m *mockStatus) GetSnapshot(context.Context) (domain.SyncSnapshot, error) {
	return m.snapshot, m.err
}

func (m *mockStatus) Subscribe(func(domain.SyncSnapshot)) func() {
	return func() {}
}

// mockQueue implements driving.RecordQueue and driving.RecordArchive.
type mockQueue struct {
	records  []domain.PendingRecord
	states   []domain.SyncState
	exported string
	imported string
	added    int
}

func (m *mockQueue) Records(_ context.Context, states ...domain.SyncState) ([]domain.PendingRecord, error) {
	m.states = states
	return m.records, nil
}

func (m *mockQueue) Export(_ context.Context, w io.Writer) error {
	_, err := io.WriteString(w, m.exported)
	return err
}

func (m *mockQueue) Import(_ context.Context, r io.Reader) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	m.imported = string(data)
	return m.added, nil
}

// mockSync implements driving.SyncCoordinator.
type mockSync struct {
	triggers int
	reset    int
	err      error
	activity domain.SyncActivity
}

func (m *mockSync) TriggerSync(context.Context) error {
	m.triggers++
	return m.err
}

func (m *mockSync) RetryFailed(context.Context) (int, error) {
	return m.reset, m.err
}

func (m *mockSync) Status() domain.SyncActivity {
	return m.activity
}

// mockGeo implements driving.GeolocationAcquirer.
type mockGeo struct {
	fix   domain.GeoFix
	err   error
	last  *domain.GeoFix
	calls int
}

func (m *mockGeo) Acquire(context.Context, domain.GeoOptions) (domain.GeoFix, error) {
	m.calls++
	return m.fix, m.err
}

func (m *mockGeo) Reset() {}

func (m *mockGeo) Attempts() int { return m.calls }

func (m *mockGeo) Fallback(manual *domain.GeoFix) (domain.GeoFix, error) {
	switch {
	case manual != nil:
		fix := *manual
		fix.Source = domain.GeoSourceFallback
		return fix, nil
	case m.last != nil:
		fix := *m.last
		fix.Source = domain.GeoSourceFallback
		return fix, nil
	}
	return domain.GeoFix{}, domain.ErrNotFound
}

// mockConnectivity implements driving.ConnectivityRefresher.
type mockConnectivity struct {
	state     domain.ConnectivityState
	refreshes int
}

func (m *mockConnectivity) Refresh(context.Context) domain.ConnectivityState {
	m.refreshes++
	return m.state
}

// mockSettings implements driving.SettingsService.
type mockSettings struct {
	settings    domain.AppSettings
	set         map[string]string
	validateErr error
	setErr      error
}

func newMockSettings() *mockSettings {
	return &mockSettings{settings: domain.DefaultAppSettings(), set: make(map[string]string)}
}

func (m *mockSettings) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettings) Save(s *domain.AppSettings) error {
	m.settings = *s
	return nil
}

func (m *mockSettings) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.set[key] = value
	return nil
}

func (m *mockSettings) Keys() []string {
	return []string{"remote.base_url", "sync.max_attempts"}
}

func (m *mockSettings) Validate() error { return m.validateErr }

func (m *mockSettings) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

func (m *mockSettings) ConfigPath() string { return "/tmp/herbtrace/config.toml" }

// withServices installs s for the duration of the test.
func withServices(t *testing.T, s Services) {
	t.Helper()
	SetServices(s)
	t.Cleanup(func() { SetServices(Services{}) })
}

// resetFlags restores every flag to its default so state does not leak
// between executions of the shared command tree.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWithInput(t, "", args...)
}

func executeWithInput(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}
