package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hedhosts/hed/internal/config"
	"github.com/hedhosts/hed/internal/db"
	"github.com/hedhosts/hed/internal/hostsfile"
	"github.com/hedhosts/hed/internal/task"
	"github.com/hedhosts/hed/internal/ui"
)

type fakeStore struct {
	nextID   int64
	profiles []db.ProfileModel
	applied  map[int64]time.Time
}

func (s *fakeStore) GetProfiles() ([]db.ProfileModel, error) {
	return append([]db.ProfileModel(nil), s.profiles...), nil
}

func (s *fakeStore) find(id int64) int {
	for i, p := range s.profiles {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *fakeStore) taken(name string, except int64) bool {
	for _, p := range s.profiles {
		if p.ID != except && strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

func (s *fakeStore) CreateProfile(name, content string) (db.ProfileModel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return db.ProfileModel{}, db.ErrEmptyName
	}
	if s.taken(name, 0) {
		return db.ProfileModel{}, fmt.Errorf("`%s` already exists", name)
	}
	s.nextID++
	p := db.ProfileModel{ID: s.nextID, Name: name, Content: content}
	s.profiles = append(s.profiles, p)
	return p, nil
}

func (s *fakeStore) RenameProfile(id int64, name string) error {
	i := s.find(id)
	if i < 0 {
		return db.ErrProfileNotFound
	}
	if s.taken(name, id) {
		return fmt.Errorf("`%s` already exists", name)
	}
	s.profiles[i].Name = name
	return nil
}

func (s *fakeStore) UpdateProfileContent(id int64, content string) error {
	i := s.find(id)
	if i < 0 {
		return db.ErrProfileNotFound
	}
	s.profiles[i].Content = content
	return nil
}

func (s *fakeStore) MarkApplied(id int64, at time.Time) error {
	if s.applied == nil {
		s.applied = map[int64]time.Time{}
	}
	s.applied[id] = at
	return nil
}

func (s *fakeStore) DeleteProfile(id int64) error {
	i := s.find(id)
	if i < 0 {
		return db.ErrProfileNotFound
	}
	s.profiles = append(s.profiles[:i], s.profiles[i+1:]...)
	return nil
}

func keyMsg(key string) tea.KeyMsg {
	switch key {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

// press feeds keys through Update and returns the resulting model.
func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(keyMsg(k))
		nm, ok := next.(Model)
		if !ok {
			t.Fatalf("Update returned %T", next)
		}
		m = nm
	}
	return m
}

func newTestModel(t *testing.T, store ProfileStore) Model {
	t.Helper()
	t.Setenv(config.EnvDataDir, t.TempDir())
	opts := Options{
		Config:     config.Default(),
		Clipboard:  func(string) error { return nil },
		SaveConfig: func(config.Config) error { return nil },
	}
	if store != nil {
		opts.Store = store
	}
	return New(context.Background(), opts)
}

func TestAddEntryForm(t *testing.T) {
	m := newTestModel(t, nil)
	m = press(t, m, "tab", "a", "10.0.0.1", "tab", "a.test b.test", "enter")

	if m.viewMode != ViewModeMain {
		t.Fatalf("expected form to close, got %v (err %v)", m.viewMode, m.form.err)
	}
	entries := m.current().Doc.Entries()
	if len(entries) != 1 || entries[0].Address != "10.0.0.1" || len(entries[0].Hosts) != 2 {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if len(m.rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(m.rows))
	}
	if !strings.Contains(m.current().Doc.Draft(), "10.0.0.1 a.test b.test") {
		t.Fatalf("draft missing entry: %q", m.current().Doc.Draft())
	}
	if !m.current().Doc.Changed() {
		t.Fatal("expected document to be changed")
	}
}

func TestAddEntryFormValidation(t *testing.T) {
	m := newTestModel(t, nil)
	m = press(t, m, "a", "enter")
	if m.viewMode != ViewModeForm {
		t.Fatalf("expected form to stay open, got %v", m.viewMode)
	}
	if m.form.err == nil || m.form.err.Error() != "IP address is empty" {
		t.Fatalf("unexpected error: %v", m.form.err)
	}

	m = press(t, m, "nope", "enter")
	if m.form.err == nil || m.form.err.Error() != "`nope` is not a valid IP address" {
		t.Fatalf("unexpected error: %v", m.form.err)
	}

	m.form.inputs[0].SetValue("::1")
	m = press(t, m, "enter")
	if m.form.err == nil || m.form.err.Error() != "hosts is empty" {
		t.Fatalf("unexpected error: %v", m.form.err)
	}

	m = press(t, m, "esc")
	if m.viewMode != ViewModeMain || m.form != nil {
		t.Fatal("expected esc to cancel the form")
	}
	if len(m.current().Doc.Entries()) != 0 {
		t.Fatal("cancelled form must not add entries")
	}
}

func TestToggleHosts(t *testing.T) {
	m := newTestModel(t, nil)
	m = press(t, m, "tab", "a", "10.0.0.1", "tab", "a.test b.test", "enter")

	m = press(t, m, "down", " ")
	hs := m.current().Doc.Entries()[0].Hosts
	for _, h := range hs {
		if h.Enabled != (h.Name == "b.test") {
			t.Fatalf("expected only a.test disabled: %+v", hs)
		}
	}
	// The disabled host now sits on its own line after b.test; the cursor
	// follows it.
	if _, h, ok := m.selected(); !ok || h == nil || h.Name != "a.test" {
		t.Fatalf("cursor left a.test: %+v", h)
	}
	doc := m.current().Doc
	if want := doc.LineEnding().Convert("10.0.0.1 b.test\n#(hed) 10.0.0.1 a.test\n"); doc.Draft() != want {
		t.Fatalf("unexpected draft %q", m.current().Doc.Draft())
	}

	// The address row switches the whole entry.
	m = press(t, m, "up", "up", " ")
	for _, h := range m.current().Doc.Entries()[0].Hosts {
		if h.Enabled {
			t.Fatalf("expected all hosts disabled: %+v", h)
		}
	}
	m = press(t, m, " ")
	for _, h := range m.current().Doc.Entries()[0].Hosts {
		if !h.Enabled {
			t.Fatalf("expected all hosts enabled: %+v", h)
		}
	}
}

func TestDeleteHostAndEntry(t *testing.T) {
	m := newTestModel(t, nil)
	m = press(t, m, "tab", "a", "10.0.0.1", "tab", "a.test b.test", "enter")

	m = press(t, m, "down", "d")
	e := m.current().Doc.Entries()[0]
	if len(e.Hosts) != 1 || e.Hosts[0].Name != "b.test" {
		t.Fatalf("unexpected hosts after delete: %+v", e.Hosts)
	}

	m = press(t, m, "D")
	if len(m.current().Doc.Entries()) != 0 || len(m.rows) != 0 {
		t.Fatal("expected entry to be deleted")
	}
}

func TestEntryKeysNeedSelection(t *testing.T) {
	m := newTestModel(t, nil)
	m = press(t, m, " ")
	if m.err == nil || !strings.Contains(m.err.Error(), "select an entry") {
		t.Fatalf("unexpected status: %v", m.err)
	}
}

func TestCopyEntry(t *testing.T) {
	var copied string
	t.Setenv(config.EnvDataDir, t.TempDir())
	m := New(context.Background(), Options{
		Config:    config.Default(),
		Clipboard: func(s string) error { copied = s; return nil },
	})
	m = press(t, m, "tab", "a", "10.0.0.1", "tab", "a.test", "enter", "y")
	if copied != "10.0.0.1 a.test" {
		t.Fatalf("unexpected clipboard text: %q", copied)
	}
	if m.err == nil || !strings.HasPrefix(m.err.Error(), "Copied") {
		t.Fatalf("unexpected status: %v", m.err)
	}
}

func TestProfileLifecycle(t *testing.T) {
	store := &fakeStore{}
	m := newTestModel(t, store)

	m = press(t, m, "P", "dev", "enter")
	if m.viewMode != ViewModeMain {
		t.Fatalf("expected form to close, got err %v", m.form.err)
	}
	if len(m.profiles) != 2 || m.current().Name != "dev" {
		t.Fatalf("expected dev selected, got %+v", m.current())
	}

	// Duplicate names keep the form open.
	m = press(t, m, "P", "DEV", "enter")
	if m.viewMode != ViewModeForm || m.form.err == nil {
		t.Fatal("expected duplicate name error")
	}
	m = press(t, m, "esc")

	m = press(t, m, "E")
	m.form.inputs[0].SetValue("stage")
	m = press(t, m, "enter")
	if m.current().Name != "stage" || store.profiles[0].Name != "stage" {
		t.Fatalf("rename failed: %q / %q", m.current().Name, store.profiles[0].Name)
	}

	m = press(t, m, "X")
	if m.viewMode != ViewModeConfirm {
		t.Fatal("expected delete confirmation")
	}
	m = press(t, m, "y")
	if len(store.profiles) != 0 || len(m.profiles) != 1 || !m.current().System {
		t.Fatalf("delete failed: store %d, model %d", len(store.profiles), len(m.profiles))
	}
}

func TestProfileKeysRejectSystem(t *testing.T) {
	m := newTestModel(t, &fakeStore{})
	m = press(t, m, "X")
	if m.viewMode != ViewModeMain {
		t.Fatal("system profile must not be deletable")
	}
}

func TestSaveStoredProfile(t *testing.T) {
	store := &fakeStore{}
	if _, err := store.CreateProfile("dev", "127.0.0.1 localhost\n"); err != nil {
		t.Fatal(err)
	}
	m := newTestModel(t, store)
	m = press(t, m, "down")
	if m.current().Name != "dev" {
		t.Fatalf("expected dev selected, got %s", m.current().Name)
	}

	m = press(t, m, "a", "10.0.0.2", "tab", "dev.test", "enter", "ctrl+s")
	if m.current().Doc.Changed() {
		t.Fatal("expected document to be saved")
	}
	if !strings.Contains(store.profiles[0].Content, "10.0.0.2 dev.test") {
		t.Fatalf("store not updated: %q", store.profiles[0].Content)
	}

	m = press(t, m, "ctrl+s")
	if m.err == nil || !strings.Contains(m.err.Error(), "nothing to save") {
		t.Fatalf("unexpected status: %v", m.err)
	}
}

func TestResetDiscardsEdits(t *testing.T) {
	m := newTestModel(t, nil)
	m = press(t, m, "a", "10.0.0.1", "tab", "a.test", "enter")
	m = press(t, m, "ctrl+r")
	if m.current().Doc.Changed() || len(m.rows) != 0 {
		t.Fatal("expected edits to be discarded")
	}
}

func setupHostsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hosts")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(hostsfile.EnvPath, path)
	t.Setenv(config.EnvDataDir, t.TempDir())
	return path
}

func newHandlerModel(t *testing.T, store ProfileStore) (Model, *task.Handler) {
	t.Helper()
	cfg := config.Default()
	cfg.Hosts.Backup = false
	handler := task.NewHandler(nil)
	opts := Options{Config: cfg, Handler: handler, SaveConfig: func(config.Config) error { return nil }}
	if store != nil {
		opts.Store = store
	}
	m := New(context.Background(), opts)
	m.handleResponse(<-handler.Responses())
	return m, handler
}

func TestSaveSystemHostsFile(t *testing.T) {
	path := setupHostsFile(t, "127.0.0.1 localhost\n")
	m, handler := newHandlerModel(t, nil)
	defer handler.Wait()

	if m.busy != 0 || len(m.current().Doc.Entries()) != 1 {
		t.Fatalf("expected loaded document, busy=%d", m.busy)
	}

	m = press(t, m, "a", "10.0.0.9", "tab", "nine.test", "enter", "ctrl+s")
	if m.busy != 1 {
		t.Fatalf("expected save in flight, busy=%d", m.busy)
	}
	m.handleResponse(<-handler.Responses())

	if m.current().Doc.Changed() {
		t.Fatal("expected document to be saved")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "10.0.0.9 nine.test") || !strings.Contains(string(data), "127.0.0.1 localhost") {
		t.Fatalf("unexpected file content: %q", data)
	}
	if m.err == nil || !strings.HasPrefix(m.err.Error(), "✓ Saved") {
		t.Fatalf("unexpected status: %v", m.err)
	}
}

func TestApplyProfile(t *testing.T) {
	path := setupHostsFile(t, "127.0.0.1 localhost\n")
	store := &fakeStore{}
	if _, err := store.CreateProfile("dev", "10.1.1.1 dev.test\n"); err != nil {
		t.Fatal(err)
	}
	m, handler := newHandlerModel(t, store)
	defer handler.Wait()

	m = press(t, m, "down", "A")
	if m.viewMode != ViewModeConfirm {
		t.Fatal("expected apply confirmation")
	}
	m = press(t, m, "y")
	m.handleResponse(<-handler.Responses())

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "10.1.1.1 dev.test\n" {
		t.Fatalf("unexpected file content: %q", data)
	}
	if _, ok := store.applied[store.profiles[0].ID]; !ok {
		t.Fatal("expected profile to be marked applied")
	}
	if sys := m.profiles[0]; sys.Doc.Content() != string(data) || sys.Doc.Changed() {
		t.Fatal("system profile not reloaded")
	}
	if m.current().AppliedAt == nil {
		t.Fatal("expected AppliedAt to be set")
	}
}

func TestQuit(t *testing.T) {
	m := newTestModel(t, nil)
	_, cmd := m.handleKeyPress(keyMsg("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}

func TestQuitWithUnsavedEdits(t *testing.T) {
	m := newTestModel(t, nil)
	m = press(t, m, "a", "10.0.0.1", "tab", "a.test", "enter")

	next, cmd := m.handleKeyPress(keyMsg("q"))
	m = next.(Model)
	if cmd != nil || m.viewMode != ViewModeConfirm {
		t.Fatal("expected quit confirmation")
	}

	next, _ = m.handleKeyPress(keyMsg("n"))
	m = next.(Model)
	if m.viewMode != ViewModeMain {
		t.Fatal("expected n to cancel")
	}

	next, _ = m.handleKeyPress(keyMsg("q"))
	m = next.(Model)
	_, cmd = m.handleKeyPress(keyMsg("y"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}

func TestSettingsSaved(t *testing.T) {
	var saved *config.Config
	t.Setenv(config.EnvDataDir, t.TempDir())
	m := New(context.Background(), Options{
		Config:     config.Default(),
		Clipboard:  func(string) error { return nil },
		SaveConfig: func(c config.Config) error { saved = &c; return nil },
	})

	m = press(t, m, ",")
	if m.viewMode != ViewModeSettings {
		t.Fatal("expected settings view")
	}
	m = press(t, m, "enter", "esc")
	if saved == nil || saved.UI.VimMode {
		t.Fatalf("expected vim mode off to be saved, got %+v", saved)
	}
	if m.viewMode != ViewModeMain {
		t.Fatal("expected settings to close")
	}
}

func TestSettingsMaxBackupsValidation(t *testing.T) {
	m := newTestModel(t, nil)
	m = press(t, m, ",")
	m.settingsIdx = ui.SettingMaxBackups
	m = press(t, m, "enter")
	if !m.settingsEditing {
		t.Fatal("expected editing mode")
	}
	m.settingsInput.SetValue("lots")
	m = press(t, m, "enter")
	if !m.settingsEditing || m.err == nil {
		t.Fatal("expected validation error")
	}
	m.settingsInput.SetValue("5")
	m = press(t, m, "enter")
	if m.settingsEditing || m.cfg.Hosts.MaxBackups != 5 {
		t.Fatalf("expected max backups 5, got %d", m.cfg.Hosts.MaxBackups)
	}
}

func TestVimKeysFollowSetting(t *testing.T) {
	store := &fakeStore{}
	if _, err := store.CreateProfile("dev", ""); err != nil {
		t.Fatal(err)
	}
	m := newTestModel(t, store)
	m.cfg.UI.VimMode = false
	m = press(t, m, "j")
	if m.profileIdx != 0 {
		t.Fatal("j must be ignored without vim mode")
	}
	m.cfg.UI.VimMode = true
	m = press(t, m, "j")
	if m.profileIdx != 1 {
		t.Fatal("j must move with vim mode")
	}
}

func TestViewRenders(t *testing.T) {
	m := newTestModel(t, &fakeStore{})
	m = press(t, m, "a", "10.0.0.1", "tab", "a.test", "enter")
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(Model)
	out := m.View()
	for _, want := range []string{"PROFILES", "10.0.0.1", "a.test"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}
