package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hedhosts/hed/internal/config"
	"github.com/hedhosts/hed/internal/db"
	"github.com/hedhosts/hed/internal/hosts"
	"github.com/hedhosts/hed/internal/hostsfile"
	"github.com/hedhosts/hed/internal/task"
	"github.com/hedhosts/hed/internal/ui"
)

// ProfileStore is the profile persistence the editor needs. *db.Store
// satisfies it.
type ProfileStore interface {
	GetProfiles() ([]db.ProfileModel, error)
	CreateProfile(name, content string) (db.ProfileModel, error)
	RenameProfile(id int64, name string) error
	UpdateProfileContent(id int64, content string) error
	MarkApplied(id int64, at time.Time) error
	DeleteProfile(id int64) error
}

// Options configures New.
type Options struct {
	Config config.Config
	// Store is optional; without it only the system profile is shown.
	Store ProfileStore
	// Handler runs hosts file I/O. Without it the system profile stays
	// empty and cannot be saved.
	Handler *task.Handler
	// Clipboard and SaveConfig default to the system clipboard and
	// config.Save.
	Clipboard  func(string) error
	SaveConfig func(config.Config) error
}

// Model represents the application state
type Model struct {
	ctx       context.Context
	store     ProfileStore
	handler   *task.Handler
	hostsPath string
	ids       *hosts.IDAllocator

	cfg         config.Config
	cfgOriginal config.Config

	profiles   []*Profile
	profileIdx int
	focus      focusArea
	textMode   bool
	rows       []row
	rowIdx     int
	editor     textarea.Model

	searchInput textinput.Model
	searching   bool

	viewMode ViewMode
	form     *form
	confirm  *confirmState

	settingsIdx     int
	settingsEditing bool
	settingsInput   textinput.Model

	// busy counts handler invokes whose response has not arrived yet.
	busy     int
	spinner  spinner.Model
	applying *Profile

	styles *ui.Styles
	err    error
	errSeq int
	width  int
	height int

	copyText   func(string) error
	saveConfig func(config.Config) error
}

// New creates the editor model and starts loading the hosts file.
func New(ctx context.Context, opts Options) Model {
	cfg := opts.Config

	editor := textarea.New()
	editor.Prompt = ""
	editor.ShowLineNumbers = true
	editor.CharLimit = 0
	editor.MaxHeight = 0

	searchInput := textinput.New()
	searchInput.Placeholder = "address or host"
	searchInput.Prompt = ""
	searchInput.CharLimit = 64
	searchInput.Width = 24

	settingsInput := textinput.New()
	settingsInput.Prompt = ""

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ui.ColorSecondary)

	m := Model{
		ctx:           ctx,
		store:         opts.Store,
		handler:       opts.Handler,
		hostsPath:     cfg.HostsPath(),
		ids:           hosts.NewIDAllocator(1),
		cfg:           cfg,
		cfgOriginal:   cfg,
		textMode:      cfg.UI.DefaultView == config.ViewText,
		editor:        editor,
		searchInput:   searchInput,
		settingsInput: settingsInput,
		spinner:       sp,
		styles:        ui.NewStyles(),
		width:         100,
		height:        30,
		copyText:      opts.Clipboard,
		saveConfig:    opts.SaveConfig,
	}
	if m.copyText == nil {
		m.copyText = clipboard.WriteAll
	}
	if m.saveConfig == nil {
		m.saveConfig = config.Save
	}

	m.profiles = []*Profile{{
		Name:   db.SystemProfileName,
		System: true,
		Doc:    hosts.NewDocument(m.session(""), ""),
	}}
	if err := m.loadProfiles(); err != nil {
		m.err = fmt.Errorf("failed to load profiles: %w", err)
	}

	if m.handler != nil {
		m.handler.Invoke(ctx, task.Load{Path: m.hostsPath})
		m.busy = 1
	}
	m.afterDocChange()
	return m
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.handler != nil {
		cmds = append(cmds, waitForResponse(m.handler.Responses()), m.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

type taskMsg struct {
	resp task.Response
}

type clearErrMsg struct {
	seq int
}

func waitForResponse(ch <-chan task.Response) tea.Cmd {
	return func() tea.Msg {
		return taskMsg{resp: <-ch}
	}
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	prevErr := ""
	if m.err != nil {
		prevErr = m.err.Error()
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		nextModel, nextCmd := m.handleKeyPress(msg)
		nm, ok := nextModel.(Model)
		if !ok {
			return nextModel, nextCmd
		}
		clearCmd := nm.errorAutoClearCmd(prevErr)
		return nm, tea.Batch(nextCmd, clearCmd)

	case taskMsg:
		m.handleResponse(msg.resp)
		clearCmd := m.errorAutoClearCmd(prevErr)
		return m, tea.Batch(waitForResponse(m.handler.Responses()), clearCmd)

	case spinner.TickMsg:
		if m.busy == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case clearErrMsg:
		if msg.seq == m.errSeq {
			m.err = nil
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		w, h := ui.EditorSize(msg.Width, msg.Height)
		m.editor.SetWidth(w)
		m.editor.SetHeight(h)
		return m, nil
	}

	// Cursor blink for whichever input has focus.
	var cmd tea.Cmd
	switch {
	case m.viewMode == ViewModeForm && m.form != nil && m.form.focus < len(m.form.inputs):
		m.form.inputs[m.form.focus], cmd = m.form.inputs[m.form.focus].Update(msg)
	case m.viewMode == ViewModeSettings && m.settingsEditing:
		m.settingsInput, cmd = m.settingsInput.Update(msg)
	case m.searching:
		m.searchInput, cmd = m.searchInput.Update(msg)
	case m.textMode && m.focus == focusEditor:
		m.editor, cmd = m.editor.Update(msg)
	}
	return m, cmd
}

func (m *Model) errorAutoClearCmd(prevErr string) tea.Cmd {
	currErr := ""
	if m.err != nil {
		currErr = m.err.Error()
	}
	if currErr == "" || currErr == prevErr {
		return nil
	}

	m.errSeq++
	seq := m.errSeq
	return tea.Tick(autoClearDuration(currErr), func(time.Time) tea.Msg {
		return clearErrMsg{seq: seq}
	})
}

func autoClearDuration(msg string) time.Duration {
	if strings.HasPrefix(strings.TrimSpace(msg), "✓") {
		return 5 * time.Second
	}
	return 10 * time.Second
}

func (m *Model) handleResponse(resp task.Response) {
	if m.busy > 0 {
		m.busy--
	}
	sys := m.profiles[0]

	switch r := resp.(type) {
	case task.Loaded:
		sys.Doc = hosts.NewDocument(m.session(r.Content), r.Content)
		sys.ReadOnly = !r.Writable
		if m.current() == sys {
			m.afterDocChange()
		}
		if r.Writable {
			m.err = fmt.Errorf("✓ Loaded %s", r.Path)
		} else {
			m.err = fmt.Errorf("⚠ %s is read-only, run hed with sudo to save it", r.Path)
		}

	case task.LoadFailed:
		m.err = fmt.Errorf("failed to load %s: %v", r.Path, r.Err)

	case task.Saved:
		if p := m.applying; p != nil {
			m.applying = nil
			sys.Doc.Load(r.Content)
			if m.current() == sys {
				m.afterDocChange()
			}
			now := time.Now()
			if m.store != nil {
				if err := m.store.MarkApplied(p.ID, now); err == nil {
					p.AppliedAt = &now
				}
			}
			m.err = fmt.Errorf("✓ Applied %s to %s", p.Name, r.Path)
			return
		}
		sys.Doc.MarkSaved(r.Content)
		m.err = fmt.Errorf("✓ Saved %s%s", r.Path, saveDetails(r))

	case task.SaveFailed:
		m.applying = nil
		if errors.Is(r.Err, hostsfile.ErrPermission) {
			m.err = fmt.Errorf("⚠ %v", r.Err)
			return
		}
		m.err = fmt.Errorf("save failed: %v", r.Err)
	}
}

func saveDetails(r task.Saved) string {
	var parts []string
	if r.Backup != "" {
		parts = append(parts, "backup "+filepath.Base(r.Backup))
	}
	if r.Revision != "" {
		parts = append(parts, "rev "+r.Revision)
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

// session builds the parse session for content, sharing the model's id
// allocator.
func (m *Model) session(content string) *hosts.Session {
	return hosts.NewSession(m.ids, m.cfg.LineEnding(content))
}

func (m *Model) current() *Profile {
	if m.profileIdx < 0 || m.profileIdx >= len(m.profiles) {
		return nil
	}
	return m.profiles[m.profileIdx]
}

// loadProfiles refreshes stored profiles from the store. Profiles already
// open keep their document so unsaved edits survive.
func (m *Model) loadProfiles() error {
	if m.store == nil {
		return nil
	}
	models, err := m.store.GetProfiles()
	if err != nil {
		return err
	}

	open := make(map[int64]*Profile, len(m.profiles))
	for _, p := range m.profiles {
		if !p.System {
			open[p.ID] = p
		}
	}
	cur := m.current()

	next := []*Profile{m.profiles[0]}
	for _, pm := range models {
		p, ok := open[pm.ID]
		if !ok {
			p = &Profile{ID: pm.ID, Doc: hosts.NewDocument(m.session(pm.Content), pm.Content)}
		}
		p.Name = pm.Name
		p.AppliedAt = pm.AppliedAt
		next = append(next, p)
	}
	m.profiles = next

	m.profileIdx = 0
	for i, p := range next {
		if p == cur {
			m.profileIdx = i
		}
	}
	return nil
}

func (m *Model) selectProfile(id int64) {
	for i, p := range m.profiles {
		if !p.System && p.ID == id {
			m.profileIdx = i
		}
	}
	m.rowIdx = 0
	m.afterDocChange()
}

func (m *Model) changedProfiles() []string {
	var names []string
	for _, p := range m.profiles {
		if p.Doc.Changed() {
			names = append(names, p.Name)
		}
	}
	return names
}

// afterDocChange refreshes everything derived from the current document.
func (m *Model) afterDocChange() {
	m.rebuildRows()
	if p := m.current(); p != nil {
		m.editor.SetValue(editorText(p.Doc.Draft()))
	}
}

// syncEditor moves text typed into the text view into the document.
func (m *Model) syncEditor() {
	p := m.current()
	if !m.textMode || p == nil {
		return
	}
	text := p.Doc.LineEnding().Convert(m.editor.Value())
	if text == p.Doc.Draft() {
		return
	}
	p.Doc.SetDraft(text)
	m.rebuildRows()
}

// editorText converts to the "\n" separated text the text area works with.
func editorText(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func (m *Model) rebuildRows() {
	p := m.current()
	if p == nil {
		m.rows = nil
		return
	}
	var rows []row
	for _, e := range p.Doc.Search(strings.TrimSpace(m.searchInput.Value())) {
		rows = append(rows, row{entryID: e.ID})
		for _, h := range e.Hosts {
			rows = append(rows, row{entryID: e.ID, hostID: h.ID})
		}
	}
	m.rows = rows
	m.rowIdx = clampIdx(m.rowIdx, len(rows))
}

func (m *Model) selectRow(r row) {
	for i, x := range m.rows {
		if x == r {
			m.rowIdx = i
			return
		}
	}
}

// selected returns the entry under the cursor and, on a host row, the host.
func (m *Model) selected() (hosts.Entry, *hosts.Host, bool) {
	if m.rowIdx < 0 || m.rowIdx >= len(m.rows) {
		return hosts.Entry{}, nil, false
	}
	r := m.rows[m.rowIdx]
	entries := m.current().Doc.Entries()
	ei := hosts.FindEntry(entries, r.entryID)
	if ei < 0 {
		return hosts.Entry{}, nil, false
	}
	e := entries[ei]
	if r.hostID == 0 {
		return e, nil, true
	}
	for i := range e.Hosts {
		if e.Hosts[i].ID == r.hostID {
			return e, &e.Hosts[i], true
		}
	}
	return e, nil, true
}

// edit applies fn to the current document. The cursor stays on the same
// row when it survives the edit, even if reconciling reordered the hosts.
func (m *Model) edit(fn func([]hosts.Entry) ([]hosts.Entry, error)) error {
	if err := m.current().Doc.Edit(fn); err != nil {
		return err
	}
	var prev row
	hadRow := m.rowIdx >= 0 && m.rowIdx < len(m.rows)
	if hadRow {
		prev = m.rows[m.rowIdx]
	}
	m.afterDocChange()
	if hadRow {
		m.selectRow(prev)
	}
	return nil
}

func (m *Model) startTask(inv task.Invoke) tea.Cmd {
	m.handler.Invoke(m.ctx, inv)
	m.busy++
	if m.busy == 1 {
		return m.spinner.Tick
	}
	return nil
}

func (m *Model) move(delta int) {
	if m.focus == focusProfiles {
		next := clampIdx(m.profileIdx+delta, len(m.profiles))
		if next != m.profileIdx {
			m.syncEditor()
			m.profileIdx = next
			m.rowIdx = 0
			m.afterDocChange()
		}
		return
	}
	if !m.textMode {
		m.rowIdx = clampIdx(m.rowIdx+delta, len(m.rows))
	}
}

func (m *Model) toggleView() {
	if m.textMode {
		m.syncEditor()
		m.textMode = false
		m.editor.Blur()
		return
	}
	m.textMode = true
	m.editor.SetValue(editorText(m.current().Doc.Draft()))
	if m.focus == focusEditor {
		m.editor.Focus()
	}
}

func (m *Model) toggleFocus() tea.Cmd {
	if m.focus == focusEditor {
		m.syncEditor()
		m.focus = focusProfiles
		m.editor.Blur()
		return nil
	}
	m.focus = focusEditor
	if m.textMode {
		return m.editor.Focus()
	}
	return nil
}

func (m Model) requestQuit() (tea.Model, tea.Cmd) {
	if m.viewMode == ViewModeConfirm && m.confirm != nil && m.confirm.kind == confirmQuit {
		return m, tea.Quit
	}
	m.syncEditor()
	changed := m.changedProfiles()
	if len(changed) == 0 {
		return m, tea.Quit
	}
	m.openConfirm(&confirmState{
		kind:  confirmQuit,
		title: "Unsaved Changes",
		lines: append([]string{"These profiles have unsaved edits:"}, changed...),
		label: "Quit",
	})
	return m, nil
}

// handleKeyPress processes keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.requestQuit()
	}

	switch m.viewMode {
	case ViewModeForm:
		return m.handleFormKeys(msg)
	case ViewModeConfirm:
		return m.handleConfirmKeys(msg)
	case ViewModeSettings:
		return m.handleSettingsKeys(msg)
	case ViewModeHelp:
		switch msg.String() {
		case "?", "esc", "q":
			m.viewMode = ViewModeMain
		}
		return m, nil
	}
	return m.handleMainKeys(msg)
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searching = false
		m.searchInput.SetValue("")
		m.searchInput.Blur()
		m.rebuildRows()
		return m, nil
	case "enter":
		m.searching = false
		m.searchInput.Blur()
		m.focus = focusEditor
		return m, nil
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.rowIdx = 0
	m.rebuildRows()
	return m, cmd
}

func (m Model) handleMainKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.searching {
		return m.handleSearchKeys(msg)
	}

	if m.textMode && m.focus == focusEditor {
		switch key {
		case "ctrl+s":
			m.syncEditor()
			return m.save()
		case "ctrl+r":
			m.reset()
			return m, nil
		case "esc", "tab":
			return m, m.toggleFocus()
		}
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		return m, cmd
	}

	switch key {
	case "q":
		return m.requestQuit()

	case "?":
		m.viewMode = ViewModeHelp

	case ",":
		m.openSettings()

	case "tab":
		return m, m.toggleFocus()

	case "v":
		m.toggleView()

	case "up", "k":
		if key == "k" && !m.cfg.UI.VimMode {
			return m, nil
		}
		m.move(-1)

	case "down", "j":
		if key == "j" && !m.cfg.UI.VimMode {
			return m, nil
		}
		m.move(1)

	case "ctrl+u":
		m.move(-10)

	case "ctrl+d":
		m.move(10)

	case "/", "ctrl+f":
		m.searching = true
		m.searchInput.Focus()
		return m, textinput.Blink

	case "esc":
		if m.searchInput.Value() != "" {
			m.searchInput.SetValue("")
			m.rebuildRows()
		}

	case "ctrl+s":
		return m.save()

	case "ctrl+r":
		m.reset()

	case "p":
		m.syncEditor()
		m.current().Doc.Pretty()
		m.afterDocChange()
		m.err = fmt.Errorf("✓ Formatted %s", m.current().Name)

	case "a":
		m.syncEditor()
		return m, m.openForm(&form{
			kind:   formAddEntry,
			title:  "Add Entry",
			submit: "Add",
			labels: []string{"Address", "Hosts"},
			inputs: []textinput.Model{newInput("127.0.0.1", ""), newInput("example.test www.example.test", "")},
		})

	case "P":
		return m, m.openForm(&form{
			kind:   formNewProfile,
			title:  "New Profile",
			submit: "Create",
			labels: []string{"Name"},
			inputs: []textinput.Model{newInput("Profile name", "")},
		})

	case "E", "X", "A":
		return m.handleProfileKey(key)

	case " ", "n", "r", "R", "d", "D", "y":
		return m.handleEntryKey(key)
	}

	return m, nil
}

func (m Model) handleProfileKey(key string) (tea.Model, tea.Cmd) {
	p := m.current()
	if p.System {
		m.err = fmt.Errorf("⚠ select a stored profile first")
		return m, nil
	}

	switch key {
	case "E":
		return m, m.openForm(&form{
			kind:    formRenameProfile,
			title:   "Rename Profile",
			submit:  "Rename",
			labels:  []string{"Name"},
			inputs:  []textinput.Model{newInput("Profile name", p.Name)},
			profile: p,
		})
	case "X":
		m.openConfirm(&confirmState{
			kind:    confirmDeleteProfile,
			title:   "Delete Profile",
			lines:   []string{"Delete profile " + p.Name + "?", "This cannot be undone."},
			label:   "Delete",
			danger:  true,
			profile: p,
		})
	case "A":
		lines := []string{"Write " + p.Name + " to " + m.hostsPath + "?"}
		if m.profiles[0].Doc.Changed() {
			lines = append(lines, "Unsaved edits to "+db.SystemProfileName+" will be discarded.")
		}
		m.openConfirm(&confirmState{
			kind:    confirmApplyProfile,
			title:   "Apply Profile",
			lines:   lines,
			label:   "Apply",
			profile: p,
		})
	}
	return m, nil
}

func (m Model) handleEntryKey(key string) (tea.Model, tea.Cmd) {
	if m.textMode {
		m.err = fmt.Errorf("⚠ switch to the options view (v) to edit entries")
		return m, nil
	}
	e, h, ok := m.selected()
	if !ok {
		m.err = fmt.Errorf("⚠ select an entry first")
		return m, nil
	}

	var err error
	switch key {
	case " ":
		if h != nil {
			err = m.edit(func(es []hosts.Entry) ([]hosts.Entry, error) {
				return hosts.ToggleHost(es, e.ID, h.ID)
			})
		} else {
			on, _ := e.HostNames()
			err = m.edit(func(es []hosts.Entry) ([]hosts.Entry, error) {
				return hosts.SetEntryEnabled(es, e.ID, len(on) == 0)
			})
		}

	case "n":
		return m, m.openForm(&form{
			kind:    formAddHosts,
			title:   "Add Hosts to " + e.Address,
			submit:  "Add",
			labels:  []string{"Hosts"},
			inputs:  []textinput.Model{newInput("example.test", "")},
			entryID: e.ID,
		})

	case "r":
		if h == nil {
			return m.handleEntryKey("R")
		}
		return m, m.openForm(&form{
			kind:    formRenameHost,
			title:   "Rename Host",
			submit:  "Rename",
			labels:  []string{"Name"},
			inputs:  []textinput.Model{newInput("example.test", h.Name)},
			entryID: e.ID,
			hostID:  h.ID,
		})

	case "R":
		return m, m.openForm(&form{
			kind:    formSetAddress,
			title:   "Change Address",
			submit:  "Change",
			labels:  []string{"Address"},
			inputs:  []textinput.Model{newInput("127.0.0.1", e.Address)},
			entryID: e.ID,
		})

	case "d":
		if h == nil {
			return m.handleEntryKey("D")
		}
		err = m.edit(func(es []hosts.Entry) ([]hosts.Entry, error) {
			return hosts.DeleteHost(es, e.ID, h.ID)
		})

	case "D":
		err = m.edit(func(es []hosts.Entry) ([]hosts.Entry, error) {
			return hosts.DeleteEntry(es, e.ID)
		})

	case "y":
		line := entryLine(e)
		if err := m.copyText(line); err != nil {
			m.err = fmt.Errorf("failed to copy: %v", err)
			return m, nil
		}
		m.err = fmt.Errorf("Copied: %s", line)
	}

	if err != nil {
		m.err = err
	}
	return m, nil
}

// entryLine renders the enabled hosts of e as a hosts file line, or the
// disabled ones when nothing is enabled.
func entryLine(e hosts.Entry) string {
	on, off := e.HostNames()
	if len(on) > 0 {
		return hosts.ValidLine(e.Address, on, true).String()
	}
	return hosts.ValidLine(e.Address, off, false).String()
}

func (m *Model) reset() {
	m.syncEditor()
	p := m.current()
	if !p.Doc.Changed() {
		m.err = fmt.Errorf("ℹ nothing to reset")
		return
	}
	p.Doc.Reset()
	m.afterDocChange()
	m.err = fmt.Errorf("✓ Discarded edits to %s", p.Name)
}

func (m Model) save() (tea.Model, tea.Cmd) {
	p := m.current()
	if !p.Doc.Changed() {
		m.err = fmt.Errorf("ℹ nothing to save")
		return m, nil
	}

	if !p.System {
		if err := m.store.UpdateProfileContent(p.ID, p.Doc.Draft()); err != nil {
			m.err = fmt.Errorf("failed to save profile: %w", err)
			return m, nil
		}
		p.Doc.Save()
		m.err = fmt.Errorf("✓ Saved %s", p.Name)
		return m, nil
	}

	if m.handler == nil {
		m.err = errors.New("hosts file access is not available")
		return m, nil
	}
	if m.busy > 0 {
		m.err = fmt.Errorf("⚠ still busy, try again in a moment")
		return m, nil
	}
	backupDir, err := m.cfg.BackupDir()
	if err != nil {
		m.err = err
		return m, nil
	}
	cmd := m.startTask(task.Save{
		Path:       m.hostsPath,
		Content:    p.Doc.Draft(),
		BackupDir:  backupDir,
		MaxBackups: m.cfg.Hosts.MaxBackups,
		Message:    "Update hosts",
	})
	return m, cmd
}

func (m Model) applyProfile(p *Profile) (tea.Model, tea.Cmd) {
	if m.handler == nil {
		m.err = errors.New("hosts file access is not available")
		return m, nil
	}
	if m.busy > 0 {
		m.err = fmt.Errorf("⚠ still busy, try again in a moment")
		return m, nil
	}
	if p.Doc.Changed() {
		if err := m.store.UpdateProfileContent(p.ID, p.Doc.Draft()); err != nil {
			m.err = fmt.Errorf("failed to save profile: %w", err)
			return m, nil
		}
		p.Doc.Save()
	}
	backupDir, err := m.cfg.BackupDir()
	if err != nil {
		m.err = err
		return m, nil
	}

	m.applying = p
	cmd := m.startTask(task.Save{
		Path:       m.hostsPath,
		Content:    m.profiles[0].Doc.LineEnding().Convert(p.Doc.Content()),
		BackupDir:  backupDir,
		MaxBackups: m.cfg.Hosts.MaxBackups,
		Message:    "Apply profile " + p.Name,
	})
	return m, cmd
}

// View renders the UI
func (m Model) View() string {
	switch m.viewMode {
	case ViewModeForm:
		return m.styles.RenderFormModal(m.width, m.height, m.formData())
	case ViewModeConfirm:
		return m.styles.RenderConfirmModal(m.width, m.height, m.confirmData())
	case ViewModeSettings:
		return m.styles.RenderSettingsView(m.width, m.height, m.cfg, m.settingsIdx, m.settingsEditing, m.settingsInput, m.err)
	case ViewModeHelp:
		return m.styles.RenderHelpView(m.width, m.height)
	}
	return m.styles.RenderMainView(m.width, m.height, m.mainView())
}

func (m Model) mainView() ui.MainView {
	v := ui.MainView{
		ProfileIdx:    m.profileIdx,
		EditorFocused: m.focus == focusEditor,
		TextMode:      m.textMode,
		RowIdx:        m.rowIdx,
		Editor:        m.editor,
		Search:        m.searchInput,
		Searching:     m.searching,
		Path:          m.hostsPath,
		Busy:          m.busy > 0,
		Spinner:       m.spinner.View(),
		Notice:        m.err,
	}
	for _, p := range m.profiles {
		v.Profiles = append(v.Profiles, ui.ProfileItem{
			Name:      p.Name,
			System:    p.System,
			Changed:   p.Doc.Changed(),
			ReadOnly:  p.ReadOnly,
			AppliedAt: p.AppliedAt,
		})
	}

	p := m.current()
	if p == nil {
		return v
	}
	v.Stats = p.Doc.Stats()
	byID := make(map[uint64]hosts.Entry, len(p.Doc.Entries()))
	for _, e := range p.Doc.Entries() {
		byID[e.ID] = e
	}
	for _, r := range m.rows {
		e := byID[r.entryID]
		if r.hostID == 0 {
			v.Rows = append(v.Rows, ui.EditorRow{Address: e.Address})
			continue
		}
		for _, h := range e.Hosts {
			if h.ID == r.hostID {
				v.Rows = append(v.Rows, ui.EditorRow{Address: e.Address, Host: h.Name, Enabled: h.Enabled, IsHost: true})
			}
		}
	}
	return v
}

func clampIdx(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}
