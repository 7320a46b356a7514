package app

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hedhosts/hed/internal/config"
	"github.com/hedhosts/hed/internal/hosts"
	"github.com/hedhosts/hed/internal/ui"
)

// form holds the state of an input modal. focus runs over the inputs, then
// the submit and cancel buttons.
type form struct {
	kind   formKind
	title  string
	submit string
	labels []string
	inputs []textinput.Model
	focus  int
	err    error

	entryID uint64
	hostID  uint64
	profile *Profile
}

type confirmState struct {
	kind      confirmKind
	title     string
	lines     []string
	label     string
	danger    bool
	confirmed bool
	profile   *Profile
}

func newInput(placeholder, value string) textinput.Model {
	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = placeholder
	in.CharLimit = 256
	in.SetValue(value)
	return in
}

func (m *Model) openForm(f *form) tea.Cmd {
	f.inputs[0].Focus()
	f.inputs[0].CursorEnd()
	m.form = f
	m.viewMode = ViewModeForm
	return textinput.Blink
}

func (m *Model) closeForm() {
	m.form = nil
	m.viewMode = ViewModeMain
}

func (m Model) formData() ui.FormData {
	f := m.form
	if f == nil {
		return ui.FormData{}
	}
	data := ui.FormData{Title: f.title, SubmitLabel: f.submit, Focus: f.focus, Err: f.err}
	for i, in := range f.inputs {
		data.Fields = append(data.Fields, ui.FormField{Label: f.labels[i], Input: in})
	}
	return data
}

func (m Model) handleFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.form
	n := len(f.inputs) + 2

	setFocus := func(i int) {
		f.focus = (i + n) % n
		for j := range f.inputs {
			if j == f.focus {
				f.inputs[j].Focus()
			} else {
				f.inputs[j].Blur()
			}
		}
	}

	switch msg.String() {
	case "esc":
		m.closeForm()
		return m, nil
	case "tab", "down":
		setFocus(f.focus + 1)
		return m, nil
	case "shift+tab", "up":
		setFocus(f.focus - 1)
		return m, nil
	case "enter":
		if f.focus == len(f.inputs)+1 {
			m.closeForm()
			return m, nil
		}
		return m.submitForm()
	}

	if f.focus < len(f.inputs) {
		var cmd tea.Cmd
		f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
		f.err = nil
		return m, cmd
	}
	return m, nil
}

// parseAddress checks the address field of a form.
func parseAddress(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New("IP address is empty")
	}
	if !hosts.IsAddress(s) {
		return "", fmt.Errorf("`%s` is not a valid IP address", s)
	}
	return s, nil
}

// parseHostNames checks the hosts field of a form.
func parseHostNames(s string) ([]string, error) {
	names := hosts.SplitHostNames(s)
	if len(names) == 0 {
		return nil, errors.New("hosts is empty")
	}
	return names, nil
}

func (m Model) submitForm() (tea.Model, tea.Cmd) {
	f := m.form
	value := func(i int) string { return strings.TrimSpace(f.inputs[i].Value()) }

	var err error
	switch f.kind {
	case formAddEntry:
		err = m.submitAddEntry(value(0), value(1))
	case formAddHosts:
		err = m.submitAddHosts(f.entryID, value(0))
	case formRenameHost:
		err = m.edit(func(es []hosts.Entry) ([]hosts.Entry, error) {
			return hosts.RenameHost(es, f.entryID, f.hostID, value(0))
		})
	case formSetAddress:
		var address string
		if address, err = parseAddress(value(0)); err == nil {
			err = m.edit(func(es []hosts.Entry) ([]hosts.Entry, error) {
				return hosts.SetAddress(es, f.entryID, address)
			})
		}
	case formNewProfile:
		err = m.submitNewProfile(value(0))
	case formRenameProfile:
		err = m.submitRenameProfile(f.profile, value(0))
	}

	if err != nil {
		f.err = err
		return m, nil
	}
	m.closeForm()
	return m, nil
}

func (m *Model) submitAddEntry(addressText, hostsText string) error {
	address, err := parseAddress(addressText)
	if err != nil {
		return err
	}
	names, err := parseHostNames(hostsText)
	if err != nil {
		return err
	}
	var id uint64
	err = m.edit(func(es []hosts.Entry) ([]hosts.Entry, error) {
		out, eid, err := hosts.AddEntry(es, m.current().Doc.IDs(), address, names)
		id = eid
		return out, err
	})
	if err != nil {
		return err
	}
	m.selectRow(row{entryID: id})
	return nil
}

func (m *Model) submitAddHosts(entryID uint64, hostsText string) error {
	names, err := parseHostNames(hostsText)
	if err != nil {
		return err
	}
	return m.edit(func(es []hosts.Entry) ([]hosts.Entry, error) {
		return hosts.AddHosts(es, m.current().Doc.IDs(), entryID, names, true)
	})
}

func (m *Model) submitNewProfile(name string) error {
	if m.store == nil {
		return errors.New("profile storage is not available")
	}
	pm, err := m.store.CreateProfile(name, "")
	if err != nil {
		return err
	}
	m.syncEditor()
	if err := m.loadProfiles(); err != nil {
		return err
	}
	m.selectProfile(pm.ID)
	m.err = fmt.Errorf("✓ Created profile %s", pm.Name)
	return nil
}

func (m *Model) submitRenameProfile(p *Profile, name string) error {
	if err := m.store.RenameProfile(p.ID, name); err != nil {
		return err
	}
	if err := m.loadProfiles(); err != nil {
		return err
	}
	m.err = fmt.Errorf("✓ Renamed profile to %s", p.Name)
	return nil
}

func (m *Model) openConfirm(c *confirmState) {
	m.confirm = c
	m.viewMode = ViewModeConfirm
}

func (m *Model) closeConfirm() {
	m.confirm = nil
	m.viewMode = ViewModeMain
}

func (m Model) confirmData() ui.ConfirmData {
	c := m.confirm
	if c == nil {
		return ui.ConfirmData{}
	}
	return ui.ConfirmData{
		Title:        c.title,
		Lines:        c.lines,
		ConfirmLabel: c.label,
		Confirmed:    c.confirmed,
		Danger:       c.danger,
	}
}

func (m Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.confirm
	switch msg.String() {
	case "esc", "n", "N":
		m.closeConfirm()
	case "left", "right", "h", "l", "tab", "shift+tab":
		c.confirmed = !c.confirmed
	case "y", "Y":
		return m.runConfirm()
	case "enter":
		if c.confirmed {
			return m.runConfirm()
		}
		m.closeConfirm()
	}
	return m, nil
}

func (m Model) runConfirm() (tea.Model, tea.Cmd) {
	c := m.confirm
	m.closeConfirm()

	switch c.kind {
	case confirmQuit:
		return m, tea.Quit

	case confirmDeleteProfile:
		if err := m.store.DeleteProfile(c.profile.ID); err != nil {
			m.err = fmt.Errorf("failed to delete profile: %w", err)
			return m, nil
		}
		idx := m.profileIdx
		m.profiles = removeProfile(m.profiles, c.profile)
		m.err = fmt.Errorf("✓ Deleted profile %s", c.profile.Name)
		if err := m.loadProfiles(); err != nil {
			m.err = err
		}
		m.profileIdx = clampIdx(idx-1, len(m.profiles))
		m.rowIdx = 0
		m.afterDocChange()
		return m, nil

	case confirmApplyProfile:
		return m.applyProfile(c.profile)
	}
	return m, nil
}

func removeProfile(ps []*Profile, target *Profile) []*Profile {
	out := make([]*Profile, 0, len(ps))
	for _, p := range ps {
		if p != target {
			out = append(out, p)
		}
	}
	return out
}

func (m *Model) openSettings() {
	m.cfgOriginal = m.cfg
	m.settingsIdx = 0
	m.settingsEditing = false
	m.viewMode = ViewModeSettings
}

func (m Model) handleSettingsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.settingsEditing {
		switch key {
		case "esc":
			m.settingsEditing = false
			m.settingsInput.Blur()
			return m, nil
		case "enter":
			if err := m.applySettingValue(m.settingsInput.Value()); err != nil {
				m.err = err
				return m, nil
			}
			m.settingsEditing = false
			m.settingsInput.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.settingsInput, cmd = m.settingsInput.Update(msg)
		return m, cmd
	}

	startEdit := func(initial string) (tea.Model, tea.Cmd) {
		m.settingsEditing = true
		m.settingsInput.SetValue(initial)
		m.settingsInput.CursorEnd()
		m.settingsInput.Focus()
		return m, textinput.Blink
	}

	switch key {
	case "esc", "q", ",":
		if m.cfg != m.cfgOriginal {
			if err := m.saveConfig(m.cfg); err != nil {
				m.err = fmt.Errorf("failed to save settings: %v", err)
				return m, nil
			}
			m.err = fmt.Errorf("✓ Settings saved")
		}
		m.viewMode = ViewModeMain
		return m, nil

	case "up", "k":
		if key == "k" && !m.cfg.UI.VimMode {
			return m, nil
		}
		m.settingsIdx = clampIdx(m.settingsIdx-1, ui.SettingsCount)

	case "down", "j":
		if key == "j" && !m.cfg.UI.VimMode {
			return m, nil
		}
		m.settingsIdx = clampIdx(m.settingsIdx+1, ui.SettingsCount)

	case "enter", " ":
		switch m.settingsIdx {
		case ui.SettingVimMode:
			m.cfg.UI.VimMode = !m.cfg.UI.VimMode
		case ui.SettingDefaultView:
			if m.cfg.UI.DefaultView == config.ViewText {
				m.cfg.UI.DefaultView = config.ViewOptions
			} else {
				m.cfg.UI.DefaultView = config.ViewText
			}
		case ui.SettingLineEnding:
			m.cfg.Hosts.LineEnding = nextLineEnding(m.cfg.Hosts.LineEnding)
		case ui.SettingBackup:
			m.cfg.Hosts.Backup = !m.cfg.Hosts.Backup
		case ui.SettingHistory:
			m.cfg.History.Enabled = !m.cfg.History.Enabled
		case ui.SettingMaxBackups:
			return startEdit(strconv.Itoa(m.cfg.Hosts.MaxBackups))
		case ui.SettingBackupDir:
			return startEdit(m.cfg.Hosts.BackupDir)
		case ui.SettingHistoryRemote:
			return startEdit(m.cfg.History.RemoteURL)
		case ui.SettingHistoryBranch:
			return startEdit(m.cfg.History.Branch)
		case ui.SettingLookupServer:
			return startEdit(m.cfg.Lookup.Server)
		}
	}
	return m, nil
}

func (m *Model) applySettingValue(val string) error {
	val = strings.TrimSpace(val)
	switch m.settingsIdx {
	case ui.SettingMaxBackups:
		n, err := strconv.Atoi(val)
		if err != nil || n < 0 || n > 1000 {
			return fmt.Errorf("max backups must be a number between 0 and 1000")
		}
		m.cfg.Hosts.MaxBackups = n
	case ui.SettingBackupDir:
		m.cfg.Hosts.BackupDir = val
	case ui.SettingHistoryRemote:
		m.cfg.History.RemoteURL = val
	case ui.SettingHistoryBranch:
		if val == "" {
			val = "main"
		}
		m.cfg.History.Branch = val
	case ui.SettingLookupServer:
		m.cfg.Lookup.Server = val
	}
	return nil
}

func nextLineEnding(l config.LineEndingMode) config.LineEndingMode {
	switch l {
	case config.LineEndingAuto:
		return config.LineEndingLF
	case config.LineEndingLF:
		return config.LineEndingCRLF
	default:
		return config.LineEndingAuto
	}
}
