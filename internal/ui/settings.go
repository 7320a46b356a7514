package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"

	"github.com/hedhosts/hed/internal/config"
)

// Settings rows, in display order.
const (
	SettingVimMode = iota
	SettingDefaultView
	SettingLineEnding
	SettingBackup
	SettingMaxBackups
	SettingBackupDir
	SettingHistory
	SettingHistoryRemote
	SettingHistoryBranch
	SettingLookupServer
	SettingsCount
)

type settingsRow struct {
	label       string
	value       string
	description string
	disabled    bool
}

func (s *Styles) RenderSettingsView(width, height int, cfg config.Config, selectedIdx int, editing bool, input textinput.Model, err error) string {
	rows := buildSettingsRows(cfg)
	selectedIdx = clamp(selectedIdx, 0, len(rows)-1)

	modalWidth := clamp((width*85)/100, 60, 86)
	innerWidth := modalWidth - 6
	contentWidth := innerWidth - 2

	var b strings.Builder
	b.WriteString(s.ModalTitle.Render("Settings"))
	b.WriteString("\n")
	if err != nil {
		b.WriteString(s.renderFooterNotice(err.Error()))
		b.WriteString("\n")
	}

	for i, r := range rows {
		left, right := r.label, r.value
		if r.disabled {
			left = s.HelpValue.Render(left)
			right = s.HelpValue.Render(right)
		}
		marker := "  "
		if i == selectedIdx {
			marker = "▸ "
		}
		lineWidth := contentWidth - lipgloss.Width(marker)
		valueWidth := 24
		labelWidth := lineWidth - valueWidth - 2

		labelView := lipgloss.NewStyle().Width(labelWidth).Render(truncateString(left, labelWidth))
		valueView := lipgloss.NewStyle().Width(valueWidth).Align(lipgloss.Right).Render(truncateString(right, valueWidth))
		line := marker + lipgloss.JoinHorizontal(lipgloss.Center, labelView, "  ", valueView)
		if i == selectedIdx {
			b.WriteString(s.ListItemSelected.Width(innerWidth).Render(line))
		} else {
			b.WriteString(s.ListItem.Width(innerWidth).Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if desc := rows[selectedIdx].description; desc != "" {
		b.WriteString(s.HelpValue.Render(desc))
		b.WriteString("\n")
	}
	if editing {
		b.WriteString("\n")
		input.Prompt = ""
		b.WriteString(s.FormInputFocused.Width(innerWidth).Render(input.View()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	help := "[↑/↓] Navigate • [Enter] Change • [Esc] Save & Back"
	if editing {
		help = "[Enter] Apply • [Esc] Cancel"
	}
	b.WriteString(s.HelpValue.Render(help))

	box := s.Modal.Width(modalWidth).Render(b.String())
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

func buildSettingsRows(cfg config.Config) []settingsRow {
	backupOff := !cfg.Hosts.Backup
	historyOff := !cfg.History.Enabled

	rows := make([]settingsRow, SettingsCount)
	rows[SettingVimMode] = settingsRow{
		label:       "UI: Vim navigation",
		value:       onOff(cfg.UI.VimMode),
		description: "Enables j/k navigation in lists.",
	}
	rows[SettingDefaultView] = settingsRow{
		label:       "UI: Default view",
		value:       string(cfg.UI.DefaultView),
		description: "View a profile opens in (options or text).",
	}
	rows[SettingLineEnding] = settingsRow{
		label:       "Hosts: Line ending",
		value:       string(cfg.Hosts.LineEnding),
		description: "auto keeps the file's own line endings.",
	}
	rows[SettingBackup] = settingsRow{
		label:       "Hosts: Backups",
		value:       onOff(cfg.Hosts.Backup),
		description: "Copies the hosts file aside before every write.",
	}
	rows[SettingMaxBackups] = settingsRow{
		label:       "Hosts: Max backups",
		value:       fmt.Sprintf("%d", cfg.Hosts.MaxBackups),
		description: "Older backups are pruned. 0 keeps all of them.",
		disabled:    backupOff,
	}
	rows[SettingBackupDir] = settingsRow{
		label:       "Hosts: Backup directory",
		value:       emptyAs(cfg.Hosts.BackupDir, "(default)"),
		description: "Empty uses the backups folder in the data directory.",
		disabled:    backupOff,
	}
	rows[SettingHistory] = settingsRow{
		label:       "History: Enabled",
		value:       onOff(cfg.History.Enabled),
		description: "Commits every saved hosts file to a local git repository.",
	}
	rows[SettingHistoryRemote] = settingsRow{
		label:       "History: Remote URL",
		value:       emptyAs(cfg.History.RemoteURL, "(not set)"),
		description: "Optional remote for `hed history push`.",
		disabled:    historyOff,
	}
	rows[SettingHistoryBranch] = settingsRow{
		label:       "History: Branch",
		value:       cfg.History.Branch,
		description: "Branch history is committed to.",
		disabled:    historyOff,
	}
	rows[SettingLookupServer] = settingsRow{
		label:       "Lookup: DNS server",
		value:       emptyAs(cfg.Lookup.Server, "(resolv.conf)"),
		description: "Upstream resolver for `hed lookup`.",
	}
	return rows
}

func onOff(v bool) string {
	if v {
		return "On"
	}
	return "Off"
}

func emptyAs(v, alt string) string {
	if strings.TrimSpace(v) == "" {
		return alt
	}
	return v
}
