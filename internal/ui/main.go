package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"

	"github.com/hedhosts/hed/internal/hosts"
)

// ProfileItem is one row of the profile panel.
type ProfileItem struct {
	Name      string
	System    bool
	Changed   bool
	ReadOnly  bool
	AppliedAt *time.Time
}

// EditorRow is one line of the options view: either an entry address or one
// of its hosts.
type EditorRow struct {
	Address string
	Host    string
	Enabled bool
	IsHost  bool
}

// MainView carries everything the two-panel layout needs.
type MainView struct {
	Profiles      []ProfileItem
	ProfileIdx    int
	EditorFocused bool

	TextMode bool
	Rows     []EditorRow
	RowIdx   int
	Editor   textarea.Model

	Search    textinput.Model
	Searching bool

	Path    string
	Stats   hosts.Stats
	Busy    bool
	Spinner string
	Notice  error
}

// footerHeight reserves the notice line even when there is no notice so
// the panels keep their size.
const footerHeight = 4

func layout(width, height int) (left, right, panel int) {
	panel = height - 2 - footerHeight - 2
	if panel < 3 {
		panel = 3
	}
	left = width / 4
	if left < 20 {
		left = 20
	}
	right = width - left - 2
	return left, right, panel
}

// EditorSize returns the text area dimensions for a terminal of the given
// size.
func EditorSize(width, height int) (int, int) {
	_, right, panel := layout(width, height)
	return right - 4, panel - 1
}

// RenderMainView renders the profile panel next to the editor panel.
func (s *Styles) RenderMainView(width, height int, v MainView) string {
	left, right, panel := layout(width, height)

	var view strings.Builder
	view.WriteString(s.RenderHeader(width, v))
	view.WriteString("\n")
	view.WriteString(lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.renderProfiles(v, left, panel),
		s.renderEditor(v, right, panel),
	))
	view.WriteString("\n")
	view.WriteString(s.RenderFooter(width, v))
	return view.String()
}

// RenderHeader renders the title bar with the file path and busy state.
func (s *Styles) RenderHeader(width int, v MainView) string {
	title := s.Title.Render("hed")
	if v.Path != "" {
		title += " " + s.HelpValue.Render(v.Path)
	}

	var right string
	switch {
	case v.Busy:
		right = v.Spinner + " " + s.HelpValue.Render("Working...")
	case v.Searching:
		right = s.HelpValue.Render("Search: ") + v.Search.View()
	case v.Search.Value() != "":
		right = s.HelpValue.Render("Filter: " + v.Search.Value())
	default:
		right = s.HelpKey.Render("[?]") + " " + s.HelpValue.Render("Help")
	}

	spacing := width - lipgloss.Width(title) - lipgloss.Width(right) - 4
	if spacing < 0 {
		spacing = 0
	}
	header := lipgloss.JoinHorizontal(lipgloss.Center, title, strings.Repeat(" ", spacing), right)
	return s.Header.Width(width - 2).Render(header)
}

func (s *Styles) panel(focused bool) lipgloss.Style {
	if focused {
		return s.PanelBorderFocused
	}
	return s.PanelBorder
}

func (s *Styles) renderProfiles(v MainView, width, height int) string {
	var list strings.Builder
	list.WriteString(s.ListHeader.Render("PROFILES"))
	list.WriteString("\n")

	textWidth := width - 6
	for i, p := range v.Profiles {
		name := p.Name
		if p.Changed {
			name += " *"
		}
		if p.ReadOnly {
			name += " (ro)"
		}
		style := s.ListItem
		if i == v.ProfileIdx {
			style = s.ListItemSelected
		} else if p.System {
			style = style.Foreground(ColorSecondary)
		}
		list.WriteString(style.Width(width - 4).Render(truncateString(name, textWidth)))
		list.WriteString("\n")
	}

	if i := v.ProfileIdx; i >= 0 && i < len(v.Profiles) && v.Profiles[i].AppliedAt != nil {
		list.WriteString("\n")
		list.WriteString(s.HelpValue.Render("applied " + formatTimeAgo(*v.Profiles[i].AppliedAt)))
	}

	return s.panel(!v.EditorFocused).
		Width(width - 2).
		Height(height).
		Render(padLines(list.String(), height))
}

func (s *Styles) renderEditor(v MainView, width, height int) string {
	title := "OPTIONS"
	if v.TextMode {
		title = "TEXT"
	}
	var b strings.Builder
	b.WriteString(s.ListHeader.MarginBottom(0).Render(title))
	b.WriteString(s.HelpValue.Render(fmt.Sprintf(" %d entries, %d on, %d off",
		v.Stats.Entries, v.Stats.EnabledHosts, v.Stats.DisabledHosts)))
	b.WriteString("\n")

	if v.TextMode {
		b.WriteString(v.Editor.View())
	} else {
		b.WriteString(s.renderRows(v, width-4, height-1))
	}

	return s.panel(v.EditorFocused).
		Width(width - 2).
		Height(height).
		Render(padLines(b.String(), height))
}

func (s *Styles) renderRows(v MainView, width, height int) string {
	if len(v.Rows) == 0 {
		msg := "No entries. Press a to add one."
		if v.Search.Value() != "" {
			msg = "No entries match the filter."
		}
		return s.HelpValue.Render(msg)
	}

	start := 0
	if v.RowIdx >= height {
		start = v.RowIdx - height + 1
	}
	end := start + height
	if end > len(v.Rows) {
		end = len(v.Rows)
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		r := v.Rows[i]
		selected := v.EditorFocused && i == v.RowIdx
		var line string
		if !r.IsHost {
			style := s.EntryAddress
			if selected {
				style = s.HostSelected
			}
			line = style.Render(truncateString(r.Address, width))
		} else {
			mark, style := "[x] ", s.HostEnabled
			if !r.Enabled {
				mark, style = "[ ] ", s.HostDisabled
			}
			if selected {
				style = s.HostSelected
			}
			line = "  " + style.Render(truncateString(mark+r.Host, width-2))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// RenderFooter renders the notice line and key bindings.
func (s *Styles) RenderFooter(width int, v MainView) string {
	var footer strings.Builder
	if v.Notice != nil {
		footer.WriteString(s.renderFooterNotice(v.Notice.Error()))
	}
	footer.WriteString("\n")

	bindings := []string{
		s.HelpKey.Render("[tab]") + " " + s.HelpValue.Render("Focus"),
		s.HelpKey.Render("[v]") + " " + s.HelpValue.Render("View"),
		s.HelpKey.Render("[space]") + " " + s.HelpValue.Render("Toggle"),
		s.HelpKey.Render("[a]") + " " + s.HelpValue.Render("Add"),
		s.HelpKey.Render("[ctrl+s]") + " " + s.HelpValue.Render("Save"),
		s.HelpKey.Render("[A]") + " " + s.HelpValue.Render("Apply"),
		s.HelpKey.Render("[/]") + " " + s.HelpValue.Render("Search"),
		s.HelpKey.Render("[q]") + " " + s.HelpValue.Render("Quit"),
	}
	footer.WriteString(strings.Join(bindings, s.HelpSep.String()))
	return s.Footer.Width(width - 2).Render(footer.String())
}

func padLines(s string, height int) string {
	for h := lipgloss.Height(s); h < height; h++ {
		s += "\n"
	}
	return s
}

func truncateString(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	for lipgloss.Width(string(r)) > width-1 && len(r) > 0 {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}

type footerNoticeKind int

const (
	footerNoticeInfo footerNoticeKind = iota
	footerNoticeSuccess
	footerNoticeWarning
	footerNoticeError
)

func (s *Styles) renderFooterNotice(message string) string {
	kind := classifyFooterNotice(message)
	message = strings.TrimSpace(message)

	stripPrefix := func(prefixes ...string) {
		for _, p := range prefixes {
			if strings.HasPrefix(message, p) {
				message = strings.TrimSpace(strings.TrimPrefix(message, p))
				return
			}
		}
	}

	switch kind {
	case footerNoticeSuccess:
		stripPrefix("✓")
		return s.Success.Render("✓ " + message)
	case footerNoticeInfo:
		stripPrefix("ℹ")
		return s.Info.Render("ℹ " + message)
	case footerNoticeWarning:
		stripPrefix("⚠")
		return s.Warning.Render("! " + message)
	default:
		stripPrefix("✗")
		return s.Error.Render("✗ " + message)
	}
}

func classifyFooterNotice(message string) footerNoticeKind {
	msg := strings.TrimSpace(message)
	lower := strings.ToLower(msg)

	switch {
	case strings.HasPrefix(msg, "✓"):
		return footerNoticeSuccess
	case strings.HasPrefix(msg, "ℹ"), strings.HasPrefix(lower, "copied"), strings.HasPrefix(lower, "loading"):
		return footerNoticeInfo
	case strings.HasPrefix(msg, "⚠"), strings.Contains(lower, "is empty"), strings.Contains(lower, "not a valid"):
		return footerNoticeWarning
	}
	return footerNoticeError
}

// formatTimeAgo formats a time as a coarse human-readable age.
func formatTimeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour")
	default:
		return plural(int(d.Hours()/24), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
