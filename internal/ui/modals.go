package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
)

// FormField is one labelled input of a form modal.
type FormField struct {
	Label string
	Input textinput.Model
}

// FormData describes a form modal. Focus indexes Fields, then the submit
// and cancel buttons.
type FormData struct {
	Title       string
	Fields      []FormField
	SubmitLabel string
	Focus       int
	Err         error
}

// RenderFormModal renders a centered form with one input per field.
func (s *Styles) RenderFormModal(width, height int, form FormData) string {
	modalWidth := clamp((width*70)/100, 36, 64)
	if modalWidth > width-2 {
		modalWidth = width - 2
	}
	rowWidth := modalWidth - 6
	if rowWidth < 18 {
		rowWidth = 18
	}

	var b strings.Builder
	b.WriteString(s.ModalTitle.Render(form.Title))
	b.WriteString("\n")

	for i, f := range form.Fields {
		style := s.FormInput
		if i == form.Focus {
			style = s.FormInputFocused
		}
		labelWidth := lipgloss.Width(s.FormLabel.Render(""))
		input := f.Input
		input.Width = rowWidth - labelWidth - 5
		row := lipgloss.JoinHorizontal(
			lipgloss.Center,
			s.FormLabel.Render(f.Label),
			style.Width(rowWidth-labelWidth-2).Render(input.View()),
		)
		b.WriteString(row)
		b.WriteString("\n")
	}

	if form.Err != nil {
		b.WriteString(s.Warning.Render(form.Err.Error()))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	submitStyle, cancelStyle := s.FormButton, s.FormButton
	switch form.Focus {
	case len(form.Fields):
		submitStyle = s.FormButtonFocused
	case len(form.Fields) + 1:
		cancelStyle = s.FormButtonFocused
	}
	label := form.SubmitLabel
	if label == "" {
		label = "OK"
	}
	buttons := lipgloss.JoinHorizontal(lipgloss.Top, submitStyle.Render(label), cancelStyle.Render("Cancel"))
	b.WriteString(lipgloss.PlaceHorizontal(rowWidth, lipgloss.Center, buttons))
	b.WriteString("\n\n")
	help := "[Tab] Next • [Shift+Tab] Prev • [Enter] Confirm • [Esc] Cancel"
	b.WriteString(s.HelpValue.Width(rowWidth).Align(lipgloss.Center).Render(help))

	box := s.Modal.Width(modalWidth).Render(b.String())
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

// ConfirmData describes a yes/no modal. Danger colors the confirm button red.
type ConfirmData struct {
	Title        string
	Lines        []string
	ConfirmLabel string
	Confirmed    bool
	Danger       bool
}

// RenderConfirmModal renders a two-button confirmation.
func (s *Styles) RenderConfirmModal(width, height int, c ConfirmData) string {
	modalWidth := clamp((width*70)/100, 40, 60)

	accent := ColorWarning
	if c.Danger {
		accent = ColorDanger
	}

	var b strings.Builder
	b.WriteString(s.ModalTitle.Foreground(accent).Render(c.Title))
	b.WriteString("\n")
	for _, l := range c.Lines {
		b.WriteString(s.DetailValue.Render(l))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	yes, no := s.FormButton, s.FormButton
	if c.Confirmed {
		yes = s.FormButtonFocused.Background(accent)
	} else {
		no = s.FormButtonFocused
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, yes.Render(c.ConfirmLabel), no.Render("Cancel")))
	b.WriteString("\n")
	b.WriteString(s.HelpValue.Render("[◄/►] Select • [Enter] Confirm • [Esc] Cancel"))

	box := s.Modal.BorderForeground(accent).Width(modalWidth - 4).Render(b.String())
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

// RenderHelpView renders the key binding reference.
func (s *Styles) RenderHelpView(width, height int) string {
	var help strings.Builder
	help.WriteString(s.ModalTitle.Render("Keyboard Shortcuts"))
	help.WriteString("\n")

	shortcuts := []struct {
		key  string
		desc string
	}{
		{"↑/↓ or j/k", "Move selection"},
		{"tab", "Switch between profiles and editor"},
		{"v", "Toggle options / text view"},
		{"space", "Enable or disable host"},
		{"a", "Add entry"},
		{"n", "Add hosts to entry"},
		{"r / R", "Rename host / change address"},
		{"d / D", "Delete host / delete entry"},
		{"y", "Copy entry line"},
		{"p", "Pretty print"},
		{"ctrl+s / ctrl+r", "Save / reset"},
		{"P / E / X", "New / rename / delete profile"},
		{"A", "Apply profile to system hosts"},
		{",", "Settings"},
		{"/", "Filter entries"},
		{"q or ctrl+c", "Quit"},
	}
	for _, sc := range shortcuts {
		help.WriteString(lipgloss.JoinHorizontal(
			lipgloss.Top,
			s.FormLabel.Width(18).Render(sc.key),
			s.DetailValue.Render(sc.desc),
		))
		help.WriteString("\n")
	}
	help.WriteString("\n")
	help.WriteString(s.HelpValue.Render("Press ? or Esc to close"))

	box := s.Modal.Render(help.String())
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
