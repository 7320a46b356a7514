package ui

import "github.com/charmbracelet/lipgloss"

// Palette. Enabled hosts are green, disabled ones fade to dim.
var (
	ColorPrimary   = lipgloss.Color("#2563EB")
	ColorSecondary = lipgloss.Color("#14B8A6")
	ColorAccent    = lipgloss.Color("#22C55E")
	ColorDanger    = lipgloss.Color("#F43F5E")
	ColorWarning   = lipgloss.Color("#EAB308")

	ColorText    = lipgloss.Color("#E2E8F0")
	ColorTextDim = lipgloss.Color("#94A3B8")
	ColorBorder  = lipgloss.Color("#475569")
	ColorBg      = lipgloss.Color("#1E293B")
	ColorBgAlt   = lipgloss.Color("#0F172A")
)

// Styles holds every style the views render with.
type Styles struct {
	Header             lipgloss.Style
	Footer             lipgloss.Style
	PanelBorder        lipgloss.Style
	PanelBorderFocused lipgloss.Style

	ListItem         lipgloss.Style
	ListItemSelected lipgloss.Style
	ListHeader       lipgloss.Style
	DetailValue      lipgloss.Style

	EntryAddress lipgloss.Style
	HostEnabled  lipgloss.Style
	HostDisabled lipgloss.Style
	HostSelected lipgloss.Style

	HelpKey   lipgloss.Style
	HelpValue lipgloss.Style
	HelpSep   lipgloss.Style

	Modal      lipgloss.Style
	ModalTitle lipgloss.Style

	FormLabel         lipgloss.Style
	FormInput         lipgloss.Style
	FormInputFocused  lipgloss.Style
	FormButton        lipgloss.Style
	FormButtonFocused lipgloss.Style

	Title   lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
	Info    lipgloss.Style
	Warning lipgloss.Style
}

func fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

func bold(c lipgloss.Color) lipgloss.Style {
	return fg(c).Bold(true)
}

// highlight is the inverted look of the row under the cursor.
func highlight() lipgloss.Style {
	return bold(ColorBgAlt).Background(ColorPrimary)
}

func boxed(border lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(border)
}

// NewStyles builds the default theme.
func NewStyles() *Styles {
	rule := boxed(ColorBorder).Padding(0, 1)
	input := rule.Foreground(ColorText)
	button := fg(ColorText).Background(ColorBg).Padding(0, 2).MarginRight(1)

	return &Styles{
		Header:             rule.Foreground(ColorPrimary).Bold(true).BorderBottom(true),
		Footer:             rule.Foreground(ColorTextDim).BorderTop(true),
		PanelBorder:        rule,
		PanelBorderFocused: rule.BorderForeground(ColorPrimary),

		ListItem:         fg(ColorText).Padding(0, 1),
		ListItemSelected: highlight().Padding(0, 1),
		ListHeader:       bold(ColorSecondary).Underline(true).Padding(0, 1).MarginBottom(1),
		DetailValue:      bold(ColorText),

		EntryAddress: bold(ColorSecondary),
		HostEnabled:  fg(ColorAccent),
		HostDisabled: fg(ColorTextDim).Strikethrough(true),
		HostSelected: highlight(),

		HelpKey:   bold(ColorSecondary),
		HelpValue: fg(ColorTextDim),
		HelpSep:   fg(ColorBorder).SetString(" · "),

		Modal:      boxed(ColorPrimary).Padding(1, 2).Width(60),
		ModalTitle: bold(ColorPrimary).PaddingBottom(1),

		FormLabel:         fg(ColorTextDim).Width(10).Align(lipgloss.Right).MarginRight(1),
		FormInput:         input,
		FormInputFocused:  input.BorderForeground(ColorPrimary),
		FormButton:        button,
		FormButtonFocused: button.Foreground(ColorBgAlt).Background(ColorPrimary).Bold(true),

		Title:   bold(ColorPrimary),
		Error:   bold(ColorDanger),
		Success: bold(ColorAccent),
		Info:    bold(ColorSecondary),
		Warning: bold(ColorWarning),
	}
}
