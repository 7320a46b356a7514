package app

import (
	"time"

	"github.com/hedhosts/hed/internal/hosts"
)

// Profile is one editable hosts text: the system hosts file or a stored
// profile.
type Profile struct {
	ID        int64 // 0 for the system profile
	Name      string
	System    bool
	ReadOnly  bool
	AppliedAt *time.Time
	Doc       *hosts.Document
}

// ViewMode represents the current view state
type ViewMode int

const (
	ViewModeMain ViewMode = iota
	ViewModeForm
	ViewModeConfirm
	ViewModeSettings
	ViewModeHelp
)

// String returns the string representation of ViewMode
func (v ViewMode) String() string {
	switch v {
	case ViewModeMain:
		return "main"
	case ViewModeForm:
		return "form"
	case ViewModeConfirm:
		return "confirm"
	case ViewModeSettings:
		return "settings"
	case ViewModeHelp:
		return "help"
	default:
		return "unknown"
	}
}

type focusArea int

const (
	focusProfiles focusArea = iota
	focusEditor
)

type formKind int

const (
	formAddEntry formKind = iota
	formAddHosts
	formRenameHost
	formSetAddress
	formNewProfile
	formRenameProfile
)

type confirmKind int

const (
	confirmDeleteProfile confirmKind = iota
	confirmApplyProfile
	confirmQuit
)

// row is one line of the options view. hostID is 0 on the address row of
// an entry.
type row struct {
	entryID uint64
	hostID  uint64
}
