package history

import (
	"fmt"

	"github.com/hedhosts/hed/internal/config"
)

// FromConfig opens the history repository described by cfg. It returns a
// nil Repo and no error when history is disabled.
func FromConfig(cfg *config.Config) (*Repo, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	path, err := cfg.HistoryPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get history path: %w", err)
	}
	return Open(Options{
		Path:        path,
		RemoteURL:   cfg.History.RemoteURL,
		Branch:      cfg.History.Branch,
		SSHKeyPath:  cfg.History.SSHKeyPath,
		AuthorName:  cfg.History.AuthorName,
		AuthorEmail: cfg.History.AuthorEmail,
	})
}
