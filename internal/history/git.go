// Package history keeps every saved hosts file as a commit in a local git
// repository, optionally pushed to a remote.
package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

// FileName is the tracked file inside the repository.
const FileName = "hosts"

var ErrNoRemote = errors.New("no history remote configured")

// Options configures a history repository.
type Options struct {
	Path        string
	RemoteURL   string
	Branch      string
	SSHKeyPath  string
	AuthorName  string
	AuthorEmail string
}

// Revision is one recorded version of the hosts file.
type Revision struct {
	Hash    string    `json:"hash"`
	Short   string    `json:"short"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	When    time.Time `json:"when"`
}

// Repo wraps the history repository. Methods are safe for concurrent use.
type Repo struct {
	mu   sync.Mutex
	opts Options
	repo *git.Repository
}

// Open opens the repository at opts.Path, initializing it on first use.
func Open(opts Options) (*Repo, error) {
	if opts.Branch == "" {
		opts.Branch = "main"
	}
	if err := os.MkdirAll(opts.Path, 0700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	repo, err := git.PlainOpen(opts.Path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		repo, err = git.PlainInitWithOptions(opts.Path, &git.PlainInitOptions{
			InitOptions: git.InitOptions{
				DefaultBranch: plumbing.NewBranchReferenceName(opts.Branch),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize history repository: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to open history repository: %w", err)
	}

	r := &Repo{opts: opts, repo: repo}
	if err := r.ensureRemote(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repo) ensureRemote() error {
	if r.opts.RemoteURL == "" {
		return nil
	}
	remote, err := r.repo.Remote("origin")
	if err == nil {
		urls := remote.Config().URLs
		if len(urls) > 0 && urls[0] == r.opts.RemoteURL {
			return nil
		}
		if err := r.repo.DeleteRemote("origin"); err != nil {
			return fmt.Errorf("failed to replace remote: %w", err)
		}
	} else if !errors.Is(err, git.ErrRemoteNotFound) {
		return fmt.Errorf("failed to read remote: %w", err)
	}
	_, err = r.repo.CreateRemote(&config.RemoteConfig{
		Name: "origin",
		URLs: []string{r.opts.RemoteURL},
	})
	if err != nil {
		return fmt.Errorf("failed to add remote: %w", err)
	}
	return nil
}

// Record commits content as the new hosts file and returns the short hash
// of HEAD. Content identical to HEAD creates no commit.
func (r *Repo) Record(_ context.Context, content, message string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.WriteFile(filepath.Join(r.opts.Path, FileName), []byte(content), 0600); err != nil {
		return "", fmt.Errorf("failed to write history file: %w", err)
	}

	w, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}
	if _, err := w.Add(FileName); err != nil {
		return "", fmt.Errorf("failed to stage history file: %w", err)
	}

	status, err := w.Status()
	if err != nil {
		return "", fmt.Errorf("failed to get status: %w", err)
	}
	if status.IsClean() {
		head, err := r.repo.Head()
		if err != nil {
			return "", fmt.Errorf("failed to read HEAD: %w", err)
		}
		return head.Hash().String()[:7], nil
	}

	hash, err := w.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  r.opts.AuthorName,
			Email: r.opts.AuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}
	return hash.String()[:7], nil
}

// List returns up to limit revisions, newest first. limit <= 0 means all.
func (r *Repo) List(limit int) ([]Revision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	head, err := r.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return []Revision{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read HEAD: %w", err)
	}

	iter, err := r.repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	defer iter.Close()

	revs := []Revision{}
	err = iter.ForEach(func(c *object.Commit) error {
		if limit > 0 && len(revs) >= limit {
			return storer.ErrStop
		}
		h := c.Hash.String()
		revs = append(revs, Revision{
			Hash:    h,
			Short:   h[:7],
			Message: strings.TrimSpace(c.Message),
			Author:  c.Author.Name,
			When:    c.Author.When,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk log: %w", err)
	}
	return revs, nil
}

// Show returns the hosts file as recorded at rev (a hash, short hash or
// any revision git understands, such as HEAD~2).
func (r *Repo) Show(rev string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return "", fmt.Errorf("unknown revision %q: %w", rev, err)
	}
	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return "", fmt.Errorf("failed to load commit: %w", err)
	}
	f, err := commit.File(FileName)
	if err != nil {
		return "", fmt.Errorf("revision %s has no hosts file: %w", rev, err)
	}
	return f.Contents()
}

// Push sends the branch to the configured remote.
func (r *Repo) Push(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.opts.RemoteURL == "" {
		return ErrNoRemote
	}
	auth, err := r.auth()
	if err != nil {
		return err
	}

	ref := plumbing.NewBranchReferenceName(r.opts.Branch)
	err = r.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		Auth:       auth,
		RefSpecs:   []config.RefSpec{config.RefSpec(ref + ":" + ref)},
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to push: %w", err)
	}
	return nil
}

// HasRemote returns true if a remote is configured
func (r *Repo) HasRemote() bool {
	return r.opts.RemoteURL != ""
}

func (r *Repo) auth() (transport.AuthMethod, error) {
	ep, err := transport.NewEndpoint(r.opts.RemoteURL)
	if err == nil && (ep.Protocol == "file" || ep.Protocol == "http" || ep.Protocol == "https") {
		return nil, nil
	}

	keyPath := r.opts.SSHKeyPath
	if keyPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		for _, name := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
			p := filepath.Join(home, ".ssh", name)
			if _, err := os.Stat(p); err == nil {
				keyPath = p
				break
			}
		}
	}
	if keyPath == "" {
		return nil, fmt.Errorf("no SSH key found")
	}

	auth, err := ssh.NewPublicKeysFromFile("git", keyPath, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load SSH key: %w", err)
	}
	return auth, nil
}
