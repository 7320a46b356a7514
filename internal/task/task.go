// Package task runs hosts file I/O off the UI goroutine and reports results
// on a channel.
package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hedhosts/hed/internal/hostsfile"
)

// QueueSize is the capacity of the response channel.
const QueueSize = 100

// Invoke is a request for the handler.
type Invoke interface{ invoke() }

// Load reads the file at Path.
type Load struct {
	Path string
}

// Save writes Content to Path, backing up the previous file first when
// BackupDir is set.
type Save struct {
	Path       string
	Content    string
	BackupDir  string
	MaxBackups int
	Message    string
}

func (Load) invoke() {}
func (Save) invoke() {}

// Response is a result delivered on Handler.Responses.
type Response interface{ response() }

type Loaded struct {
	Path     string
	Content  string
	Writable bool
}

type LoadFailed struct {
	Path string
	Err  error
}

type Saved struct {
	Path     string
	Content  string
	Backup   string
	Revision string
}

type SaveFailed struct {
	Path string
	Err  error
}

func (Loaded) response()     {}
func (LoadFailed) response() {}
func (Saved) response()      {}
func (SaveFailed) response() {}

// Recorder records a saved hosts file, typically as a commit in the
// history repository. It returns a short revision id.
type Recorder interface {
	Record(ctx context.Context, content, message string) (string, error)
}

// Handler executes invokes on their own goroutines.
type Handler struct {
	responses chan Response
	recorder  Recorder
	now       func() time.Time
	wg        sync.WaitGroup
}

// NewHandler creates a handler. recorder may be nil.
func NewHandler(recorder Recorder) *Handler {
	return &Handler{
		responses: make(chan Response, QueueSize),
		recorder:  recorder,
		now:       time.Now,
	}
}

// Responses returns the channel results are delivered on.
func (h *Handler) Responses() <-chan Response {
	return h.responses
}

// Invoke starts inv in the background. The result is dropped if ctx is
// cancelled before it can be delivered.
func (h *Handler) Invoke(ctx context.Context, inv Invoke) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		var resp Response
		switch v := inv.(type) {
		case Load:
			resp = h.load(v)
		case Save:
			resp = h.save(ctx, v)
		default:
			return
		}
		select {
		case h.responses <- resp:
		case <-ctx.Done():
		}
	}()
}

// Wait blocks until every started invoke has finished.
func (h *Handler) Wait() {
	h.wg.Wait()
}

func (h *Handler) load(l Load) Response {
	content, err := hostsfile.Read(l.Path)
	if err != nil {
		return LoadFailed{Path: l.Path, Err: err}
	}
	return Loaded{Path: l.Path, Content: content, Writable: hostsfile.CanWrite(l.Path)}
}

func (h *Handler) save(ctx context.Context, s Save) Response {
	var backup string
	if s.BackupDir != "" {
		var err error
		backup, err = hostsfile.Backup(s.Path, s.BackupDir, h.now())
		if err != nil {
			return SaveFailed{Path: s.Path, Err: err}
		}
	}

	if err := hostsfile.Write(s.Path, s.Content); err != nil {
		return SaveFailed{Path: s.Path, Err: err}
	}

	if s.BackupDir != "" && s.MaxBackups > 0 {
		if _, err := hostsfile.Prune(s.BackupDir, s.MaxBackups); err != nil {
			return SaveFailed{Path: s.Path, Err: fmt.Errorf("saved, but failed to prune backups: %w", err)}
		}
	}

	var rev string
	if h.recorder != nil {
		msg := s.Message
		if msg == "" {
			msg = "Update hosts"
		}
		var err error
		rev, err = h.recorder.Record(ctx, s.Content, msg)
		if err != nil {
			return SaveFailed{Path: s.Path, Err: fmt.Errorf("saved, but failed to record history: %w", err)}
		}
	}

	return Saved{Path: s.Path, Content: s.Content, Backup: backup, Revision: rev}
}
