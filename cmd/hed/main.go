// hed edits the hosts file, from a terminal UI or one command at a time.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/hedhosts/hed/internal/app"
	"github.com/hedhosts/hed/internal/config"
	"github.com/hedhosts/hed/internal/db"
	"github.com/hedhosts/hed/internal/history"
	"github.com/hedhosts/hed/internal/hosts"
	"github.com/hedhosts/hed/internal/hostsfile"
	"github.com/hedhosts/hed/internal/logging"
	"github.com/hedhosts/hed/internal/task"
)

// version is set via ldflags at build time
var version = "dev"

// envDebug routes the standard logger to a file while the TUI runs.
const envDebug = "HED_DEBUG"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(version)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cli holds the global flags and what every subcommand derives from them.
type cli struct {
	file    string
	quiet   bool
	verbose bool
	crlf    bool

	cfg config.Config
	log *logging.Logger
	out io.Writer
}

func newRootCmd(ver string) *cobra.Command {
	c := &cli{}

	cmd := &cobra.Command{
		Use:   "hed",
		Short: "Hosts file editor",
		Long: `hed edits the hosts file and keeps named profiles of it.

Run without a subcommand to open the editor. Saving the system hosts file
needs administrator rights (sudo on Linux and macOS).`,
		Version:       ver,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runTUI(cmd.Context())
		},
	}

	f := cmd.PersistentFlags()
	f.StringVarP(&c.file, "file", "f", "", "hosts file to edit (default: the system hosts file)")
	f.BoolVarP(&c.quiet, "quiet", "q", false, "only print errors")
	f.BoolVarP(&c.verbose, "verbose", "v", false, "print debug output")
	f.BoolVar(&c.crlf, "crlf", false, "write CRLF line endings")

	cmd.AddCommand(
		c.newListCmd(),
		c.newAddCmd(),
		c.newEnableCmd(true),
		c.newEnableCmd(false),
		c.newRemoveCmd(),
		c.newRemoveEntryCmd(),
		c.newRenameCmd(),
		c.newPrettyCmd(),
		c.newCatCmd(),
		c.newBackupCmd(),
		c.newBackupsCmd(),
		c.newRestoreCmd(),
		c.newHistoryCmd(),
		c.newProfileCmd(),
		c.newLookupCmd(),
		newVersionCmd(ver),
	)
	return cmd
}

func (c *cli) setup(cmd *cobra.Command) error {
	c.out = cmd.OutOrStdout()
	c.log = logging.New(cmd.ErrOrStderr(), c.quiet, c.verbose)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if c.file != "" {
		cfg.Hosts.Path = c.file
	}
	if c.crlf {
		cfg.Hosts.LineEnding = config.LineEndingCRLF
	}
	c.cfg = cfg
	c.log.Debug("hosts file: %s (elevated: %v)", c.hostsPath(), hostsfile.Elevated())
	return nil
}

func (c *cli) hostsPath() string {
	if c.file != "" {
		return c.file
	}
	return c.cfg.HostsPath()
}

func newVersionCmd(ver string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "hed %s\n", ver)
			fmt.Fprintf(out, "  go: %s\n", runtime.Version())
			fmt.Fprintf(out, "  os/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// openStore opens the profile database. Callers that can run without
// profiles treat an error as "no profiles".
func openStore() (*db.Store, error) {
	store, err := db.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open profile database: %w", err)
	}
	return store, nil
}

// newHandler builds the task handler, recording saves into history when
// that is enabled.
func (c *cli) newHandler() (*task.Handler, error) {
	repo, err := history.FromConfig(&c.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	var rec task.Recorder
	if repo != nil {
		rec = repo
	}
	return task.NewHandler(rec), nil
}

func (c *cli) runTUI(ctx context.Context) error {
	if os.Getenv(envDebug) != "" {
		f, err := tea.LogToFile("hed-debug.log", "debug")
		if err != nil {
			return fmt.Errorf("failed to open debug log: %w", err)
		}
		defer f.Close()
	}

	handler, err := c.newHandler()
	if err != nil {
		return err
	}

	opts := app.Options{Config: c.cfg, Handler: handler}
	store, err := openStore()
	if err != nil {
		c.log.Warn("profiles unavailable: %v", err)
	} else {
		defer store.Close()
		opts.Store = store
	}

	ctx, cancel := context.WithCancel(ctx)
	defer handler.Wait()
	defer cancel()

	p := tea.NewProgram(app.New(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}

// load reads the hosts file into a document.
func (c *cli) load() (string, *hosts.Document, error) {
	path := c.hostsPath()
	content, err := hostsfile.Read(path)
	if err != nil {
		return path, nil, err
	}
	doc := hosts.NewDocument(hosts.NewSession(nil, c.cfg.LineEnding(content)), content)
	return path, doc, nil
}

// save writes content to path through the task handler, so the CLI backs up
// and records history exactly like the editor does.
func (c *cli) save(ctx context.Context, path, content, message string) (task.Saved, error) {
	backupDir, err := c.cfg.BackupDir()
	if err != nil {
		return task.Saved{}, err
	}
	handler, err := c.newHandler()
	if err != nil {
		return task.Saved{}, err
	}
	handler.Invoke(ctx, task.Save{
		Path:       path,
		Content:    content,
		BackupDir:  backupDir,
		MaxBackups: c.cfg.Hosts.MaxBackups,
		Message:    message,
	})

	select {
	case resp := <-handler.Responses():
		handler.Wait()
		switch r := resp.(type) {
		case task.Saved:
			if r.Backup != "" {
				c.log.Debug("backup: %s", r.Backup)
			}
			if r.Revision != "" {
				c.log.Debug("history revision: %s", r.Revision)
			}
			return r, nil
		case task.SaveFailed:
			return task.Saved{}, r.Err
		}
		return task.Saved{}, fmt.Errorf("unexpected response %T", resp)
	case <-ctx.Done():
		handler.Wait()
		return task.Saved{}, ctx.Err()
	}
}

// edit loads the hosts file, runs fn on its document and saves the result
// when anything changed.
func (c *cli) edit(ctx context.Context, message string, fn func(doc *hosts.Document) error) error {
	path, doc, err := c.load()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	if !doc.Changed() {
		c.log.Info("%s is already up to date", path)
		return nil
	}
	if _, err := c.save(ctx, path, doc.Draft(), message); err != nil {
		return err
	}
	c.log.Success("%s: %s", message, path)
	return nil
}
