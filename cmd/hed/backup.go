package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hedhosts/hed/internal/history"
	"github.com/hedhosts/hed/internal/hostsfile"
)

// backupDir is where backups live even when automatic backups are off, so
// manual backups and restores keep working.
func (c *cli) backupDir() (string, error) {
	cfg := c.cfg
	cfg.Hosts.Backup = true
	return cfg.BackupDir()
}

func (c *cli) newBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Back up the hosts file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := c.backupDir()
			if err != nil {
				return err
			}
			path, err := hostsfile.Backup(c.hostsPath(), dir, time.Now())
			if err != nil {
				return err
			}
			if n := c.cfg.Hosts.MaxBackups; n > 0 {
				if _, err := hostsfile.Prune(dir, n); err != nil {
					c.log.Warn("failed to prune backups: %v", err)
				}
			}
			c.log.Success("Backup created: %s", path)
			return nil
		},
	}
}

func (c *cli) newBackupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backups",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := c.backupDir()
			if err != nil {
				return err
			}
			list, err := hostsfile.ListBackups(dir)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				c.log.Info("no backups in %s", dir)
				return nil
			}
			w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSIZE\tCREATED")
			for _, b := range list {
				fmt.Fprintf(w, "%s\t%d\t%s\n", b.Name, b.Size, b.Created.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}
}

func (c *cli) newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup>",
		Short: "Restore the hosts file from a backup",
		Long:  "Restore the hosts file from a backup listed by `hed backups`. The current file is backed up first.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := c.backupDir()
			if err != nil {
				return err
			}
			path := c.hostsPath()
			prev, err := hostsfile.Backup(path, dir, time.Now())
			if err != nil {
				return fmt.Errorf("failed to back up current file: %w", err)
			}
			c.log.Debug("current file saved as %s", prev)

			if err := hostsfile.Restore(dir, args[0], path); err != nil {
				return err
			}
			c.log.Success("Restored %s from %s", path, args[0])
			return nil
		},
	}
}

func (c *cli) openHistory() (*history.Repo, error) {
	repo, err := history.FromConfig(&c.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	if repo == nil {
		return nil, errors.New("history is disabled, enable it in the settings (,) or config.json")
	}
	return repo, nil
}

func (c *cli) newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded versions of the hosts file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := c.openHistory()
			if err != nil {
				return err
			}
			revs, err := repo.List(limit)
			if err != nil {
				return err
			}
			if len(revs) == 0 {
				c.log.Info("no history yet")
				return nil
			}
			w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "REV\tWHEN\tMESSAGE")
			for _, r := range revs {
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.Short, r.When.Format("2006-01-02 15:04:05"), r.Message)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of revisions to show (0 for all)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show <rev>",
			Short: "Print the hosts file as of a revision",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				repo, err := c.openHistory()
				if err != nil {
					return err
				}
				content, err := repo.Show(args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(c.out, content)
				return err
			},
		},
		&cobra.Command{
			Use:   "restore <rev>",
			Short: "Write the hosts file as of a revision",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				repo, err := c.openHistory()
				if err != nil {
					return err
				}
				content, err := repo.Show(args[0])
				if err != nil {
					return err
				}
				path := c.hostsPath()
				if _, err := c.save(cmd.Context(), path, content, "Restore "+args[0]); err != nil {
					return err
				}
				c.log.Success("Restored %s to revision %s", path, args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "push",
			Short: "Push history to the configured remote",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				repo, err := c.openHistory()
				if err != nil {
					return err
				}
				if !repo.HasRemote() {
					return history.ErrNoRemote
				}
				if err := repo.Push(cmd.Context()); err != nil {
					return err
				}
				c.log.Success("History pushed to %s", c.cfg.History.RemoteURL)
				return nil
			},
		},
	)
	return cmd
}
