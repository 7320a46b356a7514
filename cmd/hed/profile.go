package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hedhosts/hed/internal/bundle"
	"github.com/hedhosts/hed/internal/db"
	"github.com/hedhosts/hed/internal/hostsfile"
	"github.com/hedhosts/hed/internal/securestore"
)

func (c *cli) newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "profile",
		Aliases: []string{"profiles"},
		Short:   "Manage stored hosts profiles",
	}
	cmd.AddCommand(
		c.newProfileListCmd(),
		c.newProfileSaveCmd(),
		c.newProfileRemoveCmd(),
		c.newProfileApplyCmd(),
		c.newProfileImportCmd(),
		c.newProfileExportCmd(),
		c.newProfileResetCmd(),
	)
	return cmd
}

// lastAppliedKey is the database setting naming the profile applied last.
const lastAppliedKey = "last_applied_profile"

// withStore opens the profile database for the duration of fn.
func (c *cli) withStore(fn func(*db.Store) error) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	c.log.Debug("profile database: %s", store.Path())
	return fn(store)
}

func (c *cli) newProfileListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withStore(func(s *db.Store) error {
				profiles, err := s.GetProfiles()
				if err != nil {
					return err
				}
				if len(profiles) == 0 {
					c.log.Info("no profiles yet, create one with `hed profile save <name>` or press P in the editor")
					return nil
				}
				last, err := s.GetSetting(lastAppliedKey)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "\tNAME\tUPDATED\tAPPLIED")
				for _, p := range profiles {
					mark, applied := "", "-"
					if p.AppliedAt != nil {
						applied = p.AppliedAt.Local().Format("2006-01-02 15:04")
					}
					if strings.EqualFold(p.Name, last) {
						mark = "*"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", mark, p.Name, p.UpdatedAt.Local().Format("2006-01-02 15:04"), applied)
				}
				return w.Flush()
			})
		},
	}
}

func (c *cli) newProfileSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <name>",
		Short: "Store the current hosts file as a profile",
		Long:  "Store the current hosts file as a profile, replacing the content of a profile with the same name.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := hostsfile.Read(c.hostsPath())
			if err != nil {
				return err
			}
			return c.withStore(func(s *db.Store) error {
				created, _, err := bundle.Import(s, bundle.Bundle{
					Version:  bundle.Version,
					Profiles: []bundle.Profile{{Name: args[0], Content: content}},
				})
				if err != nil {
					return err
				}
				if created > 0 {
					c.log.Success("Created profile %s", args[0])
				} else {
					c.log.Success("Updated profile %s", args[0])
				}
				return nil
			})
		},
	}
}

func (c *cli) newProfileRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <name>",
		Aliases: []string{"delete"},
		Short:   "Delete a profile",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(func(s *db.Store) error {
				p, err := s.GetProfileByName(args[0])
				if err != nil {
					return err
				}
				if err := s.DeleteProfile(p.ID); err != nil {
					return err
				}
				c.log.Success("Deleted profile %s", p.Name)
				return nil
			})
		},
	}
}

func (c *cli) newProfileApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply <name>",
		Short: "Write a profile to the hosts file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(func(s *db.Store) error {
				p, err := s.GetProfileByName(args[0])
				if err != nil {
					return err
				}
				path := c.hostsPath()
				current, err := hostsfile.Read(path)
				if err != nil {
					return err
				}
				content := c.cfg.LineEnding(current).Convert(p.Content)
				if _, err := c.save(cmd.Context(), path, content, "Apply profile "+p.Name); err != nil {
					return err
				}
				if err := s.MarkApplied(p.ID, time.Now()); err != nil {
					c.log.Warn("failed to record apply time: %v", err)
				}
				if err := s.SetSetting(lastAppliedKey, p.Name); err != nil {
					c.log.Warn("failed to remember applied profile: %v", err)
				}
				c.log.Success("Applied %s to %s", p.Name, path)
				return nil
			})
		},
	}
}

func (c *cli) newProfileImportCmd() *cobra.Command {
	var passphrase string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import profiles from a bundle (- reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to read bundle: %w", err)
			}
			b, err := bundle.Decode(data, passphrase)
			if err != nil {
				return err
			}
			return c.withStore(func(s *db.Store) error {
				created, updated, err := bundle.Import(s, b)
				if err != nil {
					return err
				}
				c.log.Success("Imported %d profiles (%d new, %d updated)", len(b.Profiles), created, updated)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "passphrase of an encrypted bundle")
	return cmd
}

func (c *cli) newProfileExportCmd() *cobra.Command {
	var out, passphrase string

	cmd := &cobra.Command{
		Use:   "export [name...]",
		Short: "Export profiles to a YAML bundle",
		Long:  "Export profiles to a YAML bundle, all of them when no names are given. With --passphrase the bundle is encrypted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(func(s *db.Store) error {
				b, err := bundle.Export(s, args, time.Now())
				if err != nil {
					return err
				}
				data, err := bundle.Encode(b, passphrase)
				if err != nil {
					return err
				}
				if out == "" || out == "-" {
					_, err = c.out.Write(data)
					return err
				}
				if err := os.WriteFile(out, data, 0600); err != nil {
					return fmt.Errorf("failed to write bundle: %w", err)
				}
				c.log.Success("Exported %d profiles to %s", len(b.Profiles), out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to this file instead of stdout")
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "encrypt the bundle with this passphrase")
	return cmd
}

func (c *cli) newProfileResetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the profile database and its key",
		Long: `Delete the profile database and forget the key it is encrypted with. Use
this when the key was lost from the keyring and the database can no longer be
opened. Every profile is lost; export them first if you still can.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			exists, err := db.Exists()
			if err != nil {
				return err
			}
			if !exists {
				c.log.Info("no profile database to reset")
				return nil
			}
			if !yes {
				return fmt.Errorf("this deletes every profile, run again with --yes to confirm")
			}
			if err := db.Delete(); err != nil {
				return fmt.Errorf("failed to delete profile database: %w", err)
			}
			if err := securestore.ClearDBSecret(); err != nil {
				return fmt.Errorf("failed to clear database key: %w", err)
			}
			c.log.Success("Profile database deleted")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting every profile")
	return cmd
}
