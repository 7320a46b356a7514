package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hedhosts/hed/internal/hosts"
)

type listedEntry struct {
	Address  string   `json:"address"`
	Enabled  []string `json:"enabled"`
	Disabled []string `json:"disabled"`
}

func (c *cli) newListCmd() *cobra.Command {
	var asJSON bool
	var query string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries of the hosts file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, doc, err := c.load()
			if err != nil {
				return err
			}
			var listed []listedEntry
			for _, e := range doc.Search(query) {
				on, off := e.HostNames()
				listed = append(listed, listedEntry{Address: e.Address, Enabled: on, Disabled: off})
			}

			if asJSON {
				enc := json.NewEncoder(c.out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Entries []listedEntry `json:"entries"`
					Stats   hosts.Stats   `json:"stats"`
				}{listed, doc.Stats()})
			}

			w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ADDRESS\tENABLED\tDISABLED")
			for _, e := range listed {
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.Address, strings.Join(e.Enabled, " "), strings.Join(e.Disabled, " "))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			s := doc.Stats()
			c.log.Debug("%d entries, %d hosts on, %d off, %d comments", s.Entries, s.EnabledHosts, s.DisabledHosts, s.CommentLines)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().StringVarP(&query, "search", "s", "", "only entries whose address or hosts contain this text")
	return cmd
}

func (c *cli) newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <address> <host>...",
		Short: "Map hosts to an address",
		Long:  "Map hosts to an address. Hosts join the existing entry for the address if there is one.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			address := args[0]
			names := hosts.SplitHostNames(strings.Join(args[1:], " "))
			return c.edit(cmd.Context(), "Add "+address, func(doc *hosts.Document) error {
				return doc.Edit(func(es []hosts.Entry) ([]hosts.Entry, error) {
					out, _, err := hosts.AddEntry(es, doc.IDs(), address, names)
					return out, err
				})
			})
		},
	}
}

func (c *cli) newEnableCmd(enable bool) *cobra.Command {
	use, short, verb := "enable <host>...", "Enable hosts", "Enable"
	if !enable {
		use, short, verb = "disable <host>...", "Disable hosts, keeping them as comments", "Disable"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.edit(cmd.Context(), verb+" "+strings.Join(args, " "), func(doc *hosts.Document) error {
				return doc.Edit(func(es []hosts.Entry) ([]hosts.Entry, error) {
					for _, name := range args {
						var n int
						es, n = hosts.SetEnabledByName(es, name, enable)
						if n == 0 {
							return nil, fmt.Errorf("`%s`: %w", name, hosts.ErrHostNotFound)
						}
					}
					return es, nil
				})
			})
		},
	}
}

func (c *cli) newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <host>...",
		Aliases: []string{"remove"},
		Short:   "Remove hosts from every entry",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.edit(cmd.Context(), "Remove "+strings.Join(args, " "), func(doc *hosts.Document) error {
				return doc.Edit(func(es []hosts.Entry) ([]hosts.Entry, error) {
					for _, name := range args {
						var n int
						es, n = hosts.RemoveByName(es, name)
						if n == 0 {
							return nil, fmt.Errorf("`%s`: %w", name, hosts.ErrHostNotFound)
						}
					}
					return es, nil
				})
			})
		},
	}
}

func (c *cli) newRemoveEntryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm-entry <address>",
		Short: "Remove the entry for an address with all of its hosts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address := args[0]
			return c.edit(cmd.Context(), "Remove "+address, func(doc *hosts.Document) error {
				return doc.Edit(func(es []hosts.Entry) ([]hosts.Entry, error) {
					i := hosts.FindAddress(es, address)
					if i < 0 {
						return nil, fmt.Errorf("`%s`: %w", address, hosts.ErrEntryNotFound)
					}
					return hosts.DeleteEntry(es, es[i].ID)
				})
			})
		},
	}
}

func (c *cli) newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Rename a host in every entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.edit(cmd.Context(), "Rename "+args[0]+" to "+args[1], func(doc *hosts.Document) error {
				return doc.Edit(func(es []hosts.Entry) ([]hosts.Entry, error) {
					out, n, err := hosts.RenameByName(es, args[0], args[1])
					if err != nil {
						return nil, err
					}
					if n == 0 {
						return nil, fmt.Errorf("`%s`: %w", args[0], hosts.ErrHostNotFound)
					}
					return out, nil
				})
			})
		},
	}
}

func (c *cli) newPrettyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pretty",
		Short: "Normalize the hosts file layout",
		Long:  "Merge lines for the same address and normalize spacing, keeping every mapping, comment and unrecognized line.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.edit(cmd.Context(), "Pretty", func(doc *hosts.Document) error {
				doc.Pretty()
				return nil
			})
		},
	}
}

func (c *cli) newCatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat",
		Short: "Print the hosts file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, doc, err := c.load()
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(c.out, doc.Content())
			return err
		},
	}
}
