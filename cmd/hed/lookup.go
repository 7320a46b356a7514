package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hedhosts/hed/internal/resolve"
)

// maxLookups bounds the names queried at once.
const maxLookups = 8

func (c *cli) newLookupCmd() *cobra.Command {
	var server string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "lookup <host>...",
		Short: "Compare hosts file mappings with upstream DNS",
		Long: `Show what the hosts file maps each name to next to the A and AAAA answers
of an upstream resolver. Names whose enabled mapping differs from the public
answer are marked as shadowed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, doc, err := c.load()
			if err != nil {
				return err
			}
			if server == "" {
				server = c.cfg.Lookup.Server
			}
			r := resolve.New(server)
			c.log.Debug("resolver: %s", r.Server)

			comparisons := make([]resolve.Comparison, len(args))
			failures := make([]error, len(args))
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(maxLookups)
			for i, name := range args {
				i, name := i, name
				g.Go(func() error {
					ans, err := r.Lookup(ctx, name)
					if err != nil {
						// One failing name should not hide the others.
						failures[i] = err
					}
					comparisons[i] = resolve.Compare(doc.Entries(), strings.ToLower(name), ans)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			for _, err := range failures {
				if err != nil {
					c.log.Warn("%v", err)
				}
			}

			if asJSON {
				enc := json.NewEncoder(c.out)
				enc.SetIndent("", "  ")
				return enc.Encode(comparisons)
			}

			w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tHOSTS FILE\tUPSTREAM\tSTATUS")
			for i, cmp := range comparisons {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", cmp.Name, formatMappings(cmp.Mappings), formatUpstream(cmp.Upstream), status(cmp, failures[i]))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "upstream DNS server (default: config, then resolv.conf)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func formatMappings(ms []resolve.Mapping) string {
	if len(ms) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(ms))
	for _, m := range ms {
		if m.Enabled {
			parts = append(parts, m.Address)
		} else {
			parts = append(parts, "("+m.Address+")")
		}
	}
	return strings.Join(parts, " ")
}

func formatUpstream(a resolve.Answer) string {
	switch {
	case a.NXDomain:
		return "NXDOMAIN"
	case len(a.Addresses) == 0:
		return "-"
	}
	return strings.Join(a.Addresses, " ")
}

func status(cmp resolve.Comparison, err error) string {
	switch {
	case err != nil:
		return "lookup failed"
	case cmp.Shadowed:
		return "shadowed"
	case len(cmp.Mappings) == 0:
		return "dns only"
	}
	for _, m := range cmp.Mappings {
		if m.Enabled {
			return "ok"
		}
	}
	return "disabled"
}
