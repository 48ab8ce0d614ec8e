package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okian/pythians/internal/domain/catalog"
)

func newScrapeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "scrape <" + strings.Join(catalog.Names(), "|") + "> [id]",
		Short: "Print a resource, or one entity of it, as JSON",
		Long: `Scrape runs the same projection and folding as the HTTP API and prints
the result to stdout. Without an id the whole collection is printed.`,
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: catalog.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			resource := args[0]
			if _, ok := catalog.Lookup(resource); !ok {
				return fmt.Errorf("unknown resource %q; want one of %s", resource, strings.Join(catalog.Names(), ", "))
			}
			ctx := cmd.Context()
			cfg, err := bootstrap(ctx, flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			svc, err := openService(ctx, cfg)
			if err != nil {
				return err
			}
			defer svc.Stop()

			var out any
			if len(args) == 2 {
				out, err = svc.Get(ctx, resource, args[1])
			} else {
				out, err = svc.List(ctx, resource)
			}
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}
