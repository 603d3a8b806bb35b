package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/pkgindex/pkg/dependencies"
	"github.com/platinummonkey/pkgindex/pkg/index"
)

func newGraphCommand(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "graph MANIFEST",
		Short: "Print the dependency graph of a manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "dot" && format != "json" {
				return fmt.Errorf("unsupported format: %s (must be dot or json)", format)
			}

			m, err := loadManifest(args[0])
			if err != nil {
				return err
			}

			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				var g *dependencies.Graph
				err := a.view(ctx, func(idx index.Index) error {
					var err error
					g, err = dependencies.ManifestGraph(ctx, idx, m)
					return err
				})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if format == "dot" {
					_, err := fmt.Fprint(out, dependencies.ToDOT(g))
					return err
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(dependencies.ToCytoscape(g))
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "dot", "Output format (dot or json)")

	return cmd
}
