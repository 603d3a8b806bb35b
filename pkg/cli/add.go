package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/pkgindex/pkg/dependencies"
)

func newAddCommand(opts *rootOptions) *cobra.Command {
	var noVerify bool

	cmd := &cobra.Command{
		Use:   "add MANIFEST...",
		Short: "Validate manifests and add them to the index",
		Long: `Validate each manifest's dependencies against the index and add it.
Manifests are added in order, so a later manifest may depend on an earlier one.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				defer a.recordIndexSize(ctx)

				for _, path := range args {
					m, err := loadManifest(path)
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}

					if !noVerify {
						err := a.check(ctx, func(c *dependencies.Checker) error {
							return c.Validate(ctx, m)
						})
						if err != nil {
							return fmt.Errorf("%s: %w", path, err)
						}
					}

					if _, err := a.writer().AddManifest(ctx, m); err != nil {
						return fmt.Errorf("failed to add %s: %w", path, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "added %s %s\n", m.ID, m.Version)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "Skip the dependency check")

	return cmd
}
