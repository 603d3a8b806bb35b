package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/pkgindex/pkg/dependencies"
	"github.com/platinummonkey/pkgindex/pkg/manifest"
)

func newCheckDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-delete PACKAGE VERSION",
		Short: "Report whether removing a manifest would break its dependents",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := &manifest.Manifest{ID: manifest.PackageID(args[0]), Version: args[1]}
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				_, err := canDelete(ctx, a, cmd.OutOrStdout(), m)
				return err
			})
		},
	}
}

func newRemoveCommand(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "remove PACKAGE VERSION",
		Short: "Remove a manifest from the index if no dependent breaks",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := &manifest.Manifest{ID: manifest.PackageID(args[0]), Version: args[1]}
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				v, err := m.ParsedVersion()
				if err != nil {
					return err
				}

				if !force {
					if _, err := canDelete(ctx, a, cmd.OutOrStdout(), m); err != nil {
						return err
					}
				}

				if err := a.writer().RemoveManifest(ctx, m.ID, v); err != nil {
					return fmt.Errorf("failed to remove %s %s: %w", m.ID, m.Version, err)
				}
				a.recordIndexSize(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s %s\n", m.ID, m.Version)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Remove even if dependents would break")

	return cmd
}

// canDelete runs the delete-impact analysis and prints its outcome.
func canDelete(ctx context.Context, a *app, out io.Writer, m *manifest.Manifest) (dependencies.DeleteImpact, error) {
	var impact dependencies.DeleteImpact
	err := a.check(ctx, func(c *dependencies.Checker) error {
		var err error
		impact, err = c.CanDelete(ctx, m)
		return err
	})

	if _, ok := dependencies.AsValidationErrors(err); err != nil && !ok {
		return impact, err
	}

	fmt.Fprintf(out, "%s %s: %s\n", m.ID, m.Version, impact.Outcome)
	if impact.Outcome == dependencies.DeleteUnsafeSingleVersion {
		for _, d := range impact.Dependents {
			fmt.Fprintf(out, "  required by %s\n", d)
		}
	}
	for _, d := range impact.Breaking {
		fmt.Fprintf(out, "  breaks %s (requires >= %s)\n", d, d.MinVersion)
	}
	return impact, err
}
