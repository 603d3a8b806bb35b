package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/pkgindex/pkg/dependencies"
	"github.com/platinummonkey/pkgindex/pkg/manifest"
)

type validateResult struct {
	path     string
	manifest *manifest.Manifest
	err      error
}

func newValidateCommand(opts *rootOptions) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "validate MANIFEST...",
		Short: "Check that every dependency of the given manifests is satisfiable",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				limit := a.cfg.Validation.Concurrency
				if cmd.Flags().Changed("concurrency") {
					limit = concurrency
				}
				results, err := validateManifests(ctx, a, args, limit)
				if err != nil {
					return err
				}
				return reportValidation(cmd.OutOrStdout(), results)
			})
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Manifests validated at once (default from PKGINDEX_VALIDATE_CONCURRENCY)")

	return cmd
}

// validateManifests checks each file independently. Per-file failures are
// reported in the results; only index failures abort the batch.
func validateManifests(ctx context.Context, a *app, paths []string, limit int) ([]validateResult, error) {
	if limit < 1 {
		limit = 1
	}
	results := make([]validateResult, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, path := range paths {
		g.Go(func() error {
			res := validateResult{path: path}
			defer func() { results[i] = res }()

			m, err := loadManifest(path)
			if err != nil {
				res.err = err
				return nil
			}
			res.manifest = m

			err = a.check(ctx, func(c *dependencies.Checker) error {
				return c.Validate(ctx, m)
			})
			if _, ok := dependencies.AsValidationErrors(err); ok || err == nil {
				res.err = err
				return nil
			}
			return fmt.Errorf("failed to validate %s: %w", path, err)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func reportValidation(out io.Writer, results []validateResult) error {
	failed := 0
	for _, res := range results {
		if res.err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s: %v\n", res.path, res.err)
			continue
		}
		fmt.Fprintf(out, "PASS %s (%s %s)\n", res.path, res.manifest.ID, res.manifest.Version)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d manifests failed validation", failed, len(results))
	}
	return nil
}

// loadManifest reads a manifest file and rejects it when its fields are malformed.
func loadManifest(path string) (*manifest.Manifest, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	if errs := manifest.Validate(m); len(errs) > 0 {
		return nil, fmt.Errorf("invalid manifest: %w", errs[0])
	}
	return m, nil
}
