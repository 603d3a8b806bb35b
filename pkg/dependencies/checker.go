package dependencies

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/pkgindex/pkg/index"
	"github.com/platinummonkey/pkgindex/pkg/manifest"
	"github.com/platinummonkey/pkgindex/pkg/observability"
)

const (
	checkValidate = "validate"
	checkDelete   = "delete"
)

// Checker runs dependency checks against one index with logging and metrics.
type Checker struct {
	idx     index.Index
	log     *logrus.Logger
	metrics *observability.Metrics
}

// NewChecker creates a checker. log defaults to logrus.New() and metrics may be nil.
func NewChecker(idx index.Index, log *logrus.Logger, metrics *observability.Metrics) *Checker {
	if log == nil {
		log = logrus.New()
	}
	return &Checker{
		idx:     idx,
		log:     log,
		metrics: metrics,
	}
}

// Validate runs ValidateManifestDependencies for m.
func (c *Checker) Validate(ctx context.Context, m *manifest.Manifest) error {
	ctx = observability.WithCheckID(ctx, uuid.NewString())
	entry := observability.FromContext(ctx, c.log).WithFields(logrus.Fields{
		"check":   checkValidate,
		"package": m.ID,
		"version": m.Version,
	})

	start := time.Now()
	err := ValidateManifestDependencies(ctx, c.idx, m)
	c.record(checkValidate, start, err)

	c.logResult(entry, err)
	return err
}

// CanDelete runs AnalyzeDelete for m and returns the same error CanDeleteManifest would.
func (c *Checker) CanDelete(ctx context.Context, m *manifest.Manifest) (DeleteImpact, error) {
	ctx = observability.WithCheckID(ctx, uuid.NewString())
	entry := observability.FromContext(ctx, c.log).WithFields(logrus.Fields{
		"check":   checkDelete,
		"package": m.ID,
		"version": m.Version,
	})

	start := time.Now()
	impact, err := AnalyzeDelete(ctx, c.idx, m)
	if err == nil {
		err = impact.Err(m.ID)
		entry = entry.WithField("outcome", impact.Outcome.String())
	}
	c.record(checkDelete, start, err)

	c.logResult(entry, err)
	return impact, err
}

func (c *Checker) logResult(entry *logrus.Entry, err error) {
	if err == nil {
		entry.Info("dependency check passed")
		return
	}
	if ve, ok := AsValidationErrors(err); ok {
		for _, e := range ve {
			entry.WithFields(logrus.Fields{
				"kind":       KindName(e.Kind),
				"dependency": e.PackageID,
			}).Warn(e.Error())
		}
		return
	}
	entry.WithError(err).Error("dependency check could not complete")
}

func (c *Checker) record(check string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	c.metrics.CheckDuration.WithLabelValues(check).Observe(time.Since(start).Seconds())
	c.metrics.ChecksTotal.WithLabelValues(check, resultLabel(err)).Inc()

	if ve, ok := AsValidationErrors(err); ok {
		for _, e := range ve {
			c.metrics.ValidationErrorsTotal.WithLabelValues(KindName(e.Kind)).Inc()
		}
	}
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Is(err, ErrIndexInconsistency) {
		return "inconsistent"
	}
	if _, ok := AsValidationErrors(err); ok {
		return "failed"
	}
	return "error"
}
