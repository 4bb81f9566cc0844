package build

import (
	"context"
	"fmt"
	"log/slog"
)

// A single phase of the verification run.
//
// Steps execute strictly in order. A step may declare itself satisfied by
// prior state (checkout already at the right tag, image already imported,
// overlay already mounted) through its skip predicate; everything else runs
// unconditionally. The first failure aborts the run.
type step struct {
	name string

	// Reports whether the step can be skipped, with a reason for the log.
	// Nil means the step always runs. A predicate error fails the run.
	skip func(ctx context.Context) (string, bool, error)

	// Performs the step.
	run func(ctx context.Context) error
}

// Executes steps in order, aborting on the first failure.
func runSteps(ctx context.Context, steps []step) error {
	for i, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		if s.skip != nil {
			reason, skip, err := s.skip(ctx)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrStep, s.name, err)
			}
			if skip {
				slog.Info("skipping step", "step", s.name, "reason", reason)
				continue
			}
		}

		slog.Info(fmt.Sprintf("step %d/%d: %s", i+1, len(steps), s.name))

		if err := s.run(ctx); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrStep, s.name, err)
		}
	}
	return nil
}
