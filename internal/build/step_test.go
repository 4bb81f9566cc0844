package build

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRunStepsInOrder(t *testing.T) {
	var order []string
	mk := func(name string) step {
		return step{name: name, run: func(ctx context.Context) error {
			order = append(order, name)
			return nil
		}}
	}

	err := runSteps(context.Background(), []step{mk("one"), mk("two"), mk("three")})
	if err != nil {
		t.Fatalf("runSteps: %v", err)
	}

	want := []string{"one", "two", "three"}
	if len(order) != len(want) {
		t.Fatalf("ran %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("ran %v, want %v", order, want)
		}
	}
}

func TestRunStepsAbortsOnFirstFailure(t *testing.T) {
	var ran []string
	boom := errors.New("boom")

	steps := []step{
		{name: "first", run: func(ctx context.Context) error {
			ran = append(ran, "first")
			return nil
		}},
		{name: "second", run: func(ctx context.Context) error {
			ran = append(ran, "second")
			return boom
		}},
		{name: "third", run: func(ctx context.Context) error {
			ran = append(ran, "third")
			return nil
		}},
	}

	err := runSteps(context.Background(), steps)
	if !errors.Is(err, ErrStep) {
		t.Fatalf("err = %v, want ErrStep", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped cause", err)
	}
	if len(ran) != 2 {
		t.Fatalf("ran %v, want first and second only", ran)
	}
}

func TestRunStepsErrorNamesStep(t *testing.T) {
	steps := []step{
		{name: "import image", run: func(ctx context.Context) error {
			return errors.New("archive corrupt")
		}},
	}

	err := runSteps(context.Background(), steps)
	if err == nil || !errors.Is(err, ErrStep) {
		t.Fatalf("err = %v, want ErrStep", err)
	}
	if got := err.Error(); !strings.Contains(got, "import image") {
		t.Fatalf("error %q does not name the failing step", got)
	}
}

func TestRunStepsSkip(t *testing.T) {
	var ran []string

	steps := []step{
		{
			name: "checkout",
			skip: func(ctx context.Context) (string, bool, error) {
				return "already at v7.7.0", true, nil
			},
			run: func(ctx context.Context) error {
				ran = append(ran, "checkout")
				return nil
			},
		},
		{
			name: "build",
			skip: func(ctx context.Context) (string, bool, error) {
				return "", false, nil
			},
			run: func(ctx context.Context) error {
				ran = append(ran, "build")
				return nil
			},
		},
	}

	if err := runSteps(context.Background(), steps); err != nil {
		t.Fatalf("runSteps: %v", err)
	}
	if len(ran) != 1 || ran[0] != "build" {
		t.Fatalf("ran %v, want [build]", ran)
	}
}

func TestRunStepsSkipPredicateError(t *testing.T) {
	probeErr := errors.New("cannot read mount table")

	steps := []step{
		{
			name: "overlay",
			skip: func(ctx context.Context) (string, bool, error) {
				return "", false, probeErr
			},
			run: func(ctx context.Context) error {
				t.Fatal("step ran despite failing predicate")
				return nil
			},
		},
	}

	err := runSteps(context.Background(), steps)
	if !errors.Is(err, probeErr) {
		t.Fatalf("err = %v, want predicate error", err)
	}
}

func TestRunStepsHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	steps := []step{
		{name: "first", run: func(ctx context.Context) error {
			cancel()
			return nil
		}},
		{name: "second", run: func(ctx context.Context) error {
			t.Fatal("step ran after cancellation")
			return nil
		}},
	}

	if err := runSteps(ctx, steps); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
