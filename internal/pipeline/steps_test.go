package pipeline

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/nao1215/philosophy/internal/crawler"
	"github.com/nao1215/philosophy/internal/model"
	"github.com/nao1215/philosophy/internal/wiki"
)

// stubChecker answers eligibility checks with a fixed result.
type stubChecker struct {
	ok    bool
	err   error
	calls int
}

func (s *stubChecker) IsEligibleStartingArticle(_ context.Context, _ model.PageID) (bool, error) {
	s.calls++
	return s.ok, s.err
}

// TestEligibilityStep tests rejection of starts before walking.
func TestEligibilityStep(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		start      string
		checker    *stubChecker
		wantErr    error
		wantReason string
		eligible   bool
		wantCalls  int
	}{
		{
			name:      "eligible start continues",
			start:     "Art",
			checker:   &stubChecker{ok: true},
			eligible:  true,
			wantCalls: 1,
		},
		{
			name:       "missing article",
			start:      "Nowhere",
			checker:    &stubChecker{err: wiki.ErrNotFound},
			wantErr:    ErrSkipRemaining,
			wantReason: ReasonNotFound,
			wantCalls:  1,
		},
		{
			name:       "disambiguation page",
			start:      "Mercury",
			checker:    &stubChecker{err: wiki.ErrIneligible},
			wantErr:    ErrSkipRemaining,
			wantReason: ReasonDisambiguation,
			wantCalls:  1,
		},
		{
			name:       "network failure",
			start:      "Art",
			checker:    &stubChecker{err: wiki.ErrNetwork},
			wantErr:    ErrSkipRemaining,
			wantReason: ReasonFetchFailed,
			wantCalls:  1,
		},
		{
			name:       "empty title never reaches the wiki",
			start:      "   ",
			checker:    &stubChecker{ok: true},
			wantErr:    ErrSkipRemaining,
			wantReason: ReasonEmptyTitle,
			wantCalls:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			step := NewEligibilityStep(tt.checker, WithEligibilityLogger(discardLogger()))
			report := model.NewWalkReport(tt.start)

			err := step.Do(context.Background(), report)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Do() error = %v, want %v", err, tt.wantErr)
			}
			if report.Eligible != tt.eligible {
				t.Errorf("Eligible = %v, want %v", report.Eligible, tt.eligible)
			}
			if report.IneligibleReason != tt.wantReason {
				t.Errorf("IneligibleReason = %q, want %q", report.IneligibleReason, tt.wantReason)
			}
			if tt.checker.calls != tt.wantCalls {
				t.Errorf("checker called %d times, want %d", tt.checker.calls, tt.wantCalls)
			}
			if !tt.eligible && report.Err == nil {
				t.Error("rejected start should record an error")
			}
		})
	}

	t.Run("name", func(t *testing.T) {
		t.Parallel()

		if got := NewEligibilityStep(&stubChecker{}).Name(); got != "eligibility" {
			t.Errorf("Name() = %q", got)
		}
	})
}

// TestWalkStep tests that the walk step stores the finished path.
func TestWalkStep(t *testing.T) {
	t.Parallel()

	client, _ := newFakeWiki(t, philosophyWiki())
	walker := crawler.NewWalker(client, crawler.WithWalkerLogger(discardLogger()))
	step := NewWalkStep(walker, WithWalkLogger(discardLogger()))

	t.Run("reaches the target", func(t *testing.T) {
		t.Parallel()

		report := model.NewWalkReport("Art")
		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !report.Eligible {
			t.Error("walked start should be eligible")
		}
		want := []model.PageID{"Art", "Creativity", "Philosophy"}
		if !slices.Equal(report.Path.Pages, want) {
			t.Errorf("Pages = %v, want %v", report.Path.Pages, want)
		}
		if report.Path.StopReason != model.ReachedTarget {
			t.Errorf("StopReason = %v", report.Path.StopReason)
		}
	})

	t.Run("walk errors are recorded, not returned", func(t *testing.T) {
		t.Parallel()

		report := model.NewWalkReport("Nowhere")
		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.Path.StopReason != model.DeadEnd {
			t.Errorf("StopReason = %v", report.Path.StopReason)
		}
		if !errors.Is(report.Err, wiki.ErrNotFound) {
			t.Errorf("report.Err = %v, want ErrNotFound", report.Err)
		}
	})

	t.Run("name", func(t *testing.T) {
		t.Parallel()

		if step.Name() != "walk" {
			t.Errorf("Name() = %q", step.Name())
		}
	})
}

// TestDefaultPipeline tests the standard eligibility then walk pipeline.
func TestDefaultPipeline(t *testing.T) {
	t.Parallel()

	client, _ := newFakeWiki(t, philosophyWiki())
	quiet := WithPipelineLogger(discardLogger())

	run := func(t *testing.T, start string, opts ...DefaultPipelineOption) *model.WalkReport {
		t.Helper()

		p := DefaultPipeline(client, []Option{WithLogger(discardLogger())}, append(opts, quiet)...)
		report := model.NewWalkReport(start)
		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("Execute(%q) error = %v", start, err)
		}
		return report
	}

	t.Run("step names", func(t *testing.T) {
		t.Parallel()

		p := DefaultPipeline(client, nil)
		if got := p.StepNames(); !slices.Equal(got, []string{"eligibility", "walk"}) {
			t.Errorf("StepNames() = %v", got)
		}

		p = DefaultPipeline(client, nil, WithPipelineSkipEligibility(true))
		if got := p.StepNames(); !slices.Equal(got, []string{"walk"}) {
			t.Errorf("StepNames() with skip = %v", got)
		}
	})

	t.Run("start page is fetched once", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			start string
			want  int
		}{
			// Art, then Creativity. Philosophy is the target and is not fetched.
			{start: "Art", want: 2},
			// The redirect notice of Creative, then Creativity.
			{start: "Creative", want: 2},
		}
		for _, tt := range tests {
			own, fake := newFakeWiki(t, philosophyWiki())
			p := DefaultPipeline(own, []Option{WithLogger(discardLogger())}, quiet)
			report := model.NewWalkReport(tt.start)
			if err := p.Execute(context.Background(), report); err != nil {
				t.Fatalf("Execute(%q) error = %v", tt.start, err)
			}
			if report.Path == nil || report.Path.StopReason != model.ReachedTarget {
				t.Fatalf("%s: unexpected path: %+v", tt.start, report.Path)
			}
			if report.StartPage != nil {
				t.Errorf("%s: start page should be released after the walk", tt.start)
			}
			if got := fake.requestCount(); got != tt.want {
				t.Errorf("%s: parse requests = %d, want %d", tt.start, got, tt.want)
			}
		}
	})

	t.Run("convergent start", func(t *testing.T) {
		t.Parallel()

		report := run(t, "Art")
		if report.Path == nil || report.Path.StopReason != model.ReachedTarget {
			t.Fatalf("unexpected path: %+v", report.Path)
		}
		if !slices.Equal(report.Steps, []string{"eligibility", "walk"}) {
			t.Errorf("Steps = %v", report.Steps)
		}
	})

	t.Run("cycle", func(t *testing.T) {
		t.Parallel()

		report := run(t, "Loop A")
		want := []model.PageID{"Loop A", "Loop B", "Loop A"}
		if !slices.Equal(report.Path.Pages, want) {
			t.Errorf("Pages = %v, want %v", report.Path.Pages, want)
		}
		if report.Path.StopReason != model.CycleDetected {
			t.Errorf("StopReason = %v", report.Path.StopReason)
		}
	})

	t.Run("dead end", func(t *testing.T) {
		t.Parallel()

		report := run(t, "Island")
		if report.Path.StopReason != model.DeadEnd {
			t.Errorf("StopReason = %v", report.Path.StopReason)
		}
		if report.Err != nil {
			t.Errorf("a page without links is not an error: %v", report.Err)
		}
	})

	t.Run("redirected start is recorded by its resolved title", func(t *testing.T) {
		t.Parallel()

		report := run(t, "Creative")
		if report.Path.Start != "Creative" {
			t.Errorf("Start = %q", report.Path.Start)
		}
		if report.Path.Pages[0] != "Creativity" {
			t.Errorf("Pages[0] = %q", report.Path.Pages[0])
		}
	})

	t.Run("disambiguation start is rejected", func(t *testing.T) {
		t.Parallel()

		report := run(t, "Mercury")
		if report.Eligible {
			t.Error("disambiguation page should be rejected")
		}
		if report.IneligibleReason != ReasonDisambiguation {
			t.Errorf("IneligibleReason = %q", report.IneligibleReason)
		}
		if report.Path != nil {
			t.Error("rejected start should carry no path")
		}
		if !slices.Equal(report.Steps, []string{"eligibility"}) {
			t.Errorf("Steps = %v", report.Steps)
		}
	})

	t.Run("missing start is rejected", func(t *testing.T) {
		t.Parallel()

		report := run(t, "Nowhere")
		if report.IneligibleReason != ReasonNotFound {
			t.Errorf("IneligibleReason = %q", report.IneligibleReason)
		}
	})

	t.Run("skipping the check walks a disambiguation page", func(t *testing.T) {
		t.Parallel()

		report := run(t, "Mercury", WithPipelineSkipEligibility(true))
		if !report.Eligible || report.Path == nil {
			t.Fatalf("expected a walk, got %+v", report)
		}
	})

	t.Run("custom target", func(t *testing.T) {
		t.Parallel()

		report := run(t, "Science", WithPipelineTarget("Natural science"))
		want := []model.PageID{"Science", "Natural science"}
		if !slices.Equal(report.Path.Pages, want) {
			t.Errorf("Pages = %v, want %v", report.Path.Pages, want)
		}
		if report.Path.StopReason != model.ReachedTarget {
			t.Errorf("StopReason = %v", report.Path.StopReason)
		}
	})

	t.Run("step ceiling", func(t *testing.T) {
		t.Parallel()

		report := run(t, "Art", WithPipelineMaxSteps(1))
		want := []model.PageID{"Art", "Creativity"}
		if !slices.Equal(report.Path.Pages, want) {
			t.Errorf("Pages = %v, want %v", report.Path.Pages, want)
		}
		if report.Path.StopReason != model.IterationLimitReached {
			t.Errorf("StopReason = %v", report.Path.StopReason)
		}
	})
}
