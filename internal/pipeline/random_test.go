package pipeline

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/nao1215/philosophy/internal/model"
	"github.com/nao1215/philosophy/internal/wiki"
)

// scriptedSource returns titles and errors in a fixed order.
type scriptedSource struct {
	titles []model.PageID
	errs   []error
	next   int
}

func (s *scriptedSource) RandomTitle(_ context.Context) (model.PageID, error) {
	i := s.next % len(s.titles)
	s.next++
	if s.errs != nil && s.errs[i] != nil {
		return "", s.errs[i]
	}
	return s.titles[i], nil
}

// TestRandomStarts tests picking distinct random starts.
func TestRandomStarts(t *testing.T) {
	t.Parallel()

	t.Run("distinct titles from the wiki", func(t *testing.T) {
		t.Parallel()

		client, _ := newFakeWiki(t, philosophyWiki(), "Art", "Art", "Island", "Loop A")

		got, err := RandomStarts(context.Background(), client, 3, nil, discardLogger())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if want := []string{"Art", "Island", "Loop A"}; !slices.Equal(got, want) {
			t.Errorf("RandomStarts() = %v, want %v", got, want)
		}
	})

	t.Run("excluded titles are skipped", func(t *testing.T) {
		t.Parallel()

		source := &scriptedSource{titles: []model.PageID{"Art", "Island"}}

		got, err := RandomStarts(context.Background(), source, 1, []string{"art"}, discardLogger())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(got, []string{"Island"}) {
			t.Errorf("RandomStarts() = %v", got)
		}
	})

	t.Run("repeating wiki yields fewer titles", func(t *testing.T) {
		t.Parallel()

		source := &scriptedSource{titles: []model.PageID{"Art"}}

		got, err := RandomStarts(context.Background(), source, 3, nil, discardLogger())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(got, []string{"Art"}) {
			t.Errorf("RandomStarts() = %v", got)
		}
		if source.next != 3*randomAttemptsPerTitle {
			t.Errorf("expected %d attempts, got %d", 3*randomAttemptsPerTitle, source.next)
		}
	})

	t.Run("bad random answers are skipped", func(t *testing.T) {
		t.Parallel()

		source := &scriptedSource{
			titles: []model.PageID{"", "Art"},
			errs:   []error{wiki.ErrRedirectParse, nil},
		}

		got, err := RandomStarts(context.Background(), source, 1, nil, discardLogger())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(got, []string{"Art"}) {
			t.Errorf("RandomStarts() = %v", got)
		}
	})

	t.Run("network failure aborts", func(t *testing.T) {
		t.Parallel()

		source := &scriptedSource{
			titles: []model.PageID{"Art", ""},
			errs:   []error{nil, wiki.ErrNetwork},
		}

		got, err := RandomStarts(context.Background(), source, 3, nil, discardLogger())
		if !errors.Is(err, wiki.ErrNetwork) {
			t.Fatalf("expected ErrNetwork, got %v", err)
		}
		if !slices.Equal(got, []string{"Art"}) {
			t.Errorf("titles found before the failure = %v", got)
		}
	})
}
