package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/philosophy/internal/model"
)

var errMissingPage = errors.New("page does not exist")

// memoryWiki is an in-memory Resolver. Pages map a title to its body HTML
// and redirects map a title to the title it redirects to.
type memoryWiki struct {
	pages     map[model.PageID]string
	redirects map[model.PageID]model.PageID
	failures  map[model.PageID]error

	mu      sync.Mutex
	fetched []model.PageID
}

func newMemoryWiki() *memoryWiki {
	return &memoryWiki{
		pages:     make(map[model.PageID]string),
		redirects: make(map[model.PageID]model.PageID),
		failures:  make(map[model.PageID]error),
	}
}

// link adds a page whose only prose link points to next.
func (w *memoryWiki) link(title, next string) *memoryWiki {
	w.pages[model.PageID(title)] = fmt.Sprintf(
		`<p><b>%s</b> is related to <a href="/wiki/%s">%s</a>.</p>`,
		title, strings.ReplaceAll(next, " ", "_"), next,
	)
	return w
}

// page adds a page with the given body.
func (w *memoryWiki) page(title, body string) *memoryWiki {
	w.pages[model.PageID(title)] = body
	return w
}

// redirect makes from redirect to to.
func (w *memoryWiki) redirect(from, to string) *memoryWiki {
	w.redirects[model.PageID(from)] = model.PageID(to)
	return w
}

// fail makes fetching title return err.
func (w *memoryWiki) fail(title string, err error) *memoryWiki {
	w.failures[model.PageID(title)] = err
	return w
}

func (w *memoryWiki) FetchPage(_ context.Context, id model.PageID) (*model.PageHandle, error) {
	w.mu.Lock()
	w.fetched = append(w.fetched, id)
	w.mu.Unlock()

	if err, ok := w.failures[id]; ok {
		return nil, err
	}

	handle := &model.PageHandle{ID: id}
	if to, ok := w.redirects[id]; ok {
		handle.ID = to
		handle.RedirectedFrom = id
	}

	body, ok := w.pages[handle.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errMissingPage, handle.ID)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	handle.Body = doc
	return handle, nil
}

func (w *memoryWiki) ResolveHref(href string) model.PageID {
	return model.NewPageID(href)
}

// fetchCount returns how many fetches were made.
func (w *memoryWiki) fetchCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.fetched)
}

// assertPath compares a path with the expected titles and stop reason.
func assertPath(t *testing.T, path *model.TraversalPath, reason model.StopReason, want ...model.PageID) {
	t.Helper()

	if path.StopReason != reason {
		t.Errorf("stop reason = %s, want %s (pages %v)", path.StopReason, reason, path.Pages)
	}
	if len(path.Pages) != len(want) {
		t.Fatalf("pages = %v, want %v", path.Pages, want)
	}
	for i := range want {
		if path.Pages[i] != want[i] {
			t.Errorf("pages[%d] = %q, want %q", i, path.Pages[i], want[i])
		}
	}
}

// TestWalker tests the stop reasons of a walk.
func TestWalker(t *testing.T) {
	t.Parallel()

	t.Run("converges on the target", func(t *testing.T) {
		t.Parallel()

		wiki := newMemoryWiki().
			link("A", "B").
			link("B", "Philosophy").
			link("Philosophy", "Knowledge")

		path := NewWalker(wiki).Walk(context.Background(), "A")

		assertPath(t, path, model.ReachedTarget, "A", "B", "Philosophy")
		if path.Err != nil {
			t.Errorf("unexpected error: %v", path.Err)
		}
		// The target page itself is never fetched.
		if got := wiki.fetchCount(); got != 2 {
			t.Errorf("fetches = %d, want 2", got)
		}
	})

	t.Run("start is the target", func(t *testing.T) {
		t.Parallel()

		wiki := newMemoryWiki().link("Philosophy", "Knowledge")

		path := NewWalker(wiki).Walk(context.Background(), "Philosophy")

		assertPath(t, path, model.ReachedTarget, "Philosophy")
	})

	t.Run("detects a cycle", func(t *testing.T) {
		t.Parallel()

		wiki := newMemoryWiki().
			link("A", "B").
			link("B", "C").
			link("C", "B")

		path := NewWalker(wiki).Walk(context.Background(), "A")

		assertPath(t, path, model.CycleDetected, "A", "B", "C", "B")

		distinct := make(map[model.PageID]bool)
		for _, p := range path.Pages {
			distinct[p] = true
		}
		if path.Len() != len(distinct)+1 {
			t.Errorf("length %d, want distinct pages %d plus one", path.Len(), len(distinct))
		}
	})

	t.Run("detects a self link", func(t *testing.T) {
		t.Parallel()

		wiki := newMemoryWiki().link("A", "A")

		path := NewWalker(wiki).Walk(context.Background(), "A")

		assertPath(t, path, model.CycleDetected, "A", "A")
	})

	t.Run("dead end without links", func(t *testing.T) {
		t.Parallel()

		wiki := newMemoryWiki().page("A", `<p>No links here.</p>`)

		path := NewWalker(wiki).Walk(context.Background(), "A")

		assertPath(t, path, model.DeadEnd, "A")
		if path.Err != nil {
			t.Errorf("dead end without links should carry no error, got %v", path.Err)
		}
	})

	t.Run("dead end when only disqualified links exist", func(t *testing.T) {
		t.Parallel()

		wiki := newMemoryWiki().page("A",
			`<p>A (<a href="/wiki/B">B</a>) and <a href="/wiki/Help:Contents">help</a>.</p>`)

		path := NewWalker(wiki).Walk(context.Background(), "A")

		assertPath(t, path, model.DeadEnd, "A")
	})

	t.Run("start fetch failure", func(t *testing.T) {
		t.Parallel()

		wiki := newMemoryWiki()

		path := NewWalker(wiki).Walk(context.Background(), "Missing")

		assertPath(t, path, model.DeadEnd, "Missing")
		if !errors.Is(path.Err, errMissingPage) {
			t.Errorf("expected missing page error, got %v", path.Err)
		}
		if path.ErrorMessage == "" {
			t.Error("expected error message")
		}
	})

	t.Run("next fetch failure", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("connection reset")
		wiki := newMemoryWiki().link("A", "B").fail("B", boom)

		path := NewWalker(wiki).Walk(context.Background(), "A")

		assertPath(t, path, model.DeadEnd, "A", "B")
		if !errors.Is(path.Err, boom) {
			t.Errorf("expected %v, got %v", boom, path.Err)
		}
	})

	t.Run("empty start", func(t *testing.T) {
		t.Parallel()

		path := NewWalker(newMemoryWiki()).Walk(context.Background(), "")

		if path.StopReason != model.DeadEnd || !errors.Is(path.Err, ErrEmptyStart) {
			t.Errorf("got %s / %v", path.StopReason, path.Err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		wiki := newMemoryWiki().link("A", "B").link("B", "Philosophy")

		path := NewWalker(wiki).Walk(ctx, "A")

		assertPath(t, path, model.DeadEnd, "A")
		if !errors.Is(path.Err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", path.Err)
		}
	})
}

// TestWalkerIterationLimit tests that the ceiling bounds the path length.
func TestWalkerIterationLimit(t *testing.T) {
	t.Parallel()

	chain := func(n int) *memoryWiki {
		wiki := newMemoryWiki()
		for i := range n {
			wiki.link(fmt.Sprintf("P%d", i), fmt.Sprintf("P%d", i+1))
		}
		return wiki
	}

	t.Run("default ceiling", func(t *testing.T) {
		t.Parallel()

		path := NewWalker(chain(250)).Walk(context.Background(), "P0")

		if path.StopReason != model.IterationLimitReached {
			t.Fatalf("stop reason = %s", path.StopReason)
		}
		if path.Len() != DefaultMaxSteps+1 {
			t.Errorf("length = %d, want %d", path.Len(), DefaultMaxSteps+1)
		}
		if path.Last() != "P100" {
			t.Errorf("last = %q, want P100", path.Last())
		}
	})

	t.Run("custom ceiling", func(t *testing.T) {
		t.Parallel()

		w := NewWalker(chain(20), WithMaxSteps(5))
		path := w.Walk(context.Background(), "P0")

		assertPath(t, path, model.IterationLimitReached, "P0", "P1", "P2", "P3", "P4", "P5")
	})

	t.Run("target on the last allowed step wins", func(t *testing.T) {
		t.Parallel()

		wiki := chain(2).link("P2", "Philosophy")
		path := NewWalker(wiki, WithMaxSteps(3)).Walk(context.Background(), "P0")

		assertPath(t, path, model.ReachedTarget, "P0", "P1", "P2", "Philosophy")
	})

	t.Run("non-positive ceiling keeps the default", func(t *testing.T) {
		t.Parallel()

		if got := NewWalker(newMemoryWiki(), WithMaxSteps(0)).MaxSteps(); got != DefaultMaxSteps {
			t.Errorf("MaxSteps() = %d", got)
		}
	})
}

// TestWalkerRedirects tests that redirects are recorded by their target.
func TestWalkerRedirects(t *testing.T) {
	t.Parallel()

	t.Run("redirect onto the target", func(t *testing.T) {
		t.Parallel()

		wiki := newMemoryWiki().
			link("A", "Philosophical").
			redirect("Philosophical", "Philosophy").
			link("Philosophy", "Knowledge")

		path := NewWalker(wiki).Walk(context.Background(), "A")

		assertPath(t, path, model.ReachedTarget, "A", "Philosophy")
	})

	t.Run("redirect onto a visited page", func(t *testing.T) {
		t.Parallel()

		wiki := newMemoryWiki().
			link("A", "B").
			link("B", "Alias").
			redirect("Alias", "A")

		path := NewWalker(wiki).Walk(context.Background(), "A")

		assertPath(t, path, model.CycleDetected, "A", "B", "A")
	})

	t.Run("redirected start", func(t *testing.T) {
		t.Parallel()

		wiki := newMemoryWiki().
			redirect("Foo", "Bar").
			link("Bar", "Philosophy")

		path := NewWalker(wiki).Walk(context.Background(), "Foo")

		assertPath(t, path, model.ReachedTarget, "Bar", "Philosophy")
		if path.Start != "Foo" {
			t.Errorf("start = %q, want Foo", path.Start)
		}
	})

	t.Run("redirected start onto the target", func(t *testing.T) {
		t.Parallel()

		wiki := newMemoryWiki().
			redirect("Philosophies", "Philosophy").
			link("Philosophy", "Knowledge")

		path := NewWalker(wiki).Walk(context.Background(), "Philosophies")

		assertPath(t, path, model.ReachedTarget, "Philosophy")
	})
}

// TestWalkerWalkFrom tests walks that begin from an already fetched start.
func TestWalkerWalkFrom(t *testing.T) {
	t.Parallel()

	t.Run("start page is not fetched again", func(t *testing.T) {
		t.Parallel()

		wiki := newMemoryWiki().
			link("A", "B").
			link("B", "Philosophy")
		start, err := wiki.FetchPage(context.Background(), "A")
		if err != nil {
			t.Fatalf("FetchPage() error = %v", err)
		}

		path := NewWalker(wiki).WalkFrom(context.Background(), "A", start)

		assertPath(t, path, model.ReachedTarget, "A", "B", "Philosophy")
		// One fetch for the start above, one for B.
		if got := wiki.fetchCount(); got != 2 {
			t.Errorf("fetches = %d, want 2", got)
		}
	})

	t.Run("redirected start page", func(t *testing.T) {
		t.Parallel()

		wiki := newMemoryWiki().
			redirect("Foo", "Bar").
			link("Bar", "Philosophy")
		start, err := wiki.FetchPage(context.Background(), "Foo")
		if err != nil {
			t.Fatalf("FetchPage() error = %v", err)
		}

		path := NewWalker(wiki).WalkFrom(context.Background(), "Foo", start)

		assertPath(t, path, model.ReachedTarget, "Bar", "Philosophy")
		if path.Start != "Foo" {
			t.Errorf("start = %q, want Foo", path.Start)
		}
		if got := wiki.fetchCount(); got != 1 {
			t.Errorf("fetches = %d, want 1", got)
		}
	})

	t.Run("nil page fetches the start", func(t *testing.T) {
		t.Parallel()

		wiki := newMemoryWiki().link("A", "Philosophy")

		path := NewWalker(wiki).WalkFrom(context.Background(), "A", nil)

		assertPath(t, path, model.ReachedTarget, "A", "Philosophy")
		if got := wiki.fetchCount(); got != 1 {
			t.Errorf("fetches = %d, want 1", got)
		}
	})
}

// TestWalkerOptions tests the walker options.
func TestWalkerOptions(t *testing.T) {
	t.Parallel()

	t.Run("custom target is normalized", func(t *testing.T) {
		t.Parallel()

		wiki := newMemoryWiki().
			link("A", "Natural science").
			link("Natural science", "Science")

		w := NewWalker(wiki, WithTarget("natural_science"))
		if w.Target() != "Natural science" {
			t.Fatalf("Target() = %q", w.Target())
		}

		path := w.Walk(context.Background(), "A")
		assertPath(t, path, model.ReachedTarget, "A", "Natural science")
	})

	t.Run("empty target keeps the default", func(t *testing.T) {
		t.Parallel()

		if got := NewWalker(newMemoryWiki(), WithTarget("  ")).Target(); got != DefaultTarget {
			t.Errorf("Target() = %q", got)
		}
	})

	t.Run("custom filter", func(t *testing.T) {
		t.Parallel()

		wiki := newMemoryWiki().
			page("A", `<div class="toccolours"><p><a href="/wiki/Philosophy">p</a></p></div>`)

		strict := NewWalker(wiki).Walk(context.Background(), "A")
		assertPath(t, strict, model.DeadEnd, "A")

		token := NewWalker(wiki, WithFilter(NewFilter(WithClassMatch(ClassMatchToken)))).
			Walk(context.Background(), "A")
		assertPath(t, token, model.ReachedTarget, "A", "Philosophy")
	})
}
