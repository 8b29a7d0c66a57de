package crawler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/philosophy/internal/model"
)

const (
	// DefaultMaxSteps is the number of links a walk may follow before it
	// stops with IterationLimitReached. It is a safety bound, not a
	// statement about how long real chains are.
	DefaultMaxSteps = 100

	// DefaultTarget is the article the walk tries to reach.
	DefaultTarget model.PageID = "Philosophy"
)

// ErrEmptyStart is recorded when a walk is started without a title.
var ErrEmptyStart = errors.New("empty start title")

// ErrUnresolvableLink is recorded when the chosen link does not map to a title.
var ErrUnresolvableLink = errors.New("first link does not resolve to a title")

// Resolver fetches pages and turns hrefs into page identifiers.
// The wiki package's Client implements it.
type Resolver interface {
	// FetchPage fetches the rendered body of id, following one redirect.
	FetchPage(ctx context.Context, id model.PageID) (*model.PageHandle, error)

	// ResolveHref converts an href into a PageID without network access.
	ResolveHref(href string) model.PageID
}

// Walker follows first links from a start page.
//
// Design decision: The walker takes a Resolver interface rather than the
// wiki client because:
//  1. Tests can replace the network with an in-memory wiki
//  2. Each walk can own its own resolver session
//  3. The walk rules stay readable without HTTP details
type Walker struct {
	// resolver fetches pages and resolves hrefs.
	resolver Resolver

	// filter picks the first link of a page.
	filter *Filter

	// target is the article that ends a walk successfully.
	target model.PageID

	// maxSteps is the ceiling on links followed per walk.
	maxSteps int

	// logger for structured logging.
	logger *slog.Logger
}

// WalkerOption configures a Walker.
type WalkerOption func(*Walker)

// WithTarget sets the target article. The title is normalized.
func WithTarget(target model.PageID) WalkerOption {
	return func(w *Walker) {
		if normalized := model.NewPageID(target.String()); !normalized.IsZero() {
			w.target = normalized
		}
	}
}

// WithMaxSteps sets the step ceiling. Non-positive values are ignored.
func WithMaxSteps(n int) WalkerOption {
	return func(w *Walker) {
		if n > 0 {
			w.maxSteps = n
		}
	}
}

// WithFilter sets the link filter.
func WithFilter(f *Filter) WalkerOption {
	return func(w *Walker) {
		if f != nil {
			w.filter = f
		}
	}
}

// WithWalkerLogger sets a custom logger.
func WithWalkerLogger(logger *slog.Logger) WalkerOption {
	return func(w *Walker) {
		w.logger = logger
	}
}

// NewWalker creates a Walker that fetches pages through resolver.
func NewWalker(resolver Resolver, opts ...WalkerOption) *Walker {
	w := &Walker{
		resolver: resolver,
		filter:   NewFilter(),
		target:   DefaultTarget,
		maxSteps: DefaultMaxSteps,
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.logger == nil {
		w.logger = slog.Default()
	}

	return w
}

// Target returns the normalized target article.
func (w *Walker) Target() model.PageID {
	return w.target
}

// MaxSteps returns the step ceiling.
func (w *Walker) MaxSteps() int {
	return w.maxSteps
}

// Walk follows first links from start and returns the finished path.
// The returned path always carries a stop reason; fetch errors end the
// walk with DeadEnd and are recorded on the path.
func (w *Walker) Walk(ctx context.Context, start model.PageID) *model.TraversalPath {
	path := model.NewTraversalPath(start)
	if start.IsZero() {
		path.Finish(model.DeadEnd, ErrEmptyStart)
		return path
	}

	page, err := w.resolver.FetchPage(ctx, start)
	if err != nil {
		w.logger.Warn("start page fetch failed", "start", start, "error", err)
		path.Finish(model.DeadEnd, err)
		return path
	}
	return w.follow(ctx, path, page)
}

// WalkFrom is Walk for a start page that has already been fetched, such as
// the one an eligibility check returned. A nil page falls back to Walk.
func (w *Walker) WalkFrom(ctx context.Context, start model.PageID, page *model.PageHandle) *model.TraversalPath {
	if page == nil || start.IsZero() {
		return w.Walk(ctx, start)
	}
	return w.follow(ctx, model.NewTraversalPath(start), page)
}

// follow runs the walk loop from the fetched start page.
func (w *Walker) follow(ctx context.Context, path *model.TraversalPath, page *model.PageHandle) *model.TraversalPath {
	if page.ID != path.Start {
		path.ReplaceLast(page.ID)
	}
	if page.ID == w.target {
		path.Finish(model.ReachedTarget, nil)
		return path
	}

	for {
		if err := ctx.Err(); err != nil {
			path.Finish(model.DeadEnd, err)
			return path
		}

		link, ok := w.filter.FirstLink(page.Body)
		if !ok {
			w.logger.Debug("no qualifying link", "page", page.ID)
			path.Finish(model.DeadEnd, nil)
			return path
		}

		next := w.resolver.ResolveHref(link.Href)
		if next.IsZero() {
			path.Finish(model.DeadEnd, ErrUnresolvableLink)
			return path
		}

		w.logger.Debug("following first link",
			"from", page.ID,
			"to", next,
			"href", link.Href,
			"step", path.Steps()+1,
		)

		if w.stop(path, path.Append(next)) {
			return path
		}

		var err error
		page, err = w.resolver.FetchPage(ctx, next)
		if err != nil {
			w.logger.Warn("page fetch failed", "page", next, "error", err)
			path.Finish(model.DeadEnd, err)
			return path
		}

		// A redirect lands on a different title than the link named.
		// Record where it landed and check again.
		if page.ID != next {
			w.logger.Debug("followed redirect", "from", next, "to", page.ID)
			if w.stop(path, path.ReplaceLast(page.ID)) {
				return path
			}
		}
	}
}

// stop applies the stop rules after the last page of path changed and
// reports whether the walk is over. Rules are checked in order: a repeat,
// then the target, then the step ceiling.
func (w *Walker) stop(path *model.TraversalPath, repeated bool) bool {
	switch {
	case repeated:
		path.Finish(model.CycleDetected, nil)
	case path.Last() == w.target:
		path.Finish(model.ReachedTarget, nil)
	case path.Steps() >= w.maxSteps:
		path.Finish(model.IterationLimitReached, nil)
	default:
		return false
	}

	w.logger.Debug("walk finished",
		"start", path.Start,
		"reason", path.StopReason,
		"length", path.Len(),
	)
	return true
}
