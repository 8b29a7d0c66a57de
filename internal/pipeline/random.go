package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/philosophy/internal/model"
	"github.com/nao1215/philosophy/internal/wiki"
)

// randomAttemptsPerTitle bounds how often the wiki is asked per wanted
// title, since the random page may repeat.
const randomAttemptsPerTitle = 3

// RandomSource picks random article titles.
// The wiki package's Client implements it.
type RandomSource interface {
	RandomTitle(ctx context.Context) (model.PageID, error)
}

// RandomStarts asks source for n distinct random titles. Titles already in
// exclude are skipped. Fewer than n titles are returned when the wiki keeps
// repeating itself; a network failure aborts with the titles found so far.
func RandomStarts(ctx context.Context, source RandomSource, n int, exclude []string, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	seen := make(map[model.PageID]bool, len(exclude)+n)
	for _, title := range exclude {
		seen[model.NewPageID(title)] = true
	}

	starts := make([]string, 0, n)
	for attempt := 0; len(starts) < n && attempt < n*randomAttemptsPerTitle; attempt++ {
		id, err := source.RandomTitle(ctx)
		if err != nil {
			if errors.Is(err, wiki.ErrNetwork) || ctx.Err() != nil {
				return starts, fmt.Errorf("failed to pick random article: %w", err)
			}
			logger.Warn("random article skipped", "error", err)
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		starts = append(starts, id.String())
	}

	if len(starts) < n {
		logger.Warn("fewer random articles than requested",
			"requested", n,
			"found", len(starts),
		)
	}
	return starts, nil
}
