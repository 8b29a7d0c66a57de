package main

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/nao1215/philosophy/internal/database"
	"github.com/nao1215/philosophy/internal/model"
)

// savedHistory walks a few starts with --save and returns the database
// directory and the run ID.
func savedHistory(t *testing.T) (string, string) {
	t.Helper()

	base := newTestWiki(t)
	cfg := writeTestConfig(t, emptyConfig)
	dbDir := t.TempDir()

	stdout, _, err := runRoot(t, "walk", "-c", cfg, "--base-url", base, "-j", "-s", "--db-dir", dbDir,
		"Art", "Loop A", "Mercury")
	if err != nil {
		t.Fatalf("walk failed: %v", err)
	}
	return dbDir, decodeWalkOutput(t, stdout).Summary.ID
}

func TestHistoryCmd(t *testing.T) {
	t.Parallel()

	t.Run("list", func(t *testing.T) {
		t.Parallel()
		dbDir, id := savedHistory(t)

		stdout, _, err := runRoot(t, "history", "--db-dir", dbDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, id) {
			t.Errorf("expected run %s in listing, got:\n%s", id, stdout)
		}
	})

	t.Run("list json", func(t *testing.T) {
		t.Parallel()
		dbDir, id := savedHistory(t)

		stdout, _, err := runRoot(t, "history", "list", "--db-dir", dbDir, "-j")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var summaries []model.BatchSummary
		if err := json.Unmarshal([]byte(stdout), &summaries); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(summaries) != 1 {
			t.Fatalf("expected 1 run, got %d", len(summaries))
		}
		s := summaries[0]
		if s.ID != id || s.Starts != 3 || s.Walked != 2 || s.Rejected != 1 {
			t.Errorf("unexpected summary: %+v", s)
		}
	})

	t.Run("show", func(t *testing.T) {
		t.Parallel()
		dbDir, id := savedHistory(t)

		stdout, _, err := runRoot(t, "history", "show", id, "--db-dir", dbDir, "-j")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := decodeWalkOutput(t, stdout)
		if len(out.Walks) != 3 {
			t.Fatalf("expected 3 walks, got %d", len(out.Walks))
		}
		if out.Walks[0].Path.StopReason != model.ReachedTarget {
			t.Errorf("expected stored walk to reach the target, got %s", out.Walks[0].Path.StopReason)
		}
	})

	t.Run("show unknown run", func(t *testing.T) {
		t.Parallel()
		dbDir, _ := savedHistory(t)

		_, _, err := runRoot(t, "history", "show", "no-such-run", "--db-dir", dbDir)
		if !errors.Is(err, database.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("top", func(t *testing.T) {
		t.Parallel()
		dbDir, _ := savedHistory(t)

		stdout, _, err := runRoot(t, "history", "top", "--db-dir", dbDir, "-j")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var pages []database.PageCount
		if err := json.Unmarshal([]byte(stdout), &pages); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		// Art, Creativity, Philosophy, Loop A and Loop B each appear on one walk.
		if len(pages) != 5 {
			t.Fatalf("expected 5 pages, got %+v", pages)
		}
		if pages[0].Title != "Art" || pages[0].Walks != 1 {
			t.Errorf("expected Art first by title, got %+v", pages[0])
		}
	})

	t.Run("from", func(t *testing.T) {
		t.Parallel()
		dbDir, id := savedHistory(t)

		stdout, _, err := runRoot(t, "history", "from", "art", "--db-dir", dbDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, shortID(id)) {
			t.Errorf("expected run %s, got %q", shortID(id), stdout)
		}
		if !strings.Contains(stdout, "Art -> Creativity -> Philosophy") {
			t.Errorf("expected stored path, got %q", stdout)
		}
	})

	t.Run("delete", func(t *testing.T) {
		t.Parallel()
		dbDir, id := savedHistory(t)

		if _, _, err := runRoot(t, "history", "delete", id, "--db-dir", dbDir); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		stdout, _, err := runRoot(t, "history", "--db-dir", dbDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "No saved runs.") {
			t.Errorf("expected empty listing, got %q", stdout)
		}
	})

	t.Run("no database", func(t *testing.T) {
		t.Parallel()

		_, _, err := runRoot(t, "history", "--db-dir", t.TempDir())
		if !errors.Is(err, errNoHistory) {
			t.Errorf("expected errNoHistory, got %v", err)
		}
	})
}

func TestRunSummary(t *testing.T) {
	t.Parallel()

	s := runSummary(database.RunRecord{
		ID:       "run",
		Starts:   5,
		ByReason: map[string]int{"reached_target": 2, "cycle_detected": 1},
	})
	if s.Walked != 3 || s.Rejected != 2 {
		t.Errorf("expected 3 walked and 2 rejected, got %d and %d", s.Walked, s.Rejected)
	}
}

func TestShortID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"0b6e4a2c-1111-2222-3333-444455556666", "0b6e4a2c"},
		{"plain", "plain"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := shortID(tt.in); got != tt.want {
			t.Errorf("shortID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
