package pipeline

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/nao1215/philosophy/internal/wiki"
)

// discardLogger keeps test output quiet.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// article renders a page body whose first link points at next.
func article(next string) string {
	return `<div class="mw-parser-output"><p>Subject of <a href="/wiki/` +
		strings.ReplaceAll(next, " ", "_") + `">` + next + `</a> study.</p></div>`
}

// stub renders a page body without links.
func stub() string {
	return `<div class="mw-parser-output"><p>Nothing links out of here.</p></div>`
}

// disambiguation renders a disambiguation page body.
func disambiguation(title string) string {
	return `<div class="mw-parser-output"><p><b>` + title + `</b> may refer to:</p>` +
		`<ul><li><a href="/wiki/Other">Other</a></li></ul></div>`
}

// redirectTo renders a redirect notice.
func redirectTo(target string) string {
	return `<div class="mw-parser-output"><div class="redirectMsg"><p>Redirect to:</p>` +
		`<ul class="redirectText"><li><a href="/wiki/` + strings.ReplaceAll(target, " ", "_") +
		`">` + target + `</a></li></ul></div></div>`
}

// fakeWiki serves the parse API and Special:Random for a fixed set of pages.
type fakeWiki struct {
	pages  map[string]string
	random []string

	mu       sync.Mutex
	requests int
	nextRand int
}

func (f *fakeWiki) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/w/api.php", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests++
		f.mu.Unlock()

		title := r.URL.Query().Get("page")
		w.Header().Set("Content-Type", "application/json")

		if strings.ContainsAny(title, "[]<>") {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{"code": "invalidtitle", "info": "Bad title"},
			})
			return
		}

		html, ok := f.pages[title]
		if !ok {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{"code": "missingtitle", "info": "The page you specified doesn't exist."},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"parse": map[string]any{
				"title": title,
				"text":  map[string]string{"*": html},
			},
		})
	})

	mux.HandleFunc("/wiki/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wiki/Special:Random" {
			_, _ = io.WriteString(w, "<html></html>")
			return
		}

		f.mu.Lock()
		title := f.random[f.nextRand%len(f.random)]
		f.nextRand++
		f.mu.Unlock()

		http.Redirect(w, r, "/wiki/"+strings.ReplaceAll(title, " ", "_"), http.StatusFound)
	})

	return mux
}

// requestCount returns the number of parse API calls served.
func (f *fakeWiki) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

// newFakeWiki starts a fake wiki server and returns a client for it.
func newFakeWiki(t *testing.T, pages map[string]string, random ...string) (*wiki.Client, *fakeWiki) {
	t.Helper()

	fake := &fakeWiki{pages: pages, random: random}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	client, err := wiki.NewClient(srv.URL, wiki.WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client, fake
}

// philosophyWiki is a small wiki where most chains reach Philosophy.
func philosophyWiki() map[string]string {
	return map[string]string{
		"Art":             article("Creativity"),
		"Creativity":      article("Philosophy"),
		"Philosophy":      article("Knowledge"),
		"Knowledge":       article("Philosophy"),
		"Loop A":          article("Loop B"),
		"Loop B":          article("Loop A"),
		"Island":          stub(),
		"Mercury":         disambiguation("Mercury"),
		"Creative":        redirectTo("Creativity"),
		"Science":         article("Natural science"),
		"Natural science": article("Philosophy"),
	}
}
