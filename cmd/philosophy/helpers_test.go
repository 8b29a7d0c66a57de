package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/nao1215/philosophy/internal/model"
)

// article renders a page body whose first link points at next.
func article(next string) string {
	return `<div class="mw-parser-output"><p>Subject of <a href="/wiki/` +
		strings.ReplaceAll(next, " ", "_") + `">` + next + `</a> study.</p></div>`
}

// testPages is a small wiki where most chains reach Philosophy.
func testPages() map[string]string {
	return map[string]string{
		"Art":        article("Creativity"),
		"Creativity": article("Philosophy"),
		"Philosophy": article("Knowledge"),
		"Knowledge":  article("Philosophy"),
		"Loop A":     article("Loop B"),
		"Loop B":     article("Loop A"),
		"Island":     `<div class="mw-parser-output"><p>Nothing links out of here.</p></div>`,
		"Mercury": `<div class="mw-parser-output"><p><b>Mercury</b> may refer to:</p>` +
			`<ul><li><a href="/wiki/Planet">Planet</a></li></ul></div>`,
	}
}

// newTestWiki starts a fake MediaWiki and returns its base URL.
// Special:Random cycles through random.
func newTestWiki(t *testing.T, random ...string) string {
	t.Helper()

	pages := testPages()
	var (
		mu   sync.Mutex
		next int
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/w/api.php", func(w http.ResponseWriter, r *http.Request) {
		title := r.URL.Query().Get("page")
		w.Header().Set("Content-Type", "application/json")

		if strings.ContainsAny(title, "[]<>") {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{"code": "invalidtitle", "info": "Bad title"},
			})
			return
		}

		html, ok := pages[title]
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
		if r.URL.Path != "/wiki/Special:Random" || len(random) == 0 {
			_, _ = io.WriteString(w, "<html></html>")
			return
		}
		mu.Lock()
		title := random[next%len(random)]
		next++
		mu.Unlock()
		http.Redirect(w, r, "/wiki/"+strings.ReplaceAll(title, " ", "_"), http.StatusFound)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL
}

// writeTestConfig writes a configuration file into a temporary directory,
// so that tests never pick up a .philosophy file of the developer.
func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".philosophy")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// emptyConfig is a configuration file that keeps every default.
const emptyConfig = "defaults:\n  target: Philosophy\n"

// runRoot executes the root command with args and returns stdout and
// stderr.
func runRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// walkOutput is the part of the JSON report the tests inspect.
type walkOutput struct {
	Summary model.BatchSummary `json:"summary"`
	Walks   []model.WalkReport `json:"walks"`
}

// decodeWalkOutput parses a JSON walk report.
func decodeWalkOutput(t *testing.T, data string) walkOutput {
	t.Helper()

	var out walkOutput
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		t.Fatalf("invalid JSON report: %v\n%s", err, data)
	}
	return out
}
