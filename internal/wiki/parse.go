package wiki

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// parseResponse is the JSON answer of action=parse&prop=text in
// formatversion 1.
type parseResponse struct {
	Parse *parseResult `json:"parse"`
	Error *apiError    `json:"error"`
}

// parseResult holds the rendered page.
type parseResult struct {
	Title  string `json:"title"`
	PageID int    `json:"pageid"`
	Text   struct {
		HTML string `json:"*"`
	} `json:"text"`
}

// apiError is the error object MediaWiki returns instead of a result.
type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

// notFoundCodes are the API error codes for a title without content:
// a missing article, a title MediaWiki cannot represent ("Foo[bar]"), or
// an unknown page id.
var notFoundCodes = map[string]bool{
	"missingtitle": true,
	"invalidtitle": true,
	"nosuchpageid": true,
}

// redirectLabel introduces the target list of a redirect notice.
const redirectLabel = "Redirect to:"

var (
	// notFoundMarkers appear in bodies of articles that do not exist.
	notFoundMarkers = []string{"The page you specified doesn't exist"}

	// disambiguationMarkers appear in bodies of disambiguation pages.
	disambiguationMarkers = []string{"Disambiguation page", " may refer to:"}

	// disambiguationSelector matches the notice box of disambiguation pages.
	disambiguationSelector = "#disambigbox, .disambigbox"
)

// isRedirect reports whether doc is a redirect notice rather than an article.
func isRedirect(doc *goquery.Document) bool {
	return doc.Find("div.redirectMsg").Length() > 0
}

// redirectHref extracts the target href of a redirect notice.
// The notice looks like:
//
//	<div class="redirectMsg"><p>Redirect to:</p>
//	<ul class="redirectText"><li><a href="/wiki/Target">Target</a></li></ul></div>
func redirectHref(doc *goquery.Document) (string, bool) {
	msg := doc.Find("div.redirectMsg").First()

	link := msg.Find(".redirectText a[href]").First()
	if link.Length() == 0 {
		// Older markup has no class on the list; take the list that
		// follows the label.
		label := msg.Find("p").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.TrimSpace(s.Text()) == redirectLabel
		}).First()
		link = label.NextAll().Find("a[href]").First()
	}

	href, ok := link.Attr("href")
	href = strings.TrimSpace(href)
	return href, ok && href != ""
}

// ineligibility returns ErrNotFound or ErrIneligible when doc cannot start
// a walk, and nil otherwise.
func ineligibility(doc *goquery.Document) error {
	text := doc.Text()

	if containsAny(text, notFoundMarkers) {
		return ErrNotFound
	}
	if containsAny(text, disambiguationMarkers) || doc.Find(disambiguationSelector).Length() > 0 {
		return ErrIneligible
	}
	return nil
}

// containsAny reports whether s contains any of the substrings.
func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
