package crawler

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/philosophy/internal/model"
)

// Rejection names the rule that disqualified a link candidate.
type Rejection int

const (
	// RejectNone means the candidate qualifies.
	RejectNone Rejection = iota
	// RejectNotArticle means the href is not an in-wiki article path.
	RejectNotArticle
	// RejectOwnClass means the link's own class marks it as external,
	// disambiguation or infobox metadata.
	RejectOwnClass
	// RejectNamespace means the href points into a reserved namespace.
	RejectNamespace
	// RejectFragment means the href jumps to a section.
	RejectFragment
	// RejectFileExtension means the href looks like a media file.
	RejectFileExtension
	// RejectParenthetical means the link sits inside parentheses.
	RejectParenthetical
	// RejectAncestor means an ancestor is navigation, infobox, caption or
	// similar non-prose markup.
	RejectAncestor
	// RejectParentTag means the parent is small print, superscript or italic.
	RejectParentTag
	// RejectAlternateSpelling means the display text is the word "or".
	RejectAlternateSpelling
)

// String returns the rule name for logging.
func (r Rejection) String() string {
	switch r {
	case RejectNone:
		return "none"
	case RejectNotArticle:
		return "not_article"
	case RejectOwnClass:
		return "own_class"
	case RejectNamespace:
		return "namespace"
	case RejectFragment:
		return "fragment"
	case RejectFileExtension:
		return "file_extension"
	case RejectParenthetical:
		return "parenthetical"
	case RejectAncestor:
		return "ancestor"
	case RejectParentTag:
		return "parent_tag"
	case RejectAlternateSpelling:
		return "alternate_spelling"
	default:
		return "unknown"
	}
}

// ClassMatch selects how class markers are compared with class attributes.
type ClassMatch int

const (
	// ClassMatchSubstring rejects when any class token contains a marker,
	// so "thumb" also matches "thumbinner" and "box-text" matches
	// "mbox-text".
	ClassMatchSubstring ClassMatch = iota

	// ClassMatchToken rejects only when a class token equals a marker or
	// starts with the marker followed by '-'. Ancestors are compared with
	// the real class names of message boxes ("ambox", "mbox-text").
	ClassMatchToken
)

// ParseClassMatch converts a config value into a ClassMatch.
// Unknown values fall back to ClassMatchSubstring.
func ParseClassMatch(s string) ClassMatch {
	if strings.EqualFold(strings.TrimSpace(s), "token") {
		return ClassMatchToken
	}
	return ClassMatchSubstring
}

// String returns the config value for the policy.
func (m ClassMatch) String() string {
	if m == ClassMatchToken {
		return "token"
	}
	return "substring"
}

var (
	// sisterProjectMarkers identify links to other Wikimedia projects.
	sisterProjectMarkers = []string{"wikimedia", "wiktionary"}

	// ownClassMarkers disqualify a link by its own class.
	ownClassMarkers = []string{"external", "mw-disambig", "infobox-data"}

	// reservedNamespaces are the non-article namespaces, lower case.
	// Talk namespaces ("User talk", "Template talk", ...) are matched by suffix.
	reservedNamespaces = map[string]bool{
		"help":      true,
		"category":  true,
		"wikipedia": true,
		"project":   true,
		"template":  true,
		"file":      true,
		"image":     true,
		"talk":      true,
		"special":   true,
		"portal":    true,
	}

	// ancestorClassMarkers disqualify a link when any ancestor carries them.
	//   - thumbcaption, thumb: image captions
	//   - infobox: the summary table at the top of an article
	//   - navigation-not-searchable, sidebar, hlist: navigation boxes and lists
	//   - box-text: maintenance message boxes
	//   - toc: the table of contents
	//   - mw-editsection: the "edit" links next to headings
	ancestorClassMarkers = []string{
		"thumbcaption",
		"infobox",
		"navigation-not-searchable",
		"sidebar",
		"box-text",
		"toc",
		"mw-editsection",
		"thumb",
		"hlist",
	}

	// ancestorClassTokens are the real class names behind
	// ancestorClassMarkers, for ClassMatchToken. Message boxes carry
	// "ambox" (or another namespace's mbox) and "mbox-text", never
	// "box-text".
	ancestorClassTokens = []string{
		"thumbcaption",
		"infobox",
		"navigation-not-searchable",
		"sidebar",
		"ambox",
		"tmbox",
		"ombox",
		"cmbox",
		"imbox",
		"fmbox",
		"mbox-text",
		"mbox-small",
		"toc",
		"mw-editsection",
		"thumb",
		"hlist",
	}

	// ancestorIDs disqualify a link when any ancestor has one of these ids.
	ancestorIDs = map[string]bool{
		"coordinates": true,
	}

	// ancestorTags disqualify a link when any ancestor is one of these
	// elements. Newer parser output wraps image captions in figcaption.
	ancestorTags = map[string]bool{
		"figcaption": true,
	}

	// annotationTags are parents that denote footnotes, annotations and
	// alternate spellings rather than prose.
	annotationTags = map[string]bool{
		"small": true,
		"sup":   true,
		"i":     true,
	}

	// fileExtension matches a 3 or 4 letter extension at the end of a path.
	fileExtension = regexp.MustCompile(`\.[a-zA-Z]{3,4}$`)
)

// Filter decides whether a link counts as an article's first link.
// It has no side effects and no I/O, so one Filter may be shared freely.
type Filter struct {
	// articlePaths are the href prefixes of in-wiki articles.
	articlePaths []string

	// classMatch is the class marker comparison policy.
	classMatch ClassMatch
}

// FilterOption configures a Filter.
type FilterOption func(*Filter)

// WithArticlePaths sets the href prefixes recognized as article links.
// Empty prefixes are ignored.
func WithArticlePaths(prefixes ...string) FilterOption {
	return func(f *Filter) {
		kept := make([]string, 0, len(prefixes))
		for _, p := range prefixes {
			if p != "" {
				kept = append(kept, p)
			}
		}
		if len(kept) > 0 {
			f.articlePaths = kept
		}
	}
}

// WithClassMatch sets the class marker comparison policy.
func WithClassMatch(m ClassMatch) FilterOption {
	return func(f *Filter) {
		f.classMatch = m
	}
}

// NewFilter creates a Filter. By default it recognizes "/wiki/" links and
// matches class markers as substrings.
func NewFilter(opts ...FilterOption) *Filter {
	f := &Filter{
		articlePaths: []string{model.DefaultArticlePath},
		classMatch:   ClassMatchSubstring,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// IsFirstLinkCandidate reports whether c qualifies as a first link.
func (f *Filter) IsFirstLinkCandidate(c LinkCandidate) bool {
	return f.Check(c) == RejectNone
}

// Check returns the first rule that rejects c, or RejectNone.
// Rules are evaluated cheapest first.
func (f *Filter) Check(c LinkCandidate) Rejection {
	title, ok := f.articleTitle(c.Href)
	if !ok || containsAny(c.Href, sisterProjectMarkers) {
		return RejectNotArticle
	}

	if f.classMatches(c.Class, ownClassMarkers) {
		return RejectOwnClass
	}

	if inReservedNamespace(title) {
		return RejectNamespace
	}

	if strings.Contains(c.Href, "#") {
		return RejectFragment
	}

	if fileExtension.MatchString(c.Href) {
		return RejectFileExtension
	}

	if annotationTags[c.ParentTag] {
		return RejectParentTag
	}

	if strings.TrimSpace(c.Text) == "or" {
		return RejectAlternateSpelling
	}

	for _, a := range c.Ancestors {
		if ancestorIDs[a.ID] || ancestorTags[a.Tag] || f.classMatches(a.Class, f.ancestorMarkers()) {
			return RejectAncestor
		}
	}

	if inParentheses(c) {
		return RejectParenthetical
	}

	return RejectNone
}

// FirstLink returns the first qualifying link of doc in document order.
func (f *Filter) FirstLink(doc *goquery.Document) (LinkCandidate, bool) {
	var first LinkCandidate
	found := false

	if doc == nil {
		return first, false
	}

	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		c := NewLinkCandidate(s)
		if f.IsFirstLinkCandidate(c) {
			first = c
			found = true
			return false
		}
		return true
	})

	return first, found
}

// articleTitle strips a recognized article prefix from href.
func (f *Filter) articleTitle(href string) (string, bool) {
	for _, prefix := range f.articlePaths {
		if strings.HasPrefix(href, prefix) && len(href) > len(prefix) {
			return href[len(prefix):], true
		}
	}
	return "", false
}

// ancestorMarkers returns the ancestor class list for the configured
// policy.
func (f *Filter) ancestorMarkers() []string {
	if f.classMatch == ClassMatchToken {
		return ancestorClassTokens
	}
	return ancestorClassMarkers
}

// classMatches reports whether any token of classAttr matches any marker
// under the configured policy.
func (f *Filter) classMatches(classAttr string, markers []string) bool {
	if classAttr == "" {
		return false
	}
	for _, token := range strings.Fields(classAttr) {
		for _, marker := range markers {
			switch f.classMatch {
			case ClassMatchToken:
				if token == marker || strings.HasPrefix(token, marker+"-") {
					return true
				}
			default:
				if strings.Contains(token, marker) {
					return true
				}
			}
		}
	}
	return false
}

// inReservedNamespace reports whether the title part of an href starts
// with a reserved namespace followed by a colon.
func inReservedNamespace(title string) bool {
	if decoded, err := url.PathUnescape(title); err == nil {
		title = decoded
	}
	i := strings.IndexByte(title, ':')
	if i <= 0 {
		return false
	}
	ns := strings.ToLower(strings.ReplaceAll(title[:i], "_", " "))
	ns = strings.TrimSpace(ns)
	return reservedNamespaces[ns] || strings.HasSuffix(ns, " talk")
}

// inParentheses reports whether the candidate sits inside a balanced
// parenthetical aside of its containing block.
func inParentheses(c LinkCandidate) bool {
	if c.BlockText == "" {
		return false
	}
	if c.Offset >= 0 {
		return enclosedAt(c.BlockText, c.Offset)
	}
	return enclosedText(c.BlockText, c.Text)
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
