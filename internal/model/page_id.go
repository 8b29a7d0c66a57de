package model

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// DefaultArticlePath is the path prefix under which MediaWiki serves articles.
const DefaultArticlePath = "/wiki/"

// PageID is the normalized title of an article. Two PageIDs refer to the
// same article if and only if they are equal.
//
// The normalized form is human readable: spaces instead of underscores,
// percent escapes decoded, runs of whitespace collapsed, NFC composed and
// the first letter upper-cased the way MediaWiki does for the main namespace.
type PageID string

// NewPageID derives a PageID from a raw title, an article path such as
// "/wiki/Foo_bar" or a full article URL. The derivation is deterministic,
// so normalizing an already normalized PageID returns it unchanged.
func NewPageID(raw string) PageID {
	return NewPageIDWithPrefix(raw, DefaultArticlePath)
}

// NewPageIDWithPrefix is NewPageID for wikis that serve articles under a
// different path prefix.
func NewPageIDWithPrefix(raw, articlePath string) PageID {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	// Full URLs: keep only the escaped path so that the decoding below
	// runs exactly once.
	if u, err := url.Parse(s); err == nil && u.Scheme != "" && u.Host != "" {
		s = u.EscapedPath()
	}

	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}

	if articlePath != "" {
		s = strings.TrimPrefix(s, articlePath)
	}

	if strings.Contains(s, "%") {
		if decoded, err := url.PathUnescape(s); err == nil {
			s = decoded
		}
	}

	s = strings.ReplaceAll(s, "_", " ")
	s = strings.Join(strings.Fields(s), " ")
	s = norm.NFC.String(s)

	return PageID(upperFirst(s))
}

// upperFirst upper-cases the first rune of s.
func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// String returns the title.
func (id PageID) String() string {
	return string(id)
}

// IsZero reports whether the identifier is empty.
func (id PageID) IsZero() bool {
	return id == ""
}

// Path returns the escaped article path for the identifier, using
// underscores in place of spaces (e.g. "/wiki/AC/DC").
func (id PageID) Path(articlePath string) string {
	if articlePath == "" {
		articlePath = DefaultArticlePath
	}
	u := url.URL{Path: articlePath + strings.ReplaceAll(string(id), " ", "_")}
	return u.EscapedPath()
}

// DisplayName returns the title with colons replaced by the look-alike
// modifier letter U+02F8. Graph tools such as Graphviz treat ':' as a port
// separator in node names.
func (id PageID) DisplayName() string {
	return strings.ReplaceAll(string(id), ":", "˸")
}
