package model

import (
	"github.com/PuerkitoBio/goquery"
)

// PageHandle is a fetched article. It is created by the wiki client and is
// not modified afterwards; the caller that requested it owns it.
//
// Design decision: We keep the parsed document rather than raw bytes because:
//  1. The link filter walks ancestors, which needs a tree with parent links
//  2. Parsing once per fetch keeps the walker free of parse errors
//  3. Raw bytes are never needed after parsing
type PageHandle struct {
	// ID is the final title of the page after any redirect was followed.
	ID PageID

	// CanonicalURL is the absolute article URL for ID.
	CanonicalURL string

	// RedirectedFrom is the title that was requested when the server
	// answered with a redirect notice. Empty when no redirect happened.
	RedirectedFrom PageID

	// Body is the rendered article body.
	Body *goquery.Document
}

// Redirected reports whether the handle was reached through a redirect.
func (h *PageHandle) Redirected() bool {
	return h.RedirectedFrom != ""
}
