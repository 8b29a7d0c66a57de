package crawler

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Element is one ancestor of a link with the attributes the filter reads.
type Element struct {
	// Tag is the lower-case element name.
	Tag string

	// Class is the raw class attribute.
	Class string

	// ID is the id attribute.
	ID string
}

// LinkCandidate is a hyperlink of a rendered article together with the
// parts of its surrounding document the filter needs. It is a copy, so it
// stays valid after the document is discarded.
type LinkCandidate struct {
	// Href is the raw href attribute.
	Href string

	// Text is the display text, trimmed.
	Text string

	// Class is the link's own class attribute.
	Class string

	// ParentTag is the element name of the immediate parent.
	ParentTag string

	// Ancestors lists every ancestor element, nearest first.
	Ancestors []Element

	// BlockText is the plain text of the block that contains the link.
	BlockText string

	// Offset is the byte offset in BlockText where the link's text starts,
	// or -1 when unknown.
	Offset int
}

// blockTags are the elements treated as the containing block of a link
// when looking for parenthetical asides.
var blockTags = map[string]bool{
	"p":          true,
	"li":         true,
	"dd":         true,
	"dt":         true,
	"td":         true,
	"th":         true,
	"div":        true,
	"blockquote": true,
	"section":    true,
	"body":       true,
}

// NewLinkCandidate builds the candidate for the first node of s.
func NewLinkCandidate(s *goquery.Selection) LinkCandidate {
	c := LinkCandidate{
		Href:   strings.TrimSpace(s.AttrOr("href", "")),
		Text:   strings.TrimSpace(s.Text()),
		Class:  s.AttrOr("class", ""),
		Offset: -1,
	}

	node := s.Get(0)
	if node == nil {
		return c
	}

	for p := node.Parent; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		if c.ParentTag == "" {
			c.ParentTag = p.Data
		}
		c.Ancestors = append(c.Ancestors, Element{
			Tag:   p.Data,
			Class: attr(p, "class"),
			ID:    attr(p, "id"),
		})
	}

	if block := containingBlock(node); block != nil {
		c.BlockText, c.Offset = textWithOffset(block, node)
	}

	return c
}

// containingBlock returns the nearest block-level ancestor of n. Links
// outside any block fall back to the grandparent.
func containingBlock(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && blockTags[p.Data] {
			return p
		}
	}
	if n.Parent != nil && n.Parent.Parent != nil {
		return n.Parent.Parent
	}
	return n.Parent
}

// textWithOffset returns the text content of root and the byte offset at
// which the text of target begins, or -1 if target is not under root.
func textWithOffset(root, target *html.Node) (string, int) {
	var sb strings.Builder
	offset := -1

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n == target {
			offset = sb.Len()
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return sb.String(), offset
}

// attr retrieves an attribute value from an HTML node.
func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
