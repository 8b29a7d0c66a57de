package crawler

import "strings"

// span is the byte range of one balanced pair of parentheses; open and
// close are the indexes of '(' and ')'.
type span struct {
	open  int
	close int
}

// parenSpans returns every balanced parenthesis pair of s at any depth.
// Unmatched parentheses are ignored.
//
// Design decision: We scan with a stack instead of depth-limited regular
// expressions because:
//  1. Nesting deeper than three levels is handled the same as shallow nesting
//  2. One pass over the text finds every span
//  3. The result can be queried by position, not only by substring
func parenSpans(s string) []span {
	spans := make([]span, 0)
	stack := make([]int, 0)

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			stack = append(stack, i)
		case ')':
			if len(stack) == 0 {
				continue
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			spans = append(spans, span{open: open, close: i})
		}
	}

	return spans
}

// enclosedAt reports whether byte position pos of s lies strictly inside a
// balanced parenthesis pair.
func enclosedAt(s string, pos int) bool {
	if pos < 0 || pos > len(s) {
		return false
	}
	for _, sp := range parenSpans(s) {
		if sp.open < pos && pos <= sp.close {
			return true
		}
	}
	return false
}

// enclosedText reports whether sub occurs inside any balanced parenthesis
// pair of s. It is used when the position of a link is unknown.
func enclosedText(s, sub string) bool {
	if sub == "" {
		return false
	}
	for _, sp := range parenSpans(s) {
		if strings.Contains(s[sp.open:sp.close+1], sub) {
			return true
		}
	}
	return false
}
