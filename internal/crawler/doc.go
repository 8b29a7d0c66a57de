// Package crawler decides which link of an article is its "first link" and
// follows first links from page to page.
//
// # Architecture
//
// The package has two halves:
//
//   - Filter: a pure decision function over LinkCandidate values. It skips
//     footnotes, parenthetical asides, infoboxes, navigation boxes, tables
//     of contents, captions and disambiguation markers.
//   - Walker: follows the first qualifying link of each page through a
//     Resolver until the target is reached, a page repeats, a page has no
//     qualifying link, or the step ceiling is hit.
//
// Design decision: We keep candidate extraction (NewLinkCandidate) separate from
// the decision (Filter.IsFirstLinkCandidate) because:
//  1. The decision can be tested without HTML
//  2. Each rule reads only the candidate, so the filter has no hidden state
//  3. Debug logging can report which rule rejected a link
//
// # Usage
//
//	walker := crawler.NewWalker(client, crawler.WithTarget("Philosophy"))
//	path := walker.Walk(ctx, model.NewPageID("Art"))
//	fmt.Println(path.Pages, path.StopReason)
//
// # Concurrency
//
// A Walker holds no per-walk state, but each walk blocks on one fetch at a
// time. Independent walks may run in parallel when the Resolver is safe for
// concurrent use, as wiki.Client is; see the pipeline package.
package crawler
