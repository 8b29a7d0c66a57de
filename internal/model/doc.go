// Package model defines the core data structures shared by the walker,
// the wiki client and the report writers.
//
// This package contains the following main types:
//   - PageID: A normalized article title used as the identity of a page
//   - PageHandle: A fetched page with its rendered body
//   - TraversalPath: The ordered chain of pages visited by one walk
//   - StopReason: Why a walk ended
//   - WalkReport and BatchReport: Per-start and per-batch results
//
// Design decision: We keep the models in their own package so that the
// crawler, wiki, pipeline, database and report packages can share them
// without import cycles.
package model
