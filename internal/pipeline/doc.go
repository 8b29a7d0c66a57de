// Package pipeline runs walks for one or many starting articles.
//
// A walk for one start is processed through a Pipeline of Steps: the
// eligibility check rejects missing articles and disambiguation pages,
// then the walk step follows first links until a stop reason is reached.
// Each Step receives the WalkReport of its start and fills it in.
//
// Design decision: We use a pipeline of steps instead of a single function
// because:
//  1. The eligibility check can be dropped (--skip-check) without touching
//     the walk
//  2. Logging and error recording are the same for every step
//  3. Cancellation is checked between steps
//
// BatchProcessor walks many starts concurrently with errgroup, giving each
// walk a fresh pipeline, and aggregates the results into a BatchReport.
package pipeline
