package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/philosophy/internal/crawler"
	"github.com/nao1215/philosophy/internal/model"
	"github.com/nao1215/philosophy/internal/wiki"
)

// Rejection reasons recorded in WalkReport.IneligibleReason.
const (
	ReasonEmptyTitle     = "empty title"
	ReasonNotFound       = "not found"
	ReasonDisambiguation = "disambiguation page"
	ReasonFetchFailed    = "fetch failed"
	ReasonCancelled      = "cancelled"
)

// EligibilityChecker decides whether a title can start a walk.
// The wiki package's Client implements it.
type EligibilityChecker interface {
	IsEligibleStartingArticle(ctx context.Context, title model.PageID) (bool, error)
}

// StartPageChecker is an EligibilityChecker that hands back the start page
// it fetched. EligibilityStep keeps that page on the report so the walk
// does not fetch the start a second time.
type StartPageChecker interface {
	CheckStartingArticle(ctx context.Context, title model.PageID) (*model.PageHandle, error)
}

// WikiClient is what the default pipeline needs from a wiki.
type WikiClient interface {
	crawler.Resolver
	EligibilityChecker
}

// EligibilityStep rejects starts that do not exist or are disambiguation
// pages. A rejected start ends the pipeline with ErrSkipRemaining.
type EligibilityStep struct {
	// checker performs the check against the wiki.
	checker EligibilityChecker

	// logger for structured logging.
	logger *slog.Logger
}

// EligibilityStepOption configures an EligibilityStep.
type EligibilityStepOption func(*EligibilityStep)

// WithEligibilityLogger sets a custom logger for the eligibility step.
func WithEligibilityLogger(logger *slog.Logger) EligibilityStepOption {
	return func(s *EligibilityStep) {
		s.logger = logger
	}
}

// NewEligibilityStep creates a new eligibility step.
func NewEligibilityStep(checker EligibilityChecker, opts ...EligibilityStepOption) *EligibilityStep {
	s := &EligibilityStep{
		checker: checker,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *EligibilityStep) Name() string {
	return "eligibility"
}

// Do executes the eligibility check.
func (s *EligibilityStep) Do(ctx context.Context, report *model.WalkReport) error {
	if report.Start.IsZero() {
		report.Reject(ReasonEmptyTitle, crawler.ErrEmptyStart)
		return ErrSkipRemaining
	}

	var (
		ok  bool
		err error
	)
	if pc, isPageChecker := s.checker.(StartPageChecker); isPageChecker {
		var page *model.PageHandle
		page, err = pc.CheckStartingArticle(ctx, report.Start)
		ok = err == nil && page != nil
		report.StartPage = page
	} else {
		ok, err = s.checker.IsEligibleStartingArticle(ctx, report.Start)
	}
	if ok {
		report.Eligible = true
		return nil
	}

	reason := rejectionReason(err)
	s.logger.Warn("start rejected",
		"start", report.Start,
		"reason", reason,
		"error", err,
	)
	report.Reject(reason, err)
	return ErrSkipRemaining
}

// rejectionReason maps a check error to a short reason.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, wiki.ErrNotFound):
		return ReasonNotFound
	case errors.Is(err, wiki.ErrIneligible):
		return ReasonDisambiguation
	default:
		return ReasonFetchFailed
	}
}

// WalkStep follows first links from the start and stores the path.
type WalkStep struct {
	// walker performs the walk. One walker serves one pipeline.
	walker *crawler.Walker

	// logger for structured logging.
	logger *slog.Logger
}

// WalkStepOption configures a WalkStep.
type WalkStepOption func(*WalkStep)

// WithWalkLogger sets a custom logger for the walk step.
func WithWalkLogger(logger *slog.Logger) WalkStepOption {
	return func(s *WalkStep) {
		s.logger = logger
	}
}

// NewWalkStep creates a new walk step.
func NewWalkStep(walker *crawler.Walker, opts ...WalkStepOption) *WalkStep {
	s := &WalkStep{
		walker: walker,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *WalkStep) Name() string {
	return "walk"
}

// Do walks from the report's start. The walk's own errors are recorded in
// the report and are not step failures.
func (s *WalkStep) Do(ctx context.Context, report *model.WalkReport) error {
	report.Eligible = true

	path := s.walker.WalkFrom(ctx, report.Start, report.StartPage)
	report.StartPage = nil
	report.Path = path
	if path.Err != nil {
		report.SetError(path.Err)
	}

	s.logger.Info("walk finished",
		"start", report.Start,
		"reason", path.StopReason,
		"length", path.Len(),
	)

	if !path.Done() {
		return fmt.Errorf("walk from %s ended without a stop reason", report.Start)
	}
	return nil
}

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	// Target is the article that ends a walk successfully.
	Target model.PageID

	// MaxSteps is the ceiling on links followed per walk.
	MaxSteps int

	// ClassMatch is the class marker comparison policy of the filter.
	ClassMatch crawler.ClassMatch

	// ArticlePath is the href prefix of article links.
	ArticlePath string

	// SkipEligibility drops the eligibility step.
	SkipEligibility bool

	// Logger is passed to the steps and the walker.
	Logger *slog.Logger
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineTarget sets the target article.
func WithPipelineTarget(target model.PageID) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Target = target
	}
}

// WithPipelineMaxSteps sets the step ceiling.
func WithPipelineMaxSteps(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MaxSteps = n
	}
}

// WithPipelineClassMatch sets the class marker comparison policy.
func WithPipelineClassMatch(m crawler.ClassMatch) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.ClassMatch = m
	}
}

// WithPipelineArticlePath sets the href prefix of article links.
func WithPipelineArticlePath(prefix string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.ArticlePath = prefix
	}
}

// WithPipelineSkipEligibility drops the eligibility step.
func WithPipelineSkipEligibility(skip bool) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.SkipEligibility = skip
	}
}

// WithPipelineLogger sets the logger of the steps and the walker.
func WithPipelineLogger(logger *slog.Logger) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Logger = logger
	}
}

// DefaultPipeline creates the standard pipeline: eligibility check, then
// walk. Each call builds a fresh walker, so pipelines never share state
// beyond the client, which is safe for concurrent use.
//
// The first variadic parameter accepts pipeline options (WithLogger, etc).
// The second accepts pipeline config options (WithPipelineTarget, etc).
func DefaultPipeline(client WikiClient, pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	cfg := &DefaultPipelineConfig{
		Target:      crawler.DefaultTarget,
		MaxSteps:    crawler.DefaultMaxSteps,
		ClassMatch:  crawler.ClassMatchSubstring,
		ArticlePath: model.DefaultArticlePath,
	}
	for _, opt := range configOpts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	p := New(pipelineOpts...)

	filter := crawler.NewFilter(
		crawler.WithArticlePaths(cfg.ArticlePath),
		crawler.WithClassMatch(cfg.ClassMatch),
	)
	walker := crawler.NewWalker(client,
		crawler.WithTarget(cfg.Target),
		crawler.WithMaxSteps(cfg.MaxSteps),
		crawler.WithFilter(filter),
		crawler.WithWalkerLogger(cfg.Logger),
	)

	if !cfg.SkipEligibility {
		p.AddStep(NewEligibilityStep(client, WithEligibilityLogger(cfg.Logger)))
	}
	p.AddStep(NewWalkStep(walker, WithWalkLogger(cfg.Logger)))

	return p
}
