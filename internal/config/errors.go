package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoStart is returned when neither a start title nor --random is given.
	ErrNoStart = errors.New("no start article specified: provide a title or use --random")

	// ErrEmptyBaseURL is returned when no wiki base URL is configured.
	ErrEmptyBaseURL = errors.New("empty base URL: set base_url or --base-url")

	// ErrEmptyTarget is returned when the target article is blank.
	ErrEmptyTarget = errors.New("empty target article")

	// ErrInvalidMaxSteps is returned when the step ceiling is not positive.
	ErrInvalidMaxSteps = errors.New("invalid max steps: must be positive")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	// A timeout of zero or negative would cause immediate request failures.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidRandomCount is returned when --random is negative.
	ErrInvalidRandomCount = errors.New("invalid random count: must be non-negative")

	// ErrInvalidClassMatch is returned for an unknown class match policy.
	ErrInvalidClassMatch = errors.New("invalid class match policy: must be substring or token")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// A negative body size is invalid; use 0 to use the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrUnknownProfile is returned when a named wiki profile is not in the
	// configuration file.
	ErrUnknownProfile = errors.New("unknown profile")
)
