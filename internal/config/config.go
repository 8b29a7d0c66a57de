package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultBaseURL is the English Wikipedia, where the phenomenon was
	// first observed.
	DefaultBaseURL = "https://en.wikipedia.org"

	// DefaultArticlePath is the prefix under which articles are served.
	DefaultArticlePath = "/wiki/"

	// DefaultAPIPath is the path of the MediaWiki action API.
	DefaultAPIPath = "/w/api.php"

	// DefaultTarget is the article walks try to reach.
	DefaultTarget = "Philosophy"

	// DefaultMaxSteps bounds the links followed per walk. Real chains that
	// reach Philosophy are far shorter; the ceiling only stops runaway walks.
	DefaultMaxSteps = 100

	// DefaultTimeout bounds each HTTP request. The API answers in well under
	// a second normally; 30 seconds tolerates slow parses of huge articles.
	DefaultTimeout = 30 * time.Second

	// DefaultBatchSize is the number of walks run concurrently. Wikimedia
	// asks API clients to keep parallelism low.
	DefaultBatchSize = 4

	// AppName is the application name used for XDG directory paths.
	AppName = "philosophy"

	// DefaultUserAgent identifies the tool as Wikimedia's User-Agent
	// policy requires.
	DefaultUserAgent = "philosophy/1.0 (+https://github.com/nao1215/philosophy)"

	// DefaultMaxBodySize limits the maximum response body size to read.
	// The rendered HTML of the longest articles stays below this.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// ClassMatchSubstring and ClassMatchToken are the accepted class match
	// policies.
	ClassMatchSubstring = "substring"
	ClassMatchToken     = "token"
)

// Config holds all configuration options for philosophy.
// This struct is populated from defaults, the configuration file and CLI
// flags, and passed through the application rather than kept as global state.
//
// Design decision: We use a single flat struct instead of nested structs
// for simplicity. The number of options is manageable, and profiles in the
// configuration file already group the wiki-specific settings.
type Config struct {
	// BaseURL is the scheme and host of the wiki, e.g. "https://de.wikipedia.org".
	BaseURL string

	// ArticlePath is the prefix under which articles are served.
	ArticlePath string

	// APIPath is the path of api.php.
	APIPath string

	// Target is the article that ends a walk successfully.
	// Localized wikis need their own title, e.g. "Philosophie".
	Target string

	// MaxSteps is the ceiling on links followed per walk.
	MaxSteps int

	// ClassMatch selects how class markers are compared: "substring"
	// (default) or "token".
	ClassMatch string

	// Timeout is the timeout for each HTTP request.
	Timeout time.Duration

	// BatchSize is the number of concurrent walks.
	BatchSize int

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// Headers are extra HTTP headers sent with every request, such as an
	// Authorization header for private wikis.
	Headers map[string]string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Set to 0 to use the default.
	MaxBodySize int64

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	ProxyAddress string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// SkipEligibility disables the starting article check, so that
	// disambiguation pages can be walked deliberately.
	SkipEligibility bool

	// Starts are the titles to walk from.
	Starts []string

	// Random is the number of random starting articles to add.
	Random int

	// ConfigFilePath is the path to the configuration file.
	// If empty, FindConfigFile searches the default locations.
	ConfigFilePath string

	// Profile names the wiki profile from the configuration file.
	// Empty means only the file's defaults apply.
	Profile string

	// JSONReport enables JSON report output.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output with a stop reason
	// pie chart and one flowchart per walk.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// DBDir is the directory of the walk history database.
	// Defaults to the XDG data directory (~/.local/share/philosophy on Linux).
	DBDir string

	// SaveToDB stores the batch in the history database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, target).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		BaseURL:     DefaultBaseURL,
		ArticlePath: DefaultArticlePath,
		APIPath:     DefaultAPIPath,
		Target:      DefaultTarget,
		MaxSteps:    DefaultMaxSteps,
		ClassMatch:  ClassMatchSubstring,
		Timeout:     DefaultTimeout,
		BatchSize:   DefaultBatchSize,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		DBDir:       XDGDataDir(),
	}
}

// ApplyProfile overwrites the wiki settings of c with the non-empty values
// of p. Headers are merged, with p winning on conflicts.
func (c *Config) ApplyProfile(p Profile) {
	if p.BaseURL != "" {
		c.BaseURL = p.BaseURL
	}
	if p.ArticlePath != "" {
		c.ArticlePath = p.ArticlePath
	}
	if p.APIPath != "" {
		c.APIPath = p.APIPath
	}
	if p.Target != "" {
		c.Target = p.Target
	}
	if p.MaxSteps != 0 {
		c.MaxSteps = p.MaxSteps
	}
	if p.ClassMatch != "" {
		c.ClassMatch = p.ClassMatch
	}
	if p.UserAgent != "" {
		c.UserAgent = p.UserAgent
	}
	if p.Proxy != "" {
		c.ProxyAddress = p.Proxy
	}
	if len(p.Headers) > 0 {
		if c.Headers == nil {
			c.Headers = make(map[string]string, len(p.Headers))
		}
		for k, v := range p.Headers {
			c.Headers[k] = v
		}
	}
}

// XDGDataDir returns the XDG data directory for philosophy.
// On Linux: ~/.local/share/philosophy
// On macOS: ~/Library/Application Support/philosophy
// On Windows: %LOCALAPPDATA%\philosophy
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for philosophy.
// On Linux: ~/.config/philosophy
// On macOS: ~/Library/Application Support/philosophy
// On Windows: %APPDATA%\philosophy
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any walk begins.
func (c *Config) Validate() error {
	if len(c.Starts) == 0 && c.Random == 0 {
		return ErrNoStart
	}

	if c.Random < 0 {
		return ErrInvalidRandomCount
	}

	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrEmptyBaseURL
	}

	if strings.TrimSpace(c.Target) == "" {
		return ErrEmptyTarget
	}

	if c.MaxSteps <= 0 {
		return ErrInvalidMaxSteps
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	switch strings.ToLower(c.ClassMatch) {
	case "", ClassMatchSubstring, ClassMatchToken:
	default:
		return ErrInvalidClassMatch
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}
