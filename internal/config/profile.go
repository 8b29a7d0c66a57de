package config

import (
	"fmt"
	"maps"
	"slices"
)

// Profile holds the wiki-specific settings of one named profile.
// It lets one configuration file describe several language editions.
type Profile struct {
	// BaseURL is the scheme and host of the wiki.
	BaseURL string `yaml:"base_url,omitempty"`

	// ArticlePath overrides the article prefix ("/wiki/").
	ArticlePath string `yaml:"article_path,omitempty"`

	// APIPath overrides the api.php path ("/w/api.php").
	APIPath string `yaml:"api_path,omitempty"`

	// Target is the article that ends a walk, in the wiki's language.
	Target string `yaml:"target,omitempty"`

	// MaxSteps overrides the step ceiling. Zero keeps the current value.
	MaxSteps int `yaml:"max_steps,omitempty"`

	// ClassMatch is "substring" or "token".
	ClassMatch string `yaml:"class_match,omitempty"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"user_agent,omitempty"`

	// Headers are custom HTTP headers sent to this wiki.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Proxy is a SOCKS5 proxy in "host:port" format.
	Proxy string `yaml:"proxy,omitempty"`
}

// File represents the structure of the .philosophy configuration file.
type File struct {
	// Defaults apply to every walk, whichever profile is selected.
	Defaults Profile `yaml:"defaults,omitempty"`

	// Profiles maps profile names (e.g. "de") to wiki settings that are
	// merged over Defaults.
	Profiles map[string]Profile `yaml:"profiles,omitempty"`
}

// Profile returns the defaults merged with the named profile. An empty
// name returns the defaults alone.
func (f *File) Profile(name string) (Profile, error) {
	result := f.Defaults
	result.Headers = maps.Clone(f.Defaults.Headers)

	if name == "" {
		return result, nil
	}

	p, ok := f.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q (known: %v)", ErrUnknownProfile, name, f.ProfileNames())
	}

	if p.BaseURL != "" {
		result.BaseURL = p.BaseURL
	}
	if p.ArticlePath != "" {
		result.ArticlePath = p.ArticlePath
	}
	if p.APIPath != "" {
		result.APIPath = p.APIPath
	}
	if p.Target != "" {
		result.Target = p.Target
	}
	if p.MaxSteps != 0 {
		result.MaxSteps = p.MaxSteps
	}
	if p.ClassMatch != "" {
		result.ClassMatch = p.ClassMatch
	}
	if p.UserAgent != "" {
		result.UserAgent = p.UserAgent
	}
	if p.Proxy != "" {
		result.Proxy = p.Proxy
	}
	if len(p.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(p.Headers))
		}
		maps.Copy(result.Headers, p.Headers)
	}

	return result, nil
}

// ProfileNames returns the profile names in sorted order.
func (f *File) ProfileNames() []string {
	return slices.Sorted(maps.Keys(f.Profiles))
}
