package crawler

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// MatchKind selects how a Rule compares its pattern against a path.
type MatchKind int

const (
	// MatchPrefix matches paths starting with the pattern (case-sensitive).
	MatchPrefix MatchKind = iota
	// MatchContains matches paths containing the pattern (case-sensitive).
	MatchContains
	// MatchContainsFold matches paths containing the pattern, ignoring case.
	MatchContainsFold
)

// Rule is one entry of the skip table. Paths are compared without their
// leading and trailing slashes.
type Rule struct {
	Pattern string
	Kind    MatchKind
	Reason  string
}

// Match reports whether path is matched by the rule.
func (r Rule) Match(path string) bool {
	switch r.Kind {
	case MatchPrefix:
		return strings.HasPrefix(path, r.Pattern)
	case MatchContains:
		return strings.Contains(path, r.Pattern)
	case MatchContainsFold:
		return strings.Contains(strings.ToLower(path), strings.ToLower(r.Pattern))
	default:
		return false
	}
}

// DefaultRules drop wiki system, navigation, login, demo, help, feed and
// forum pages. Order matters only for the reported reason.
var DefaultRules = []Rule{
	{Pattern: "system:", Kind: MatchPrefix, Reason: "system page"},
	{Pattern: "nav:", Kind: MatchPrefix, Reason: "navigation page"},
	{Pattern: "login", Kind: MatchContainsFold, Reason: "login page"},
	{Pattern: "demo:", Kind: MatchPrefix, Reason: "demo page"},
	{Pattern: "help:_", Kind: MatchPrefix, Reason: "help page"},
	{Pattern: ".xml", Kind: MatchContains, Reason: "xml document"},
	{Pattern: "feed", Kind: MatchContainsFold, Reason: "feed"},
	{Pattern: "forum-threads", Kind: MatchContainsFold, Reason: "forum listing"},
	{Pattern: "forum", Kind: MatchPrefix, Reason: "forum page"},
	{Pattern: "forum-t-", Kind: MatchContainsFold, Reason: "forum thread"},
}

// patternSet holds compiled user glob patterns.
type patternSet struct {
	ignore []glob.Glob
	follow []glob.Glob
}

// FilterOption configures a Filter.
type FilterOption func(*filterConfig)

type filterConfig struct {
	rules    []Rule
	patterns map[string][2][]string
}

// WithRules replaces the built-in skip table.
func WithRules(rules []Rule) FilterOption {
	return func(c *filterConfig) {
		c.rules = rules
	}
}

// WithPatterns adds glob patterns for host. An empty host sets the
// patterns used for hosts without their own entry.
//
// Patterns are matched against the URL path including the leading slash,
// with '/' as the separator: "/forum/**" matches every page under /forum.
// When follow patterns are set, only matching paths are crawled.
func WithPatterns(host string, ignore, follow []string) FilterOption {
	return func(c *filterConfig) {
		c.patterns[strings.ToLower(host)] = [2][]string{ignore, follow}
	}
}

// Filter decides whether a URL key should be crawled.
type Filter struct {
	rules []Rule
	sets  map[string]patternSet
}

// NewFilter builds a Filter from DefaultRules plus opts.
func NewFilter(opts ...FilterOption) (*Filter, error) {
	cfg := &filterConfig{
		rules:    DefaultRules,
		patterns: make(map[string][2][]string),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	f := &Filter{
		rules: append([]Rule(nil), cfg.rules...),
		sets:  make(map[string]patternSet, len(cfg.patterns)),
	}

	hosts := make([]string, 0, len(cfg.patterns))
	for host := range cfg.patterns {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)

	for _, host := range hosts {
		p := cfg.patterns[host]
		ignore, err := compileGlobs(p[0])
		if err != nil {
			return nil, err
		}
		follow, err := compileGlobs(p[1])
		if err != nil {
			return nil, err
		}
		f.sets[host] = patternSet{ignore: ignore, follow: follow}
	}
	return f, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// ShouldSkip reports whether urlKey must not be crawled.
func (f *Filter) ShouldSkip(urlKey string) bool {
	skip, _ := f.Check(urlKey)
	return skip
}

// Check is ShouldSkip with the reason for skipping.
func (f *Filter) Check(urlKey string) (bool, string) {
	u, err := url.Parse(urlKey)
	if err != nil {
		return true, "unparseable URL"
	}

	trimmed := strings.Trim(u.Path, "/")
	for _, rule := range f.rules {
		if rule.Match(trimmed) {
			return true, rule.Reason
		}
	}

	set, ok := f.sets[strings.ToLower(u.Host)]
	if !ok {
		set = f.sets[""]
	}

	full := "/" + trimmed
	for _, g := range set.ignore {
		if g.Match(full) {
			return true, "ignore pattern"
		}
	}
	if len(set.follow) > 0 {
		for _, g := range set.follow {
			if g.Match(full) {
				return false, ""
			}
		}
		return true, "not matched by follow patterns"
	}
	return false, ""
}

// Scope is the set of hosts a crawl may visit.
type Scope struct {
	hosts map[string]struct{}
}

// NewScope returns the scope spanned by the hosts of seedKeys.
func NewScope(seedKeys []string) *Scope {
	s := &Scope{hosts: make(map[string]struct{}, len(seedKeys))}
	for _, key := range seedKeys {
		if host := hostOf(key); host != "" {
			s.hosts[host] = struct{}{}
		}
	}
	return s
}

// Contains reports whether urlKey is on one of the seed hosts.
// The comparison uses the host with its port.
func (s *Scope) Contains(urlKey string) bool {
	host := hostOf(urlKey)
	if host == "" {
		return false
	}
	_, ok := s.hosts[host]
	return ok
}

// Hosts returns the hosts of the scope in sorted order.
func (s *Scope) Hosts() []string {
	hosts := make([]string, 0, len(s.hosts))
	for h := range s.hosts {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}
