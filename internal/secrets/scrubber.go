// Package secrets redacts credential-looking content from tool output before
// it is rendered into the LLM conversation.
package secrets

import (
	"fmt"
	"regexp"
	"sort"
)

// DefaultRedactionString replaces detected secrets.
const DefaultRedactionString = "[REDACTED]"

// Rule is one detection pattern. Keywords, when present, gate the pattern:
// a keyword must match before the pattern is tried.
type Rule struct {
	ID       string
	Pattern  string
	Keywords []string
}

// Finding describes one detected secret.
type Finding struct {
	RuleID     string
	StartIndex int
	EndIndex   int
	Line       int
}

// Result holds the outcome of one Scrub call.
type Result struct {
	Scrubbed      string
	Findings      []Finding
	TotalFindings int
}

// Config configures a Scrubber.
type Config struct {
	Enabled         bool
	RedactionString string
	Rules           []Rule
	AllowList       []string
}

// DefaultConfig enables scrubbing with the built-in rules.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		RedactionString: DefaultRedactionString,
		Rules:           DefaultRules(),
	}
}

// DefaultRules covers the common credential shapes seen in tool output.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:       "aws-access-key-id",
			Pattern:  `(?i)(A3T[A-Z0-9]|AKIA|AGPA|AIDA|AROA|ASIA)[A-Z0-9]{16}`,
			Keywords: []string{"(?i)akia", "(?i)asia", "(?i)aws"},
		},
		{
			ID:      "github-token",
			Pattern: `gh[pousr]_[A-Za-z0-9]{36,}`,
		},
		{
			ID:      "private-key",
			Pattern: `-----BEGIN (?:RSA |DSA |EC |OPENSSH |PGP )?PRIVATE KEY(?:[- ]BLOCK)?-----`,
		},
		{
			ID:       "generic-api-key",
			Pattern:  `(?i)(?:api[_-]?key|apikey)\s*[:=]\s*['"]?[A-Za-z0-9_\-]{16,64}['"]?`,
			Keywords: []string{"(?i)api"},
		},
		{
			ID:       "bearer-token",
			Pattern:  `(?i)bearer\s+[A-Za-z0-9._\-]{20,}`,
			Keywords: []string{"(?i)bearer"},
		},
		{
			ID:       "generic-secret",
			Pattern:  `(?i)(?:secret|password|passwd)\s*[:=]\s*['"]?[^\s'"]{8,}['"]?`,
			Keywords: []string{"(?i)secret", "(?i)passw"},
		},
	}
}

// Scrubber detects and redacts secrets. Immutable after construction and
// safe for concurrent use.
type Scrubber struct {
	enabled         bool
	redactionString string
	rules           []compiledRule
	allow           []*regexp.Regexp
}

type compiledRule struct {
	id       string
	pattern  *regexp.Regexp
	keywords []*regexp.Regexp
}

// New compiles the configured rules into a Scrubber. A nil config uses
// DefaultConfig.
func New(cfg *Config) (*Scrubber, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	s := &Scrubber{
		enabled:         cfg.Enabled,
		redactionString: cfg.RedactionString,
	}
	if s.redactionString == "" {
		s.redactionString = DefaultRedactionString
	}

	for _, r := range cfg.Rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid rule %q: %w", r.ID, err)
		}
		cr := compiledRule{id: r.ID, pattern: re}
		for _, kw := range r.Keywords {
			kre, err := regexp.Compile(kw)
			if err != nil {
				return nil, fmt.Errorf("invalid keyword for rule %q: %w", r.ID, err)
			}
			cr.keywords = append(cr.keywords, kre)
		}
		s.rules = append(s.rules, cr)
	}

	for _, a := range cfg.AllowList {
		re, err := regexp.Compile(a)
		if err != nil {
			return nil, fmt.Errorf("invalid allow pattern %q: %w", a, err)
		}
		s.allow = append(s.allow, re)
	}

	return s, nil
}

// Enabled reports whether scrubbing is active.
func (s *Scrubber) Enabled() bool {
	return s.enabled
}

// Scrub redacts every detected secret in content.
func (s *Scrubber) Scrub(content string) *Result {
	result := &Result{Scrubbed: content}
	if !s.enabled {
		return result
	}

	type span struct{ start, end int }
	var spans []span

	for _, rule := range s.rules {
		if len(rule.keywords) > 0 && !anyMatch(rule.keywords, content) {
			continue
		}
		for _, m := range rule.pattern.FindAllStringIndex(content, -1) {
			match := content[m[0]:m[1]]
			if s.isAllowed(match) {
				continue
			}
			result.Findings = append(result.Findings, Finding{
				RuleID:     rule.id,
				StartIndex: m[0],
				EndIndex:   m[1],
				Line:       lineOf(content, m[0]),
			})
			spans = append(spans, span{m[0], m[1]})
		}
	}

	result.TotalFindings = len(result.Findings)
	if len(spans) == 0 {
		return result
	}

	// Merge overlapping spans, then replace back-to-front so indexes stay valid.
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	merged := spans[:1]
	for _, sp := range spans[1:] {
		last := &merged[len(merged)-1]
		if sp.start <= last.end {
			if sp.end > last.end {
				last.end = sp.end
			}
		} else {
			merged = append(merged, sp)
		}
	}

	scrubbed := content
	for i := len(merged) - 1; i >= 0; i-- {
		sp := merged[i]
		scrubbed = scrubbed[:sp.start] + s.redactionString + scrubbed[sp.end:]
	}
	result.Scrubbed = scrubbed
	return result
}

func (s *Scrubber) isAllowed(match string) bool {
	for _, re := range s.allow {
		if re.MatchString(match) {
			return true
		}
	}
	return false
}

func anyMatch(res []*regexp.Regexp, content string) bool {
	for _, re := range res {
		if re.MatchString(content) {
			return true
		}
	}
	return false
}

func lineOf(content string, index int) int {
	line := 1
	for i := 0; i < index && i < len(content); i++ {
		if content[i] == '\n' {
			line++
		}
	}
	return line
}
