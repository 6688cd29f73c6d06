// Package globmatch compiles simple shell-style glob patterns ("*" and "?")
// into anchored matchers, as used by the router (exact backend dispatch) and
// the filter middleware (allow/deny lists).
package globmatch

import (
	"regexp"
	"strings"
)

// Matcher is a compiled glob pattern. The zero value is not usable; build one
// with Compile.
type Matcher struct {
	pattern string
	re      *regexp.Regexp
}

// Compile translates a pattern into a whole-string anchored matcher. Two
// wildcards are supported: "*" matches any run of characters (including
// none) and "?" matches exactly one character. All other characters match
// literally; regex metacharacters in the pattern are escaped so they never
// leak through as unintended regex syntax.
func Compile(pattern string) *Matcher {
	var b strings.Builder
	b.WriteByte('^')
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteByte('.')
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')
	return &Matcher{pattern: pattern, re: regexp.MustCompile(b.String())}
}

// Match reports whether name matches the whole compiled pattern.
func (m *Matcher) Match(name string) bool {
	return m.re.MatchString(name)
}

// String returns the original, uncompiled pattern.
func (m *Matcher) String() string {
	return m.pattern
}

// MatchAny compiles and evaluates each pattern against name, returning true
// on the first match. It is a convenience for allow/deny lists where
// patterns are evaluated once per call rather than precompiled; callers on
// a hot path should precompile with Compile instead.
func MatchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if Compile(p).Match(name) {
			return true
		}
	}
	return false
}
