// Package router resolves a tool name to a backend name using an ordered
// list of glob routing rules, first match wins.
package router

import "github.com/giantswarm/mcp-gateway/internal/globmatch"

// Rule is one routing rule: tools whose name matches Pattern are dispatched
// to the backend named Server.
type Rule struct {
	Pattern string
	Server  string
}

// compiledRule pairs a rule with its precompiled matcher so Resolve never
// recompiles a pattern per lookup.
type compiledRule struct {
	rule    Rule
	matcher *globmatch.Matcher
}

// Router resolves tool names to backend names. It is immutable after
// construction and safe for concurrent use by multiple callers.
type Router struct {
	rules []compiledRule
}

// New compiles an ordered list of rules into a Router. Lower-indexed rules
// take precedence; an empty list always resolves to "", false.
func New(rules []Rule) *Router {
	compiled := make([]compiledRule, len(rules))
	for i, r := range rules {
		compiled[i] = compiledRule{rule: r, matcher: globmatch.Compile(r.Pattern)}
	}
	return &Router{rules: compiled}
}

// Resolve returns the backend name of the first rule whose pattern matches
// toolName in its entirety, or ("", false) if no rule matches.
func (r *Router) Resolve(toolName string) (string, bool) {
	for _, cr := range r.rules {
		if cr.matcher.Match(toolName) {
			return cr.rule.Server, true
		}
	}
	return "", false
}

// Rules returns a copy of the router's configured rules, in evaluation
// order, for introspection (e.g. the CLI status command).
func (r *Router) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	for i, cr := range r.rules {
		out[i] = cr.rule
	}
	return out
}
