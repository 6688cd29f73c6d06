// Package interceptor provides two alternative ways to turn raw MCP traffic
// into analytics.ToolCallEvent records: a transport-level interceptor
// that pairs JSON-RPC requests and responses by id, and a handler-level
// wrapper that instruments a single tool's callback directly.
package interceptor

import (
	"math/rand"
	"sync"
)

// SampleStrategy selects how sampling decisions are made.
type SampleStrategy int

const (
	// PerCall samples each request independently.
	PerCall SampleStrategy = iota
	// PerSession samples the first request on a session key and reuses
	// that decision for the session's lifetime.
	PerSession
)

// unknownSessionKey is used when a request carries no session identity.
const unknownSessionKey = "unknown"

// sampler implements both sampling strategies behind one lock-guarded cache.
type sampler struct {
	strategy   SampleStrategy
	sampleRate float64

	mu    sync.Mutex
	cache map[string]bool
}

func newSampler(strategy SampleStrategy, sampleRate float64) *sampler {
	return &sampler{strategy: strategy, sampleRate: sampleRate, cache: make(map[string]bool)}
}

// decide returns whether the call identified by sessionKey should be sampled.
func (s *sampler) decide(sessionKey string) bool {
	if sessionKey == "" {
		sessionKey = unknownSessionKey
	}
	if s.strategy == PerCall {
		return rand.Float64() < s.sampleRate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if decision, ok := s.cache[sessionKey]; ok {
		return decision
	}
	decision := rand.Float64() < s.sampleRate
	s.cache[sessionKey] = decision
	return decision
}

// reset clears the per-session sampling cache.
func (s *sampler) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]bool)
}
