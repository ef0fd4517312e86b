package refstore

import (
	"context"
	"sync"
	"time"
)

// AccountHealth is the scheduler's view of one account's health, derived
// from the rate-limit and auth-failure signals the relay core reports.
type AccountHealth struct {
	AccountID         string
	RateLimited       bool
	RateLimitedUntil  time.Time
	Unauthorized      bool
	UnauthorizedSince time.Time
	LastReason        string
}

// Scheduler is an in-memory implementation of relay.Scheduler: it records
// the health signals the relay core reports but makes no pool-selection
// decisions of its own, since account selection is out of scope here.
type Scheduler struct {
	mu     sync.Mutex
	health map[string]*AccountHealth
}

// NewScheduler builds an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{health: make(map[string]*AccountHealth)}
}

// MarkRateLimited records that accountID hit a rate limit, optionally with
// a known reset delay.
func (s *Scheduler) MarkRateLimited(ctx context.Context, accountID, providerTag, sessionHash string, resetsInSeconds *int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.healthFor(accountID)
	h.RateLimited = true
	if resetsInSeconds != nil {
		h.RateLimitedUntil = time.Now().Add(time.Duration(*resetsInSeconds) * time.Second)
	}
}

// MarkUnauthorized records that accountID's credentials were rejected
// upstream.
func (s *Scheduler) MarkUnauthorized(ctx context.Context, accountID, providerTag, sessionHash, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.healthFor(accountID)
	h.Unauthorized = true
	h.UnauthorizedSince = time.Now()
	h.LastReason = reason
}

// Health returns a copy of the recorded health for accountID, or false if
// nothing has ever been reported for it.
func (s *Scheduler) Health(accountID string) (AccountHealth, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.health[accountID]
	if !ok {
		return AccountHealth{}, false
	}
	return *h, true
}

func (s *Scheduler) healthFor(accountID string) *AccountHealth {
	h, ok := s.health[accountID]
	if !ok {
		h = &AccountHealth{AccountID: accountID}
		s.health[accountID] = h
	}
	return h
}
