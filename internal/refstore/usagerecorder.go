package refstore

import (
	"context"
	"sync"
	"time"

	"github.com/llmrelay/llmrelay/pkg/usage"
)

// AccountUsage accumulates an account's lifetime usage and remaining
// quota, as tracked by the in-memory usage recorder.
type AccountUsage struct {
	AccountID      string
	TotalInput     int64
	TotalOutput    int64
	TotalCost      float64
	QuotaRemaining float64
	LastUsedAt     time.Time
}

// UsageRecorder is an in-memory relay.UsageRecorder.
type UsageRecorder struct {
	mu     sync.Mutex
	usages map[string]*AccountUsage
}

// NewUsageRecorder builds an empty recorder. Seed an account's starting
// quota with SeedQuota before requests arrive, if quota enforcement
// matters for the deployment.
func NewUsageRecorder() *UsageRecorder {
	return &UsageRecorder{usages: make(map[string]*AccountUsage)}
}

// SeedQuota sets accountID's starting remaining quota.
func (r *UsageRecorder) SeedQuota(accountID string, quota float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entryFor(accountID).QuotaRemaining = quota
}

// RecordUsage accumulates token counts and updates lastUsedAt.
func (r *UsageRecorder) RecordUsage(ctx context.Context, accountID string, u usage.Usage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry := r.entryFor(accountID)
	entry.TotalInput += u.InputTokens
	entry.TotalOutput += u.OutputTokens
	entry.LastUsedAt = time.Now()
	return nil
}

// UpdateQuota debits cost from accountID's remaining quota.
func (r *UsageRecorder) UpdateQuota(ctx context.Context, accountID string, cost float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry := r.entryFor(accountID)
	entry.TotalCost += cost
	entry.QuotaRemaining -= cost
	return nil
}

// Snapshot returns a copy of accountID's recorded usage, or false if none
// has been recorded yet.
func (r *UsageRecorder) Snapshot(accountID string) (AccountUsage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.usages[accountID]
	if !ok {
		return AccountUsage{}, false
	}
	return *entry, true
}

func (r *UsageRecorder) entryFor(accountID string) *AccountUsage {
	entry, ok := r.usages[accountID]
	if !ok {
		entry = &AccountUsage{AccountID: accountID}
		r.usages[accountID] = entry
	}
	return entry
}
