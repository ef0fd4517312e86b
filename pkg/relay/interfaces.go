// Package relay implements the end-to-end request lifecycle: account
// lookup, optional request/response translation, upstream dispatch, SSE
// splicing, and usage recording.
package relay

import (
	"context"

	"github.com/llmrelay/llmrelay/pkg/account"
	"github.com/llmrelay/llmrelay/pkg/usage"
)

// ApiKeyRecorder attributes a completed request's usage to the API key
// that authenticated it, independent of the account-level quota update.
type ApiKeyRecorder interface {
	RecordUsage(ctx context.Context, apiKeyID string, u usage.Usage) error
}

// Scheduler is the external component that picks accounts from a pool and
// tracks their health. Both calls are fire-and-forget: neither returns an
// error, so nothing from them can reach the client.
type Scheduler interface {
	MarkRateLimited(ctx context.Context, accountID, providerTag, sessionHash string, resetsInSeconds *int)
	MarkUnauthorized(ctx context.Context, accountID, providerTag, sessionHash, reason string)
}

// CostCalculator turns a completed request's token usage into a monetary
// cost, using whatever per-model rate table the deployment maintains.
type CostCalculator interface {
	Calculate(u usage.Usage) float64
}

// UsageRecorder persists per-account usage and, when the account carries
// a daily quota, debits it by the calculated cost.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, accountID string, u usage.Usage) error
	UpdateQuota(ctx context.Context, accountID string, cost float64) error
}

// AccountResolver is an alias for account.Resolver, named for symmetry
// with the other collaborator interfaces the relay core depends on.
type AccountResolver = account.Resolver
