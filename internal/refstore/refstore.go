// Package refstore provides minimal in-process implementations of the
// relay's external collaborator interfaces (account store, api-key store,
// scheduler, cost table, usage recorder), following the same
// mutex-guarded-map idiom as the teacher's registry singleton. These are
// reference implementations so cmd/relay can boot standalone; a
// production deployment injects real ones behind the same interfaces.
package refstore

import (
	"context"
	"sync"

	"github.com/llmrelay/llmrelay/pkg/account"
	"github.com/llmrelay/llmrelay/pkg/usage"
)

// AccountStore is an in-memory account.Resolver backed by a map keyed on
// account id.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[string]*account.Account
}

// NewAccountStore builds an empty store. Use Put to seed accounts.
func NewAccountStore() *AccountStore {
	return &AccountStore{accounts: make(map[string]*account.Account)}
}

// Put registers or replaces an account.
func (s *AccountStore) Put(acct *account.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[acct.ID] = acct
}

// Resolve implements account.Resolver.
func (s *AccountStore) Resolve(ctx context.Context, accountID string) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[accountID]
	if !ok {
		return nil, nil
	}
	return acct, nil
}

// ApiKeyRecord tracks usage attributed to a single API key.
type ApiKeyRecord struct {
	ID           string
	TotalTokens  int64
	RequestCount int64
}

// ApiKeyStore is an in-memory ApiKeyRecorder.
type ApiKeyStore struct {
	mu      sync.Mutex
	records map[string]*ApiKeyRecord
}

// NewApiKeyStore builds an empty store.
func NewApiKeyStore() *ApiKeyStore {
	return &ApiKeyStore{records: make(map[string]*ApiKeyRecord)}
}

// RecordUsage accumulates token counts and request counts for apiKeyID.
func (s *ApiKeyStore) RecordUsage(ctx context.Context, apiKeyID string, u usage.Usage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[apiKeyID]
	if !ok {
		rec = &ApiKeyRecord{ID: apiKeyID}
		s.records[apiKeyID] = rec
	}
	rec.TotalTokens += u.Total
	rec.RequestCount++
	return nil
}

// Snapshot returns a copy of the current record for apiKeyID, or false if
// none exists.
func (s *ApiKeyStore) Snapshot(apiKeyID string) (ApiKeyRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[apiKeyID]
	if !ok {
		return ApiKeyRecord{}, false
	}
	return *rec, true
}
