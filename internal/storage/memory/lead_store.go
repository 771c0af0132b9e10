// Package memory contains an in-memory lead repository for local
// development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/logimarket/leadflow/internal/lead"
)

// LeadStore implements lead.Repository with process-local state.
type LeadStore struct {
	mu       sync.RWMutex
	byID     map[string]lead.Lead
	settings map[string]string
}

// NewLeadStore returns an empty LeadStore.
func NewLeadStore() *LeadStore {
	return &LeadStore{
		byID:     make(map[string]lead.Lead),
		settings: make(map[string]string),
	}
}

// Close is a no-op; it satisfies the same shutdown hook as the Postgres store.
func (s *LeadStore) Close() {}

// FindByEmail returns the lead with the exact address, or nil when absent.
func (s *LeadStore) FindByEmail(_ context.Context, email string) (*lead.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.byID {
		if l.Email == email {
			found := l
			return &found, nil
		}
	}
	return nil, nil
}

// Insert stores a new lead.
func (s *LeadStore) Insert(_ context.Context, l lead.Lead) error {
	if l.ID == "" {
		return fmt.Errorf("lead id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[l.ID]; exists {
		return fmt.Errorf("lead %s already exists", l.ID)
	}
	s.byID[l.ID] = l
	return nil
}

// RecordOutcome applies a send outcome to the lead's status fields.
func (s *LeadStore) RecordOutcome(_ context.Context, id string, outcome lead.SendOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("lead %s not found", id)
	}
	l.Status = outcome.Status
	l.SentSubject = outcome.Subject
	if outcome.Status == lead.StatusSent {
		sentAt := outcome.SentAt
		l.SentAt = &sentAt
	}
	s.byID[id] = l
	return nil
}

// CountSentSince counts leads sent at or after since.
func (s *LeadStore) CountSentSince(_ context.Context, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, l := range s.byID {
		if l.Status == lead.StatusSent && l.SentAt != nil && !l.SentAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// ListByStatus returns up to limit leads in creation order, oldest first.
func (s *LeadStore) ListByStatus(_ context.Context, status lead.Status, limit int) ([]lead.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var leads []lead.Lead
	for _, l := range s.byID {
		if l.Status == status {
			leads = append(leads, l)
		}
	}
	sort.Slice(leads, func(i, j int) bool {
		return leads[i].CreatedAt.Before(leads[j].CreatedAt)
	})
	if limit > 0 && len(leads) > limit {
		leads = leads[:limit]
	}
	return leads, nil
}

// GetSetting returns the operator setting for key, or "" when unset.
func (s *LeadStore) GetSetting(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings[key], nil
}

// PutSetting stores an operator setting (the admin UI owns this in
// production; exposed here for development and tests).
func (s *LeadStore) PutSetting(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = value
}
