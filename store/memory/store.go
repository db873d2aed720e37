// Package memory provides an in-process core.PreApprovalStore. Mutations for
// one id serialize on the store mutex, giving the same read-decide-write
// atomicity the SQL store gets from serializable transactions.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vaspnet/go-offchain/core"
)

type PreApprovalStore struct {
	mu      sync.Mutex
	records map[string]core.PreApprovalRecord
	Now     func() time.Time
}

var _ core.PreApprovalStore = (*PreApprovalStore)(nil)

func NewPreApprovalStore() *PreApprovalStore {
	return &PreApprovalStore{
		records: map[string]core.PreApprovalRecord{},
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (s *PreApprovalStore) Create(_ context.Context, record core.PreApprovalRecord) error {
	if s == nil {
		return fmt.Errorf("memory: pre-approval store is nil")
	}
	id := strings.TrimSpace(record.ID())
	if id == "" {
		return fmt.Errorf("memory: pre-approval id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[id]; exists {
		return fmt.Errorf("memory: %w: %s", core.ErrPreApprovalExists, id)
	}
	s.records[id] = record
	return nil
}

func (s *PreApprovalStore) Get(_ context.Context, id string) (core.PreApprovalRecord, error) {
	if s == nil {
		return core.PreApprovalRecord{}, fmt.Errorf("memory: pre-approval store is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	record, exists := s.records[strings.TrimSpace(id)]
	if !exists {
		return core.PreApprovalRecord{}, fmt.Errorf("memory: %w: %s", core.ErrPreApprovalNotFound, id)
	}
	return record, nil
}

func (s *PreApprovalStore) Update(_ context.Context, record core.PreApprovalRecord) error {
	if s == nil {
		return fmt.Errorf("memory: pre-approval store is nil")
	}
	id := strings.TrimSpace(record.ID())
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[id]; !exists {
		return fmt.Errorf("memory: %w: %s", core.ErrPreApprovalNotFound, id)
	}
	s.records[id] = record
	return nil
}

func (s *PreApprovalStore) Mutate(_ context.Context, id string, fn core.PreApprovalUpdateFn) (core.PreApprovalRecord, error) {
	if s == nil {
		return core.PreApprovalRecord{}, fmt.Errorf("memory: pre-approval store is nil")
	}
	if fn == nil {
		return core.PreApprovalRecord{}, fmt.Errorf("memory: update function is required")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return core.PreApprovalRecord{}, fmt.Errorf("memory: pre-approval id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var existing *core.PreApprovalRecord
	if record, exists := s.records[id]; exists {
		copied := record
		existing = &copied
	}
	updated, err := fn(existing)
	if err != nil {
		return core.PreApprovalRecord{}, err
	}
	if updated == nil {
		return core.PreApprovalRecord{}, fmt.Errorf("memory: update function returned no record for %q", id)
	}
	s.records[id] = *updated
	return *updated, nil
}

func (s *PreApprovalStore) ListByAddress(_ context.Context, address string) ([]core.PreApprovalRecord, error) {
	return s.list(address, "")
}

func (s *PreApprovalStore) ListByStatus(_ context.Context, address string, status core.FundPullPreApprovalStatus) ([]core.PreApprovalRecord, error) {
	return s.list(address, status)
}

func (s *PreApprovalStore) list(address string, status core.FundPullPreApprovalStatus) ([]core.PreApprovalRecord, error) {
	if s == nil {
		return nil, fmt.Errorf("memory: pre-approval store is nil")
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("memory: address is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.PreApprovalRecord, 0)
	for _, record := range s.records {
		if record.MyAddress() != address {
			continue
		}
		if status != "" && record.Object.Status != status {
			continue
		}
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *PreApprovalStore) ListUnsent(_ context.Context) ([]core.PreApprovalRecord, error) {
	if s == nil {
		return nil, fmt.Errorf("memory: pre-approval store is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.PreApprovalRecord, 0)
	for _, record := range s.records {
		if !record.OffchainSent {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *PreApprovalStore) MarkSent(_ context.Context, id string) error {
	if s == nil {
		return fmt.Errorf("memory: pre-approval store is nil")
	}
	id = strings.TrimSpace(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	record, exists := s.records[id]
	if !exists {
		return fmt.Errorf("memory: %w: %s", core.ErrPreApprovalNotFound, id)
	}
	record.OffchainSent = true
	record.UpdatedAt = s.now()
	s.records[id] = record
	return nil
}

func (s *PreApprovalStore) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
