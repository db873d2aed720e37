// Package preapproval implements the funds-pull-pre-approval lifecycle: the
// local actions an account holder may take on a record, and the
// role-asymmetric merge applied to inbound counterparty commands. Every
// mutation runs its read-decide-write cycle inside the store's per-id
// serializable transaction, so a local action and a concurrent inbound merge
// for the same id cannot overwrite each other.
package preapproval

import (
	"context"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/vaspnet/go-offchain/core"
)

type Config struct {
	Store  core.PreApprovalStore
	Logger glog.Logger
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

// Service applies local lifecycle actions to stored pre-approval records.
// Local mutations clear the sent flag so the sync worker delivers the new
// state to the counterparty.
type Service struct {
	store  core.PreApprovalStore
	logger glog.Logger
	now    func() time.Time
}

func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("preapproval: store is required")
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	_, logger := glog.Resolve("offchain.preapproval", nil, cfg.Logger)
	return &Service{
		store:  cfg.Store,
		logger: logger,
		now:    now,
	}, nil
}

// CreateAndApprove inserts a payer-originated record directly in status
// valid, skipping the pending proposal step. The id must be unused and the
// scope expiration strictly in the future.
func (s *Service) CreateAndApprove(ctx context.Context, object core.FundPullPreApprovalObject) (core.PreApprovalRecord, error) {
	if s == nil {
		return core.PreApprovalRecord{}, fmt.Errorf("preapproval: service is nil")
	}
	if err := object.Validate(); err != nil {
		return core.PreApprovalRecord{}, err
	}
	now := s.now()
	if object.Scope.ExpirationTimestamp <= now.Unix() {
		return core.PreApprovalRecord{}, expirationError()
	}
	object.Status = core.FundPullPreApprovalStatusValid
	record, err := s.store.Mutate(ctx, object.FundsPullPreApprovalID, func(existing *core.PreApprovalRecord) (*core.PreApprovalRecord, error) {
		if existing != nil {
			return nil, alreadyExistsError(object.FundsPullPreApprovalID)
		}
		return &core.PreApprovalRecord{
			Object:       object,
			Role:         core.RolePayer,
			OffchainSent: false,
			CreatedAt:    now,
			UpdatedAt:    now,
		}, nil
	})
	if err != nil {
		return core.PreApprovalRecord{}, err
	}
	s.logger.Info("funds pull pre-approval created and approved",
		"id", record.ID(), "biller", record.Object.BillerAddress)
	return record, nil
}

// Approve moves a pending record to valid.
func (s *Service) Approve(ctx context.Context, id string) (core.PreApprovalRecord, error) {
	return s.transition(ctx, id, "approve", core.FundPullPreApprovalStatusValid,
		core.FundPullPreApprovalStatusPending)
}

// Reject moves a pending record to rejected.
func (s *Service) Reject(ctx context.Context, id string) (core.PreApprovalRecord, error) {
	return s.transition(ctx, id, "reject", core.FundPullPreApprovalStatusRejected,
		core.FundPullPreApprovalStatusPending)
}

// Close moves a pending or valid record to closed.
func (s *Service) Close(ctx context.Context, id string) (core.PreApprovalRecord, error) {
	return s.transition(ctx, id, "close", core.FundPullPreApprovalStatusClosed,
		core.FundPullPreApprovalStatusPending, core.FundPullPreApprovalStatusValid)
}

func (s *Service) transition(ctx context.Context, id string, action string, target core.FundPullPreApprovalStatus, allowedFrom ...core.FundPullPreApprovalStatus) (core.PreApprovalRecord, error) {
	if s == nil {
		return core.PreApprovalRecord{}, fmt.Errorf("preapproval: service is nil")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return core.PreApprovalRecord{}, fmt.Errorf("preapproval: id is required")
	}
	record, err := s.store.Mutate(ctx, id, func(existing *core.PreApprovalRecord) (*core.PreApprovalRecord, error) {
		if existing == nil {
			return nil, notFoundError(id)
		}
		if !statusIn(existing.Object.Status, allowedFrom) {
			return nil, invalidStatusError(action, existing.Object.Status)
		}
		updated := *existing
		updated.Object.Status = target
		updated.OffchainSent = false
		updated.UpdatedAt = s.now()
		return &updated, nil
	})
	if err != nil {
		return core.PreApprovalRecord{}, err
	}
	s.logger.Info("funds pull pre-approval transitioned",
		"id", id, "action", action, "status", string(target))
	return record, nil
}

// Get returns the record for id, translating absence into the lifecycle
// not-found error.
func (s *Service) Get(ctx context.Context, id string) (core.PreApprovalRecord, error) {
	if s == nil {
		return core.PreApprovalRecord{}, fmt.Errorf("preapproval: service is nil")
	}
	record, err := s.store.Get(ctx, id)
	if err != nil {
		return core.PreApprovalRecord{}, err
	}
	return record, nil
}

// ListByAddress returns every record whose local actor address matches.
func (s *Service) ListByAddress(ctx context.Context, address string) ([]core.PreApprovalRecord, error) {
	if s == nil {
		return nil, fmt.Errorf("preapproval: service is nil")
	}
	return s.store.ListByAddress(ctx, address)
}

// ListByStatus narrows ListByAddress to one lifecycle status.
func (s *Service) ListByStatus(ctx context.Context, address string, status core.FundPullPreApprovalStatus) ([]core.PreApprovalRecord, error) {
	if s == nil {
		return nil, fmt.Errorf("preapproval: service is nil")
	}
	if !status.Valid() {
		return nil, fmt.Errorf("preapproval: unknown status %q", status)
	}
	return s.store.ListByStatus(ctx, address, status)
}

func statusIn(status core.FundPullPreApprovalStatus, allowed []core.FundPullPreApprovalStatus) bool {
	for _, candidate := range allowed {
		if status == candidate {
			return true
		}
	}
	return false
}
