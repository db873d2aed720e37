package preapproval

import (
	"context"
	"fmt"

	"github.com/vaspnet/go-offchain/core"
)

type mergeOutcome int

const (
	outcomeCreate mergeOutcome = iota
	outcomeUpdate
	outcomeNotFound
	outcomeInvalidStatus
)

// statusAbsent marks the no-existing-record column of the merge table.
const statusAbsent = core.FundPullPreApprovalStatus("")

type mergeKey struct {
	role     core.Role
	incoming core.FundPullPreApprovalStatus
	existing core.FundPullPreApprovalStatus
}

// mergeTable is the role-asymmetric transition authority for inbound
// commands: the payer may originate pending proposals and force a close from
// any non-terminal state; the payee may only answer a payer-originated
// pending proposal or force a close. An inbound closed with no local record
// is not-found for both roles; the remaining no-record cells split between
// invalid-status and not-found exactly as listed, they must not be collapsed
// into one rule.
var mergeTable = map[mergeKey]mergeOutcome{
	{core.RolePayer, core.FundPullPreApprovalStatusPending, statusAbsent}:                             outcomeCreate,
	{core.RolePayer, core.FundPullPreApprovalStatusPending, core.FundPullPreApprovalStatusPending}:   outcomeUpdate,
	{core.RolePayer, core.FundPullPreApprovalStatusPending, core.FundPullPreApprovalStatusValid}:     outcomeInvalidStatus,
	{core.RolePayer, core.FundPullPreApprovalStatusPending, core.FundPullPreApprovalStatusRejected}:  outcomeInvalidStatus,
	{core.RolePayer, core.FundPullPreApprovalStatusPending, core.FundPullPreApprovalStatusClosed}:    outcomeInvalidStatus,
	{core.RolePayer, core.FundPullPreApprovalStatusValid, statusAbsent}:                              outcomeInvalidStatus,
	{core.RolePayer, core.FundPullPreApprovalStatusValid, core.FundPullPreApprovalStatusPending}:     outcomeInvalidStatus,
	{core.RolePayer, core.FundPullPreApprovalStatusValid, core.FundPullPreApprovalStatusValid}:       outcomeInvalidStatus,
	{core.RolePayer, core.FundPullPreApprovalStatusValid, core.FundPullPreApprovalStatusRejected}:    outcomeInvalidStatus,
	{core.RolePayer, core.FundPullPreApprovalStatusValid, core.FundPullPreApprovalStatusClosed}:      outcomeInvalidStatus,
	{core.RolePayer, core.FundPullPreApprovalStatusRejected, statusAbsent}:                           outcomeNotFound,
	{core.RolePayer, core.FundPullPreApprovalStatusRejected, core.FundPullPreApprovalStatusPending}:  outcomeUpdate,
	{core.RolePayer, core.FundPullPreApprovalStatusRejected, core.FundPullPreApprovalStatusValid}:    outcomeInvalidStatus,
	{core.RolePayer, core.FundPullPreApprovalStatusRejected, core.FundPullPreApprovalStatusRejected}: outcomeInvalidStatus,
	{core.RolePayer, core.FundPullPreApprovalStatusRejected, core.FundPullPreApprovalStatusClosed}:   outcomeInvalidStatus,
	{core.RolePayer, core.FundPullPreApprovalStatusClosed, statusAbsent}:                             outcomeNotFound,
	{core.RolePayer, core.FundPullPreApprovalStatusClosed, core.FundPullPreApprovalStatusPending}:    outcomeUpdate,
	{core.RolePayer, core.FundPullPreApprovalStatusClosed, core.FundPullPreApprovalStatusValid}:      outcomeUpdate,
	{core.RolePayer, core.FundPullPreApprovalStatusClosed, core.FundPullPreApprovalStatusRejected}:   outcomeInvalidStatus,
	{core.RolePayer, core.FundPullPreApprovalStatusClosed, core.FundPullPreApprovalStatusClosed}:     outcomeInvalidStatus,

	{core.RolePayee, core.FundPullPreApprovalStatusPending, statusAbsent}:                             outcomeInvalidStatus,
	{core.RolePayee, core.FundPullPreApprovalStatusPending, core.FundPullPreApprovalStatusPending}:    outcomeInvalidStatus,
	{core.RolePayee, core.FundPullPreApprovalStatusPending, core.FundPullPreApprovalStatusValid}:      outcomeInvalidStatus,
	{core.RolePayee, core.FundPullPreApprovalStatusPending, core.FundPullPreApprovalStatusRejected}:   outcomeInvalidStatus,
	{core.RolePayee, core.FundPullPreApprovalStatusPending, core.FundPullPreApprovalStatusClosed}:     outcomeInvalidStatus,
	{core.RolePayee, core.FundPullPreApprovalStatusValid, statusAbsent}:                               outcomeNotFound,
	{core.RolePayee, core.FundPullPreApprovalStatusValid, core.FundPullPreApprovalStatusPending}:      outcomeUpdate,
	{core.RolePayee, core.FundPullPreApprovalStatusValid, core.FundPullPreApprovalStatusValid}:        outcomeInvalidStatus,
	{core.RolePayee, core.FundPullPreApprovalStatusValid, core.FundPullPreApprovalStatusRejected}:     outcomeInvalidStatus,
	{core.RolePayee, core.FundPullPreApprovalStatusValid, core.FundPullPreApprovalStatusClosed}:       outcomeInvalidStatus,
	{core.RolePayee, core.FundPullPreApprovalStatusRejected, statusAbsent}:                            outcomeNotFound,
	{core.RolePayee, core.FundPullPreApprovalStatusRejected, core.FundPullPreApprovalStatusPending}:   outcomeUpdate,
	{core.RolePayee, core.FundPullPreApprovalStatusRejected, core.FundPullPreApprovalStatusValid}:     outcomeInvalidStatus,
	{core.RolePayee, core.FundPullPreApprovalStatusRejected, core.FundPullPreApprovalStatusRejected}:  outcomeInvalidStatus,
	{core.RolePayee, core.FundPullPreApprovalStatusRejected, core.FundPullPreApprovalStatusClosed}:    outcomeInvalidStatus,
	{core.RolePayee, core.FundPullPreApprovalStatusClosed, statusAbsent}:                              outcomeNotFound,
	{core.RolePayee, core.FundPullPreApprovalStatusClosed, core.FundPullPreApprovalStatusPending}:     outcomeUpdate,
	{core.RolePayee, core.FundPullPreApprovalStatusClosed, core.FundPullPreApprovalStatusValid}:       outcomeUpdate,
	{core.RolePayee, core.FundPullPreApprovalStatusClosed, core.FundPullPreApprovalStatusRejected}:    outcomeInvalidStatus,
	{core.RolePayee, core.FundPullPreApprovalStatusClosed, core.FundPullPreApprovalStatusClosed}:      outcomeInvalidStatus,
}

// ApplyInbound merges a verified inbound command into storage under the
// transition authority of mergeTable. The read, the table decision, and the
// write run inside the store's per-id serializable transaction; records
// written here are marked sent because the counterparty originated the state.
func (s *Service) ApplyInbound(ctx context.Context, cmd core.FundsPullPreApprovalCommand) (core.PreApprovalRecord, error) {
	if s == nil {
		return core.PreApprovalRecord{}, fmt.Errorf("preapproval: service is nil")
	}
	incoming := cmd.FundPullPreApproval
	if err := incoming.Validate(); err != nil {
		return core.PreApprovalRecord{}, err
	}
	role := cmd.Role()
	id := incoming.FundsPullPreApprovalID

	record, err := s.store.Mutate(ctx, id, func(existing *core.PreApprovalRecord) (*core.PreApprovalRecord, error) {
		existingStatus := statusAbsent
		if existing != nil {
			existingStatus = existing.Object.Status
		}
		outcome, known := mergeTable[mergeKey{role: role, incoming: incoming.Status, existing: existingStatus}]
		if !known {
			return nil, mergeInvalidStatusError(role, incoming.Status, existingStatus)
		}
		now := s.now()
		switch outcome {
		case outcomeCreate:
			return &core.PreApprovalRecord{
				Object:       incoming,
				Role:         role,
				OffchainSent: true,
				CreatedAt:    now,
				UpdatedAt:    now,
			}, nil
		case outcomeUpdate:
			updated := *existing
			updated.Object.Status = incoming.Status
			if role == core.RolePayer && incoming.Status == core.FundPullPreApprovalStatusPending {
				// A re-proposed pending carries revised terms.
				updated.Object.Scope = incoming.Scope
				updated.Object.Description = incoming.Description
			}
			updated.OffchainSent = true
			updated.UpdatedAt = now
			return &updated, nil
		case outcomeNotFound:
			return nil, mergeNotFoundError(id)
		default:
			return nil, mergeInvalidStatusError(role, incoming.Status, existingStatus)
		}
	})
	if err != nil {
		return core.PreApprovalRecord{}, err
	}
	s.logger.Info("inbound funds pull pre-approval merged",
		"id", id, "role", string(role), "status", string(record.Object.Status))
	return record, nil
}

// mergeNotFoundError carries both the lifecycle sentinel and a wire error
// code, so transport can answer the counterparty without re-classifying.
func mergeNotFoundError(id string) error {
	return core.CommandWrap(core.ErrPreApprovalNotFound, core.ErrorCodeInvalidFieldValue,
		fmt.Sprintf("no funds pull pre-approval with id %q", id),
		"command.fund_pull_pre_approval.funds_pull_pre_approval_id")
}

func mergeInvalidStatusError(role core.Role, incoming, existing core.FundPullPreApprovalStatus) error {
	existingLabel := string(existing)
	if existing == statusAbsent {
		existingLabel = "absent"
	}
	return core.CommandWrap(core.ErrInvalidPreApprovalStatus, core.ErrorCodeInvalidFieldValue,
		fmt.Sprintf("inbound status %q is not allowed for role %s with existing record %s",
			incoming, role, existingLabel),
		"command.fund_pull_pre_approval.status")
}
