// Package sqlstore persists funds pull pre-approval records with bun,
// flattening the scoped limits into nullable columns so list queries filter
// without JSON extraction.
package sqlstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/vaspnet/go-offchain/core"
)

type preApprovalRecord struct {
	bun.BaseModel `bun:"table:offchain_preapprovals,alias:pa"`

	ID                     string    `bun:"id,pk"`
	Address                string    `bun:"address,notnull"`
	BillerAddress          string    `bun:"biller_address,notnull"`
	Role                   string    `bun:"role,notnull"`
	Status                 string    `bun:"status,notnull"`
	ScopeType              string    `bun:"scope_type,notnull"`
	ExpirationTimestamp    int64     `bun:"expiration_timestamp,notnull"`
	MaxCumulativeUnit      *string   `bun:"max_cumulative_unit"`
	MaxCumulativeUnitValue *uint64   `bun:"max_cumulative_unit_value"`
	MaxCumulativeAmount    *uint64   `bun:"max_cumulative_amount"`
	MaxCumulativeCurrency  *string   `bun:"max_cumulative_currency"`
	MaxTransactionAmount   *uint64   `bun:"max_transaction_amount"`
	MaxTransactionCurrency *string   `bun:"max_transaction_currency"`
	Description            string    `bun:"description"`
	OffchainSent           bool      `bun:"offchain_sent,notnull"`
	CreatedAt              time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt              time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func newPreApprovalRecord(domain core.PreApprovalRecord) *preApprovalRecord {
	record := &preApprovalRecord{
		ID:                  domain.Object.FundsPullPreApprovalID,
		Address:             domain.Object.Address,
		BillerAddress:       domain.Object.BillerAddress,
		Role:                string(domain.Role),
		Status:              string(domain.Object.Status),
		ScopeType:           domain.Object.Scope.Type,
		ExpirationTimestamp: domain.Object.Scope.ExpirationTimestamp,
		Description:         domain.Object.Description,
		OffchainSent:        domain.OffchainSent,
		CreatedAt:           domain.CreatedAt,
		UpdatedAt:           domain.UpdatedAt,
	}
	if cumulative := domain.Object.Scope.MaxCumulativeAmount; cumulative != nil {
		unit := cumulative.Unit
		value := cumulative.Value
		amount := cumulative.MaxAmount.Amount
		currency := cumulative.MaxAmount.Currency
		record.MaxCumulativeUnit = &unit
		record.MaxCumulativeUnitValue = &value
		record.MaxCumulativeAmount = &amount
		record.MaxCumulativeCurrency = &currency
	}
	if transaction := domain.Object.Scope.MaxTransactionAmount; transaction != nil {
		amount := transaction.Amount
		currency := transaction.Currency
		record.MaxTransactionAmount = &amount
		record.MaxTransactionCurrency = &currency
	}
	return record
}

func (r *preApprovalRecord) toDomain() core.PreApprovalRecord {
	if r == nil {
		return core.PreApprovalRecord{}
	}
	object := core.FundPullPreApprovalObject{
		FundsPullPreApprovalID: r.ID,
		Address:                r.Address,
		BillerAddress:          r.BillerAddress,
		Scope: core.FundPullPreApprovalScope{
			Type:                r.ScopeType,
			ExpirationTimestamp: r.ExpirationTimestamp,
		},
		Status:      core.FundPullPreApprovalStatus(r.Status),
		Description: r.Description,
	}
	if r.MaxCumulativeUnit != nil && r.MaxCumulativeUnitValue != nil {
		cumulative := &core.ScopedCumulativeAmount{
			Unit:  *r.MaxCumulativeUnit,
			Value: *r.MaxCumulativeUnitValue,
		}
		if r.MaxCumulativeAmount != nil {
			cumulative.MaxAmount.Amount = *r.MaxCumulativeAmount
		}
		if r.MaxCumulativeCurrency != nil {
			cumulative.MaxAmount.Currency = *r.MaxCumulativeCurrency
		}
		object.Scope.MaxCumulativeAmount = cumulative
	}
	if r.MaxTransactionAmount != nil {
		transaction := &core.CurrencyAmount{Amount: *r.MaxTransactionAmount}
		if r.MaxTransactionCurrency != nil {
			transaction.Currency = *r.MaxTransactionCurrency
		}
		object.Scope.MaxTransactionAmount = transaction
	}
	return core.PreApprovalRecord{
		Object:       object,
		Role:         core.Role(r.Role),
		OffchainSent: r.OffchainSent,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
