package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/vaspnet/go-offchain/core"
)

// PreApprovalStore implements core.PreApprovalStore on bun. Mutate runs its
// read-decide-write cycle under a serializable transaction so a concurrent
// local action and inbound merge for the same id serialize instead of
// clobbering each other.
type PreApprovalStore struct {
	db   *bun.DB
	repo repository.Repository[*preApprovalRecord]
}

var _ core.PreApprovalStore = (*PreApprovalStore)(nil)

// Create inserts through bun directly: pre-approval ids are opaque protocol
// strings, and the repository's uuid-based id generation must never rewrite
// them.
func (s *PreApprovalStore) Create(ctx context.Context, record core.PreApprovalRecord) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: pre-approval store is not configured")
	}
	if strings.TrimSpace(record.ID()) == "" {
		return fmt.Errorf("sqlstore: pre-approval id is required")
	}
	if _, err := s.db.NewInsert().Model(newPreApprovalRecord(record)).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("sqlstore: %w: %s", core.ErrPreApprovalExists, record.ID())
		}
		return err
	}
	return nil
}

func (s *PreApprovalStore) Get(ctx context.Context, id string) (core.PreApprovalRecord, error) {
	if s == nil || s.db == nil {
		return core.PreApprovalRecord{}, fmt.Errorf("sqlstore: pre-approval store is not configured")
	}
	record, err := findPreApproval(ctx, s.db, strings.TrimSpace(id))
	if err != nil {
		return core.PreApprovalRecord{}, err
	}
	if record == nil {
		return core.PreApprovalRecord{}, fmt.Errorf("sqlstore: %w: %s", core.ErrPreApprovalNotFound, id)
	}
	return record.toDomain(), nil
}

func (s *PreApprovalStore) Update(ctx context.Context, record core.PreApprovalRecord) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: pre-approval store is not configured")
	}
	id := strings.TrimSpace(record.ID())
	if id == "" {
		return fmt.Errorf("sqlstore: pre-approval id is required")
	}
	result, err := s.db.NewUpdate().
		Model(newPreApprovalRecord(record)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("sqlstore: %w: %s", core.ErrPreApprovalNotFound, id)
	}
	return nil
}

// mutateMaxAttempts bounds how often a serialization loser re-runs its
// read-decide-write cycle before the conflict is surfaced to the caller.
const mutateMaxAttempts = 5

// Mutate loads the current row for id (nil when absent), applies fn, and
// persists the result, all inside one serializable transaction. When the
// transaction loses a serialization conflict the whole cycle re-runs against
// the committed state of the winner, so fn must be safe to call repeatedly.
func (s *PreApprovalStore) Mutate(ctx context.Context, id string, fn core.PreApprovalUpdateFn) (core.PreApprovalRecord, error) {
	if s == nil || s.db == nil {
		return core.PreApprovalRecord{}, fmt.Errorf("sqlstore: pre-approval store is not configured")
	}
	if fn == nil {
		return core.PreApprovalRecord{}, fmt.Errorf("sqlstore: update function is required")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return core.PreApprovalRecord{}, fmt.Errorf("sqlstore: pre-approval id is required")
	}

	var out core.PreApprovalRecord
	var err error
	for attempt := 0; attempt < mutateMaxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return core.PreApprovalRecord{}, ctxErr
		}
		out, err = s.mutateOnce(ctx, id, fn)
		if err == nil || !isSerializationFailure(err) {
			return out, err
		}
	}
	return core.PreApprovalRecord{}, fmt.Errorf("sqlstore: pre-approval %q still conflicted after %d attempts: %w", id, mutateMaxAttempts, err)
}

func (s *PreApprovalStore) mutateOnce(ctx context.Context, id string, fn core.PreApprovalUpdateFn) (core.PreApprovalRecord, error) {
	var out core.PreApprovalRecord
	err := s.db.RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(ctx context.Context, tx bun.Tx) error {
		record, err := findPreApprovalTx(ctx, tx, id)
		if err != nil {
			return err
		}
		var existing *core.PreApprovalRecord
		if record != nil {
			domain := record.toDomain()
			existing = &domain
		}
		updated, err := fn(existing)
		if err != nil {
			return err
		}
		if updated == nil {
			return fmt.Errorf("sqlstore: update function returned no record for %q", id)
		}
		row := newPreApprovalRecord(*updated)
		if record == nil {
			if _, insertErr := tx.NewInsert().Model(row).Exec(ctx); insertErr != nil {
				if isUniqueViolation(insertErr) {
					return fmt.Errorf("sqlstore: %w: %s", core.ErrPreApprovalExists, id)
				}
				return insertErr
			}
		} else {
			if _, updateErr := tx.NewUpdate().Model(row).Where("id = ?", id).Exec(ctx); updateErr != nil {
				return updateErr
			}
		}
		out = *updated
		return nil
	})
	if err != nil {
		return core.PreApprovalRecord{}, err
	}
	return out, nil
}

// ListByAddress returns records whose locally-held actor address matches:
// payer rows by address, payee rows by biller address.
func (s *PreApprovalStore) ListByAddress(ctx context.Context, address string) ([]core.PreApprovalRecord, error) {
	return s.list(ctx, address, "")
}

func (s *PreApprovalStore) ListByStatus(ctx context.Context, address string, status core.FundPullPreApprovalStatus) ([]core.PreApprovalRecord, error) {
	return s.list(ctx, address, status)
}

func (s *PreApprovalStore) list(ctx context.Context, address string, status core.FundPullPreApprovalStatus) ([]core.PreApprovalRecord, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: pre-approval store is not configured")
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("sqlstore: address is required")
	}
	criteria := []repository.SelectCriteria{
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("(?TableAlias.address = ? AND ?TableAlias.role = ?) OR (?TableAlias.biller_address = ? AND ?TableAlias.role = ?)",
				address, string(core.RolePayer), address, string(core.RolePayee))
		}),
		repository.OrderBy("created_at ASC"),
	}
	if status != "" {
		criteria = append(criteria, repository.SelectBy("status", "=", string(status)))
	}
	records, _, err := s.repo.List(ctx, criteria...)
	if err != nil {
		return nil, err
	}
	out := make([]core.PreApprovalRecord, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

// ListUnsent returns every record whose latest local mutation has not yet
// been delivered to the counterparty, oldest first.
func (s *PreApprovalStore) ListUnsent(ctx context.Context) ([]core.PreApprovalRecord, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: pre-approval store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.offchain_sent = ?", false)
		}),
		repository.OrderBy("updated_at ASC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.PreApprovalRecord, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *PreApprovalStore) MarkSent(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: pre-approval store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("sqlstore: pre-approval id is required")
	}
	result, err := s.db.NewUpdate().
		Model((*preApprovalRecord)(nil)).
		Set("offchain_sent = ?", true).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("sqlstore: %w: %s", core.ErrPreApprovalNotFound, id)
	}
	return nil
}

func findPreApproval(ctx context.Context, db bun.IDB, id string) (*preApprovalRecord, error) {
	record := &preApprovalRecord{}
	err := db.NewSelect().Model(record).Where("pa.id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

func findPreApprovalTx(ctx context.Context, tx bun.Tx, id string) (*preApprovalRecord, error) {
	return findPreApproval(ctx, tx, id)
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}

// isSerializationFailure reports whether err is a retryable isolation
// conflict: postgres raises SQLSTATE 40001, sqlite reports a locked database.
func isSerializationFailure(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "could not serialize access") ||
		strings.Contains(message, "sqlstate 40001") ||
		strings.Contains(message, "database is locked") ||
		strings.Contains(message, "database table is locked")
}
