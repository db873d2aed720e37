package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// preApprovalHandlers wires the repository used for criteria-based listing.
// Pre-approval ids are opaque protocol strings, not UUIDs: GetID degrades to
// uuid.Nil for them and SetID must never replace an id the protocol assigned,
// so writes go through bun directly instead of the repository.
func preApprovalHandlers() repository.ModelHandlers[*preApprovalRecord] {
	return repository.ModelHandlers[*preApprovalRecord]{
		NewRecord: func() *preApprovalRecord {
			return &preApprovalRecord{}
		},
		GetID: func(record *preApprovalRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *preApprovalRecord, id uuid.UUID) {
			if record == nil || strings.TrimSpace(record.ID) != "" {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *preApprovalRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
