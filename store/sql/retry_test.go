package sqlstore

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsSerializationFailure(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"postgres serialize", errors.New("ERROR: could not serialize access due to concurrent update (SQLSTATE 40001)"), true},
		{"postgres sqlstate only", errors.New("pq: SQLSTATE 40001"), true},
		{"sqlite locked", errors.New("database is locked"), true},
		{"sqlite table locked", errors.New("database table is locked"), true},
		{"wrapped", fmt.Errorf("mutate: %w", errors.New("could not serialize access")), true},
		{"unique violation", errors.New("UNIQUE constraint failed: pre_approvals.id"), false},
		{"unrelated", errors.New("connection refused"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isSerializationFailure(tc.err); got != tc.want {
				t.Fatalf("isSerializationFailure(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(errors.New("UNIQUE constraint failed: pre_approvals.id")) {
		t.Fatalf("sqlite unique violation not detected")
	}
	if !isUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "pre_approvals_pkey"`)) {
		t.Fatalf("postgres unique violation not detected")
	}
	if isUniqueViolation(errors.New("could not serialize access")) {
		t.Fatalf("serialization conflict misread as unique violation")
	}
}
