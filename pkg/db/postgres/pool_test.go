package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestHasCode(t *testing.T) {
	overlap := fmt.Errorf("insert appointment: %w", &pgconn.PgError{Code: CodeExclusionViolation})

	if !HasCode(overlap, CodeExclusionViolation) {
		t.Error("expected wrapped exclusion violation to match")
	}
	if HasCode(&pgconn.PgError{Code: "23505"}, CodeExclusionViolation) {
		t.Error("unique violation should not match the exclusion code")
	}
	if HasCode(errors.New("connection reset"), CodeExclusionViolation) {
		t.Error("plain errors never carry a SQLSTATE")
	}
}
