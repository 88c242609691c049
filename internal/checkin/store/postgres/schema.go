package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Constraint names the recorder maps to conflict axes. They are fixed in
// schema.sql and must not be renamed without updating constraintAxes.
const (
	ConstraintNonce      = "used_token_nonces_pkey"
	ConstraintDevice     = "used_device_fingerprints_pkey"
	ConstraintAttendance = "attendance_meeting_member_key"
)

//go:embed schema.sql
var schema string

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
