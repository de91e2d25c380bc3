package scheduling

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// isCodeCollision spots a unique-index violation on the public_code column:
// another writer raced the same generated code between the exists check and
// the insert.
func isCodeCollision(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" && strings.Contains(pgErr.ConstraintName, "public_code")
}
