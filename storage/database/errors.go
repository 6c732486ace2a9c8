package database

import (
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// unique_violation, https://www.postgresql.org/docs/current/errcodes-appendix.html
const pqUniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique constraint violation on
// the named constraint (any constraint when name is empty).
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation && (constraint == "" || pqErr.Constraint == constraint)
	}
	return false
}
