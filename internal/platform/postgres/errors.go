package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/scry-scheduler/internal/store"
)

// PostgreSQL error codes
const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
	notNullViolationCode    = "23502"
	serializationFailure    = "40001"
	deadlockDetected        = "40P01"
	lockNotAvailable        = "55P03"
)

// idempotencyKeyIndex is the unique index on reviews(user_id, idempotency_key).
const idempotencyKeyIndex = "idx_reviews_user_idempotency_key"

// codeErrors maps SQLSTATE codes to store sentinels. Lock and serialization
// failures all mean another transaction won the card state row.
var codeErrors = map[string]error{
	uniqueViolationCode:     store.ErrDuplicate,
	foreignKeyViolationCode: store.ErrInvalidEntity,
	checkViolationCode:      store.ErrInvalidEntity,
	notNullViolationCode:    store.ErrInvalidEntity,
	serializationFailure:    store.ErrSerialization,
	deadlockDetected:        store.ErrSerialization,
	lockNotAvailable:        store.ErrSerialization,
}

// MapError translates a database error into a store sentinel, keeping the
// original error in the chain. Unknown errors are returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", store.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	if pgErr.Code == uniqueViolationCode && pgErr.ConstraintName == idempotencyKeyIndex {
		return fmt.Errorf("%w: %w", store.ErrIdempotencyKeyExists, err)
	}

	sentinel, ok := codeErrors[pgErr.Code]
	if !ok {
		return err
	}
	if detail := pgErr.ConstraintName; detail != "" {
		return fmt.Errorf("%w (%s): %w", sentinel, detail, err)
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	return pgCode(err) == uniqueViolationCode
}

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	return pgCode(err) == foreignKeyViolationCode
}

// CheckRowsAffected returns notFound (store.ErrNotFound when nil) if the
// statement touched no rows. Conditional updates use it to detect a version
// mismatch.
func CheckRowsAffected(result sql.Result, notFound error) error {
	if result == nil {
		return errors.New("nil result provided to CheckRowsAffected")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if notFound == nil {
			return store.ErrNotFound
		}
		return notFound
	}

	return nil
}
