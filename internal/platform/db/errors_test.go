package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClassifyPgErrors(t *testing.T) {
	dup := fmt.Errorf("insert order: %w", &pgconn.PgError{Code: CodeUniqueViolation, ConstraintName: "orders_pkey"})
	assert.True(t, IsUniqueViolation(dup))
	assert.Equal(t, "orders_pkey", Constraint(dup))
	assert.False(t, IsRetryable(dup))

	fk := &pgconn.PgError{Code: CodeForeignKeyViolation}
	assert.True(t, IsForeignKeyViolation(fk))

	assert.True(t, IsRetryable(&pgconn.PgError{Code: CodeSerializationFailure}))
	assert.True(t, IsRetryable(&pgconn.PgError{Code: CodeDeadlockDetected}))
	assert.True(t, IsTimeout(&pgconn.PgError{Code: CodeQueryCanceled}))
	assert.True(t, IsOutOfRange(fmt.Errorf("insert detail: %w", &pgconn.PgError{Code: CodeNumericOutOfRange})))
	assert.False(t, IsRetryable(&pgconn.PgError{Code: CodeNumericOutOfRange}))

	plain := errors.New("boom")
	assert.Equal(t, "", Code(plain))
	assert.False(t, IsUniqueViolation(plain))
	assert.False(t, IsTimeout(plain))
	assert.False(t, IsOutOfRange(plain))
	assert.True(t, IsTimeout(context.DeadlineExceeded))
}
