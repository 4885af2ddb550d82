package shared

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	calls []execCall
	seen  map[string]bool
	tag   pgconn.CommandTag
	err   error
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	if f.seen != nil && len(args) == 3 {
		key := args[0].(string)
		if f.seen[key] {
			return pgconn.NewCommandTag("INSERT 0 0"), nil
		}
		f.seen[key] = true
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}
	return f.tag, nil
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func TestIdempotencyConflict(t *testing.T) {
	conn := &fakeDB{seen: map[string]bool{}}
	store := NewIdempotencyStore(conn)
	ctx := context.Background()

	require.NoError(t, store.Claim(ctx, "k1", "orders"))
	require.ErrorIs(t, store.Claim(ctx, "k1", "orders"), ErrIdempotencyConflict)
	require.Error(t, store.Claim(ctx, "", "orders"))
	require.Error(t, store.Claim(ctx, "k2", ""))

	require.NoError(t, store.Release(ctx, "k1"))
	assert.Contains(t, conn.calls[len(conn.calls)-1].sql, "DELETE FROM idempotency_keys")

	raced := &fakeDB{err: &pgconn.PgError{Code: "23505"}}
	require.ErrorIs(t, NewIdempotencyStore(raced).Claim(ctx, "k3", "orders"), ErrIdempotencyConflict)
}

func TestIdempotencyCleanupUsesCutoff(t *testing.T) {
	conn := &fakeDB{tag: pgconn.NewCommandTag("DELETE 3")}
	store := NewIdempotencyStore(conn)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	n, err := store.Cleanup(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	require.Len(t, conn.calls, 1)
	assert.Equal(t, fixed.Add(-24*time.Hour), conn.calls[0].args[0])

	var nilStore *IdempotencyStore
	n, err = nilStore.Cleanup(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAuditRecordValidates(t *testing.T) {
	conn := &fakeDB{}
	logger := NewAuditLogger(conn)
	ctx := context.Background()

	require.Error(t, logger.Record(ctx, AuditLog{Action: "orders:sale"}))
	require.NoError(t, logger.Record(ctx, AuditLog{Actor: "EMP001", Action: "orders:sale", Entity: "order", EntityID: "INV001", Meta: map[string]any{"net": "119.97"}}))
	require.Len(t, conn.calls, 1)
	assert.Equal(t, "EMP001", conn.calls[0].args[0])
	assert.JSONEq(t, `{"net":"119.97"}`, string(conn.calls[0].args[4].([]byte)))

	ctx = ContextWithActor(ctx, "EMP002")
	require.NoError(t, logger.Record(ctx, AuditLog{Action: "orders:purchase:cancel", Entity: "order", EntityID: "PUR001"}))
	require.Len(t, conn.calls, 2)
	assert.Equal(t, "EMP002", conn.calls[1].args[0])
	assert.JSONEq(t, `{}`, string(conn.calls[1].args[4].([]byte)))

	var nilLogger *AuditLogger
	require.Error(t, nilLogger.Record(ctx, AuditLog{}))
	_, err := nilLogger.Trail(ctx, "order", "INV001")
	require.Error(t, err)
}

func TestActorContextAndPage(t *testing.T) {
	ctx := ContextWithActor(context.Background(), "EMP007")
	assert.Equal(t, "EMP007", ActorFromContext(ctx))
	assert.Equal(t, "", ActorFromContext(context.Background()))

	assert.Equal(t, Page{Limit: DefaultPageSize}, NewPage(0, -4))
	assert.Equal(t, Page{Limit: MaxPageSize, Offset: 10}, NewPage(10000, 10))
	assert.Equal(t, "orders:sequence:INV", SequenceLockKey("INV"))
}
