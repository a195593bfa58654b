package checkout

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLedgerRollsBackOnError(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	boom := errors.New("boom")
	err := l.WithinTx(ctx, func(ctx context.Context, tx LedgerTx) error {
		item := Item{Barcode: "abc", Status: StatusIn, UpdatedAt: time.Now()}
		require.NoError(t, tx.UpsertItem(ctx, &item))
		require.NoError(t, tx.AppendLog(ctx, &LogEntry{
			LogULID: "01TEST", Barcode: "abc", Action: ActionCreate,
			Actor: ActorSystem, LoggedAt: time.Now(),
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	// アイテムもログも書かれていない
	rows, err := l.ListItemsWithLatestLog(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	logs, err := l.ListLogsByBarcode(ctx, "abc", 10)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestMemoryLedgerTxSeesOwnWrites(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	err := l.WithinTx(ctx, func(ctx context.Context, tx LedgerTx) error {
		_, err := tx.GetItem(ctx, "abc")
		require.ErrorIs(t, err, ErrItemNotFound)

		item := Item{Barcode: "abc", Status: StatusIn, UpdatedAt: time.Now()}
		require.NoError(t, tx.UpsertItem(ctx, &item))

		got, err := tx.GetItem(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, StatusIn, got.Status)

		entry := LogEntry{LogULID: "01TEST", Barcode: "abc", Action: ActionCreate,
			Actor: ActorSystem, LoggedAt: time.Now()}
		require.NoError(t, tx.AppendLog(ctx, &entry))

		last, err := tx.GetLatestLog(ctx, "abc")
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.Equal(t, ActionCreate, last.Action)
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryLedgerAssignsSequentialLogIDs(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	for i, code := range []string{"a", "b", "a"} {
		err := l.WithinTx(ctx, func(ctx context.Context, tx LedgerTx) error {
			item := Item{Barcode: code, Status: StatusIn, UpdatedAt: time.Now()}
			if err := tx.UpsertItem(ctx, &item); err != nil {
				return err
			}
			return tx.AppendLog(ctx, &LogEntry{
				LogULID: "01TEST" + string(rune('A'+i)), Barcode: code,
				Action: ActionCreate, Actor: ActorSystem, LoggedAt: time.Now(),
			})
		})
		require.NoError(t, err)
	}

	logs, err := l.ListLogsByBarcode(ctx, "a", 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	// 新しい順
	assert.Greater(t, logs[0].LogID, logs[1].LogID)
}

func TestMemoryLedgerListOverdueBoundary(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	seed := func(code string, due time.Time) {
		err := l.WithinTx(ctx, func(ctx context.Context, tx LedgerTx) error {
			return tx.UpsertItem(ctx, &Item{
				Barcode: code, Status: StatusOut,
				CheckedOutBy:     sql.NullString{String: "alice", Valid: true},
				ExpectedReturnOn: sql.NullTime{Time: due, Valid: true},
				UpdatedAt:        now,
			})
		})
		require.NoError(t, err)
	}

	seed("yesterday", now.AddDate(0, 0, -1).Truncate(24*time.Hour))
	// 当日中はまだ期限内
	seed("today", now.Truncate(24*time.Hour))
	seed("tomorrow", now.AddDate(0, 0, 1).Truncate(24*time.Hour))

	out, err := l.ListOverdue(ctx, now)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "yesterday", out[0].Barcode)
}
