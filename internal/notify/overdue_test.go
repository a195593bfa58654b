package notify

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LECS-backend/internal/checkout"
)

type fakeSender struct {
	sent []Notification
	fail bool
}

func (f *fakeSender) Send(_ context.Context, n Notification) error {
	if f.fail {
		return errors.New("mailgun unavailable")
	}
	f.sent = append(f.sent, n)
	return nil
}

type fakeDirectory map[string]string

func (d fakeDirectory) ResolveEmail(_ context.Context, id string) (string, error) {
	if email, ok := d[id]; ok {
		return email, nil
	}
	return "", errors.New("not found")
}

type fixedClock struct{ at time.Time }

func (c *fixedClock) Now() time.Time { return c.at }

// seedItem: 台帳に任意の状態のアイテムを直接用意する
func seedItem(t *testing.T, l *checkout.MemoryLedger, item checkout.Item) {
	t.Helper()
	err := l.WithinTx(context.Background(), func(ctx context.Context, tx checkout.LedgerTx) error {
		return tx.UpsertItem(ctx, &item)
	})
	require.NoError(t, err)
}

func outItem(barcode, actor string, due time.Time) checkout.Item {
	return checkout.Item{
		Barcode:          barcode,
		Status:           checkout.StatusOut,
		CheckedOutBy:     sql.NullString{String: actor, Valid: true},
		ExpectedReturnOn: sql.NullTime{Time: due, Valid: true},
	}
}

func TestSweepNotifiesOverdueItemsOnly(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	ledger := checkout.NewMemoryLedger()

	seedItem(t, ledger, outItem("late", "alice@example.com", now.AddDate(0, 0, -3)))
	seedItem(t, ledger, outItem("ontime", "bob@example.com", now.AddDate(0, 0, 2)))
	seedItem(t, ledger, checkout.Item{Barcode: "shelved", Status: checkout.StatusIn})

	sender := &fakeSender{}
	dir := fakeDirectory{"alice@example.com": "alice@example.com"}
	s := NewSweeper(ledger, sender, dir, time.Hour)
	s.clock = &fixedClock{at: now}

	s.Sweep(context.Background())

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "late", sender.sent[0].Barcode)
	assert.Equal(t, "alice@example.com", sender.sent[0].ActorEmail)
	assert.Equal(t, now.AddDate(0, 0, -3), sender.sent[0].ExpectedReturnOn)
}

func TestSweepOncePerDay(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	ledger := checkout.NewMemoryLedger()
	seedItem(t, ledger, outItem("late", "alice@example.com", now.AddDate(0, 0, -1)))

	sender := &fakeSender{}
	clk := &fixedClock{at: now}
	s := NewSweeper(ledger, sender, nil, time.Hour)
	s.clock = clk

	s.Sweep(context.Background())
	s.Sweep(context.Background())
	assert.Len(t, sender.sent, 1)

	// 翌日になればもう一度通知する
	clk.at = now.AddDate(0, 0, 1)
	s.Sweep(context.Background())
	assert.Len(t, sender.sent, 2)
}

func TestSweepRetriesAfterSendFailure(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	ledger := checkout.NewMemoryLedger()
	seedItem(t, ledger, outItem("late", "alice@example.com", now.AddDate(0, 0, -1)))

	sender := &fakeSender{fail: true}
	s := NewSweeper(ledger, sender, nil, time.Hour)
	s.clock = &fixedClock{at: now}

	// 失敗時は通知済みにしない
	s.Sweep(context.Background())
	assert.Empty(t, sender.sent)

	sender.fail = false
	s.Sweep(context.Background())
	assert.Len(t, sender.sent, 1)
}

func TestSweepForgetsResolvedItems(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	ledger := checkout.NewMemoryLedger()
	seedItem(t, ledger, outItem("late", "alice@example.com", now.AddDate(0, 0, -1)))

	sender := &fakeSender{}
	s := NewSweeper(ledger, sender, nil, time.Hour)
	s.clock = &fixedClock{at: now}

	s.Sweep(context.Background())
	require.Len(t, sender.sent, 1)
	require.Contains(t, s.notified, "late")

	// 返却されたら通知記録も消える（記録が無限に溜まらない）
	seedItem(t, ledger, checkout.Item{Barcode: "late", Status: checkout.StatusIn})
	s.Sweep(context.Background())
	assert.Empty(t, s.notified)
	assert.Len(t, sender.sent, 1)
}

func TestSweepWithoutDirectoryLeavesEmailEmpty(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	ledger := checkout.NewMemoryLedger()
	seedItem(t, ledger, outItem("late", "alice@example.com", now.AddDate(0, 0, -1)))

	sender := &fakeSender{}
	s := NewSweeper(ledger, sender, nil, time.Hour)
	s.clock = &fixedClock{at: now}

	s.Sweep(context.Background())

	require.Len(t, sender.sent, 1)
	assert.Empty(t, sender.sent[0].ActorEmail)
}
