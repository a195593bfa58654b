package checkout

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryLedger: プロセス内のみで完結する台帳。
// デモ運用（storage: memory）とテストで使う。
type MemoryLedger struct {
	mu     sync.Mutex
	items  map[string]Item
	logs   map[string][]LogEntry
	nextID int64
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		items: make(map[string]Item),
		logs:  make(map[string][]LogEntry),
	}
}

// WithinTx: ロックを握ったまま fn を実行し、変更をジャーナルに溜めて
// 成功時のみ反映する。エラー時は何も書かれない（MySQL実装のROLLBACK相当）。
func (l *MemoryLedger) WithinTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx := &memTx{
		ledger: l,
		staged: make(map[string]Item),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

type memTx struct {
	ledger  *MemoryLedger
	staged  map[string]Item
	appends []LogEntry
}

func (t *memTx) GetItem(_ context.Context, barcode string) (*Item, error) {
	if m, ok := t.staged[barcode]; ok {
		cp := m
		return &cp, nil
	}
	m, ok := t.ledger.items[barcode]
	if !ok {
		return nil, ErrItemNotFound
	}
	cp := m
	return &cp, nil
}

func (t *memTx) GetLatestLog(_ context.Context, barcode string) (*LogEntry, error) {
	for i := len(t.appends) - 1; i >= 0; i-- {
		if t.appends[i].Barcode == barcode {
			cp := t.appends[i]
			return &cp, nil
		}
	}
	logs := t.ledger.logs[barcode]
	if len(logs) == 0 {
		return nil, nil
	}
	cp := logs[len(logs)-1]
	return &cp, nil
}

func (t *memTx) UpsertItem(_ context.Context, item *Item) error {
	t.staged[item.Barcode] = *item
	return nil
}

func (t *memTx) AppendLog(_ context.Context, entry *LogEntry) error {
	t.appends = append(t.appends, *entry)
	return nil
}

// commit: ステージ済みの変更を台帳へ反映（呼び出し側がロック保持済み）
func (t *memTx) commit() {
	for code, m := range t.staged {
		t.ledger.items[code] = m
	}
	for _, e := range t.appends {
		t.ledger.nextID++
		e.LogID = t.ledger.nextID
		t.ledger.logs[e.Barcode] = append(t.ledger.logs[e.Barcode], e)
	}
}

func (l *MemoryLedger) ListItemsWithLatestLog(_ context.Context) ([]ItemWithLog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]ItemWithLog, 0, len(l.items))
	for code, m := range l.items {
		iw := ItemWithLog{Item: m}
		if logs := l.logs[code]; len(logs) > 0 {
			cp := logs[len(logs)-1]
			iw.Last = &cp
		}
		out = append(out, iw)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Barcode < out[j].Barcode })
	return out, nil
}

func (l *MemoryLedger) ListLogsByBarcode(_ context.Context, barcode string, limit int) ([]LogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	logs := l.logs[barcode]
	out := make([]LogEntry, 0, limit)
	for i := len(logs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, logs[i])
	}
	return out, nil
}

func (l *MemoryLedger) ListOverdue(_ context.Context, asOf time.Time) ([]Item, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	day := asOf.UTC().Truncate(24 * time.Hour)
	var out []Item
	for _, m := range l.items {
		if m.Status != StatusOut || !m.ExpectedReturnOn.Valid {
			continue
		}
		if m.ExpectedReturnOn.Time.Before(day) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExpectedReturnOn.Time.Before(out[j].ExpectedReturnOn.Time)
	})
	return out, nil
}
