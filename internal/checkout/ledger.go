package checkout

import (
	"context"
	"errors"
	"time"
)

// ErrItemNotFound: Ledger実装共通の「未登録バーコード」エラー
var ErrItemNotFound = errors.New("item not found")

// LedgerTx: 1回の applyScan の中で原子的に実行される台帳操作。
// GetItem は該当行をロックして返す実装であること。
type LedgerTx interface {
	GetItem(ctx context.Context, barcode string) (*Item, error)
	GetLatestLog(ctx context.Context, barcode string) (*LogEntry, error)
	UpsertItem(ctx context.Context, item *Item) error
	AppendLog(ctx context.Context, entry *LogEntry) error
}

// Ledger: アイテム状態と遷移ログの永続層。
// 書き込みは WithinTx 経由でのみ行い、ステータスとログが
// 食い違った状態をコミットしない。読み取りは単発クエリで
// スナップショット一貫性を持つ。
type Ledger interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
	ListItemsWithLatestLog(ctx context.Context) ([]ItemWithLog, error)
	ListLogsByBarcode(ctx context.Context, barcode string, limit int) ([]LogEntry, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]Item, error)
}
