package checkout

import (
	"database/sql"
	"time"
)

// Status: アイテムの現在状態（in=棚にある / out=持ち出し中）
type Status string

const (
	StatusIn  Status = "in"
	StatusOut Status = "out"
)

func (s Status) Valid() bool { return s == StatusIn || s == StatusOut }

// Action: 状態遷移ログの種別
type Action string

const (
	ActionCreate   Action = "create"
	ActionCheckout Action = "checkout"
	ActionCheckin  Action = "checkin"
)

func (a Action) Valid() bool {
	return a == ActionCreate || a == ActionCheckout || a == ActionCheckin
}

// StatusAfter: アクション適用後のステータス。
// create/checkin -> in, checkout -> out。
func (a Action) StatusAfter() Status {
	if a == ActionCheckout {
		return StatusOut
	}
	return StatusIn
}

// 作成スキャンのログに記録する操作者
const ActorSystem = "system"

// Item は items テーブルの1行を表す
type Item struct {
	Barcode          string
	Status           Status
	CheckedOutBy     sql.NullString
	ExpectedReturnOn sql.NullTime
	Description      sql.NullString
	UpdatedAt        time.Time
}

// LogEntry は checkout_logs テーブルの1行を表す（追記専用）
type LogEntry struct {
	LogID    int64
	LogULID  string
	Barcode  string
	Action   Action
	Actor    string
	LoggedAt time.Time
}

// ItemWithLog: アイテムとそのバーコードの最新ログの結合ビュー
type ItemWithLog struct {
	Item
	Last *LogEntry
}
