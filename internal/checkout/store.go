package checkout

import (
	"context"
	"database/sql"
	"time"

	pdb "LECS-backend/internal/platform/db"
)

// MySQLLedger: items / checkout_logs テーブルを使う本番用台帳
type MySQLLedger struct {
	db *sql.DB
}

func NewMySQLLedger(db *sql.DB) *MySQLLedger { return &MySQLLedger{db: db} }

func (l *MySQLLedger) WithinTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error {
	return pdb.RunInTx(ctx, l.db, &sql.TxOptions{}, func(ctx context.Context, tx pdb.DBTX) error {
		return fn(ctx, &mysqlTx{db: tx})
	})
}

// mysqlTx: トランザクション内の台帳操作
type mysqlTx struct {
	db pdb.DBTX
}

func (t *mysqlTx) GetItem(ctx context.Context, barcode string) (*Item, error) {
	// applyScan の read-modify-write を守るため行ロックを取る
	const q = `
	SELECT barcode, status, checked_out_by, expected_return_on, description, updated_at
	FROM items WHERE barcode = ? FOR UPDATE`

	var m Item
	err := t.db.QueryRowContext(ctx, q, barcode).Scan(
		&m.Barcode, &m.Status, &m.CheckedOutBy, &m.ExpectedReturnOn, &m.Description, &m.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (t *mysqlTx) GetLatestLog(ctx context.Context, barcode string) (*LogEntry, error) {
	const q = `
	SELECT log_id, log_ulid, barcode, action, actor, logged_at
	FROM checkout_logs WHERE barcode = ?
	ORDER BY log_id DESC LIMIT 1`

	var e LogEntry
	err := t.db.QueryRowContext(ctx, q, barcode).Scan(
		&e.LogID, &e.LogULID, &e.Barcode, &e.Action, &e.Actor, &e.LoggedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (t *mysqlTx) UpsertItem(ctx context.Context, item *Item) error {
	const q = `
	INSERT INTO items (barcode, status, checked_out_by, expected_return_on, description, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
	status             = VALUES(status),
	checked_out_by     = VALUES(checked_out_by),
	expected_return_on = VALUES(expected_return_on),
	description        = VALUES(description),
	updated_at         = VALUES(updated_at)`

	_, err := t.db.ExecContext(ctx, q,
		item.Barcode, item.Status, item.CheckedOutBy, item.ExpectedReturnOn,
		item.Description, item.UpdatedAt,
	)
	return err
}

func (t *mysqlTx) AppendLog(ctx context.Context, entry *LogEntry) error {
	const q = `
	INSERT INTO checkout_logs (log_ulid, barcode, action, actor, logged_at)
	VALUES (?, ?, ?, ?, ?)`

	res, err := t.db.ExecContext(ctx, q,
		entry.LogULID, entry.Barcode, entry.Action, entry.Actor, entry.LoggedAt,
	)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	entry.LogID = id
	return nil
}

// ---- Queries（読み取りは単発クエリ＝一貫したビュー） ----

// ListItemsWithLatestLog: 全アイテム＋バーコードごとの最新ログ
func (l *MySQLLedger) ListItemsWithLatestLog(ctx context.Context) ([]ItemWithLog, error) {
	const q = `
	SELECT
	i.barcode, i.status, i.checked_out_by, i.expected_return_on, i.description, i.updated_at,
	c.log_id, c.log_ulid, c.action, c.actor, c.logged_at
	FROM items i
	LEFT JOIN checkout_logs c ON c.log_id = (
		SELECT MAX(c2.log_id) FROM checkout_logs c2 WHERE c2.barcode = i.barcode
	)
	ORDER BY i.barcode`

	rows, err := l.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ItemWithLog
	for rows.Next() {
		var (
			iw       ItemWithLog
			logID    sql.NullInt64
			logULID  sql.NullString
			action   sql.NullString
			actor    sql.NullString
			loggedAt sql.NullTime
		)
		if err := rows.Scan(
			&iw.Barcode, &iw.Status, &iw.CheckedOutBy, &iw.ExpectedReturnOn, &iw.Description, &iw.UpdatedAt,
			&logID, &logULID, &action, &actor, &loggedAt,
		); err != nil {
			return nil, err
		}
		if logID.Valid {
			iw.Last = &LogEntry{
				LogID:    logID.Int64,
				LogULID:  logULID.String,
				Barcode:  iw.Barcode,
				Action:   Action(action.String),
				Actor:    actor.String,
				LoggedAt: loggedAt.Time,
			}
		}
		out = append(out, iw)
	}
	return out, rows.Err()
}

func (l *MySQLLedger) ListLogsByBarcode(ctx context.Context, barcode string, limit int) ([]LogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
	SELECT log_id, log_ulid, barcode, action, actor, logged_at
	FROM checkout_logs WHERE barcode = ?
	ORDER BY log_id DESC LIMIT ?`

	rows, err := l.db.QueryContext(ctx, q, barcode, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.LogID, &e.LogULID, &e.Barcode, &e.Action, &e.Actor, &e.LoggedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListOverdue: 返却予定日を過ぎても out のままのアイテム
func (l *MySQLLedger) ListOverdue(ctx context.Context, asOf time.Time) ([]Item, error) {
	const q = `
	SELECT barcode, status, checked_out_by, expected_return_on, description, updated_at
	FROM items
	WHERE status = 'out'
	  AND expected_return_on IS NOT NULL
	  AND expected_return_on < ?
	ORDER BY expected_return_on`

	rows, err := l.db.QueryContext(ctx, q, asOf.UTC().Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var m Item
		if err := rows.Scan(&m.Barcode, &m.Status, &m.CheckedOutBy, &m.ExpectedReturnOn, &m.Description, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
