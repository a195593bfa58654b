package checkout

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"LECS-backend/internal/realtime"
)

// ===== インターフェース群 =====

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

type IDGen interface {
	New() (string, error)
}

type ulidGen struct{}

func (ulidGen) New() (string, error) {
	t := time.Now().UTC()
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ActorInfo: 従業員ディレクトリの参照結果
type ActorInfo struct {
	Name  string
	Email string
}

// Directory: 操作者IDから表示名を引く読み取り専用の参照先。
// 実体は employees パッケージ（外部ディレクトリ）。
type Directory interface {
	Resolve(ctx context.Context, id string) (ActorInfo, error)
}

// Broadcaster: 状態変化イベントの配信先（realtime.Hub）
type Broadcaster interface {
	Publish(ev realtime.Event)
}

// ===== Service本体（状態遷移＋照会） =====

// Service は applyScan の唯一の入口。mu で全バーコードに渡って
// 直列化されるため、read-modify-write が交差して更新が失われる
// ことはない。照会系（Snapshot/History）は並行実行してよい。
type Service struct {
	mu     sync.Mutex
	ledger Ledger
	hub    Broadcaster
	dir    Directory
	clock  Clock
	id     IDGen
}

// NewService: hub と dir は nil 可（テスト・スキャナ単体運用）
func NewService(ledger Ledger, hub Broadcaster, dir Directory) *Service {
	return &Service{
		ledger: ledger,
		hub:    hub,
		dir:    dir,
		clock:  realClock{},
		id:     ulidGen{},
	}
}

// ScanInput: 1回のスキャン（スキャナ由来またはWeb確定）
type ScanInput struct {
	Barcode string
	// 空ならスキャナ由来の暫定スキャン（操作者未確定）
	Actor            string
	ExpectedReturnOn *time.Time
	Description      *string
}

// ScanResult: applyScan の結果。NeedsActor=true のときは
// 既存アイテムに対する操作者なしスキャンで、何も書き込まれていない。
type ScanResult struct {
	Item       Item
	Entry      *LogEntry
	Created    bool
	NeedsActor bool
}

// ApplyScan: バーコード1件を台帳へ適用する。
//  1. 未登録バーコード → status=in で新規作成し create ログ（actor=system）
//  2. 既存＋操作者なし → 何も書かず NeedsActor を返す（二段階フロー）
//  3. 既存＋操作者あり → in/out をトグルして checkout/checkin ログ
//
// 書き込みは台帳トランザクションで原子的に行い、コミット後に
// 在庫スナップショットを配信する。
func (s *Service) ApplyScan(ctx context.Context, in ScanInput) (*ScanResult, error) {
	code, err := NormalizeBarcode(in.Barcode)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var res ScanResult
	err = s.ledger.WithinTx(ctx, func(ctx context.Context, tx LedgerTx) error {
		item, err := tx.GetItem(ctx, code)
		if errors.Is(err, ErrItemNotFound) {
			return s.createItem(ctx, tx, code, in, &res)
		}
		if err != nil {
			return err
		}

		if in.Actor == "" {
			// スキャナ単独では操作者が確定できないのでトグルは保留し、
			// 呼び出し側（スキャンループ）に確認を促させる
			res.Item = *item
			res.NeedsActor = true
			return nil
		}
		return s.toggleItem(ctx, tx, item, in, &res)
	})
	if err != nil {
		return nil, err
	}

	if res.Entry != nil {
		s.publishSnapshot(ctx)
	}
	return &res, nil
}

// createItem: 初回スキャン。貸出扱いにはせず中立な作成として記録する。
func (s *Service) createItem(ctx context.Context, tx LedgerTx, code string, in ScanInput, res *ScanResult) error {
	now := s.clock.Now().UTC()

	item := Item{
		Barcode:   code,
		Status:    StatusIn,
		UpdatedAt: now,
	}
	if in.Actor != "" {
		item.CheckedOutBy = sql.NullString{String: in.Actor, Valid: true}
	}
	if in.ExpectedReturnOn != nil {
		item.ExpectedReturnOn = sql.NullTime{Time: in.ExpectedReturnOn.UTC(), Valid: true}
	}
	if in.Description != nil && *in.Description != "" {
		item.Description = sql.NullString{String: *in.Description, Valid: true}
	}

	entry, err := s.newEntry(code, ActionCreate, ActorSystem, now)
	if err != nil {
		return err
	}

	if err := tx.UpsertItem(ctx, &item); err != nil {
		return err
	}
	if err := tx.AppendLog(ctx, entry); err != nil {
		return err
	}

	res.Item = item
	res.Entry = entry
	res.Created = true
	return nil
}

// toggleItem: in↔out のトグル。outへの遷移は返却予定日が必須。
func (s *Service) toggleItem(ctx context.Context, tx LedgerTx, item *Item, in ScanInput, res *ScanResult) error {
	now := s.clock.Now().UTC()

	// ログの時刻はバーコードごとに単調非減少を保証する
	last, err := tx.GetLatestLog(ctx, item.Barcode)
	if err != nil {
		return err
	}
	if last != nil && now.Before(last.LoggedAt) {
		now = last.LoggedAt
	}

	var action Action
	if item.Status == StatusIn {
		if in.ExpectedReturnOn == nil {
			return ErrInvalid("expected_return_date is required for checkout")
		}
		action = ActionCheckout
		item.Status = StatusOut
		item.CheckedOutBy = sql.NullString{String: in.Actor, Valid: true}
		item.ExpectedReturnOn = sql.NullTime{Time: in.ExpectedReturnOn.UTC(), Valid: true}
	} else {
		action = ActionCheckin
		item.Status = StatusIn
		item.CheckedOutBy = sql.NullString{}
		item.ExpectedReturnOn = sql.NullTime{}
	}
	if in.Description != nil && *in.Description != "" {
		item.Description = sql.NullString{String: *in.Description, Valid: true}
	}
	item.UpdatedAt = now

	entry, err := s.newEntry(item.Barcode, action, in.Actor, now)
	if err != nil {
		return err
	}

	if err := tx.UpsertItem(ctx, item); err != nil {
		return err
	}
	if err := tx.AppendLog(ctx, entry); err != nil {
		return err
	}

	res.Item = *item
	res.Entry = entry
	return nil
}

func (s *Service) newEntry(barcode string, action Action, actor string, at time.Time) (*LogEntry, error) {
	id, err := s.id.New()
	if err != nil {
		return nil, err
	}
	return &LogEntry{
		LogULID:  id,
		Barcode:  barcode,
		Action:   action,
		Actor:    actor,
		LoggedAt: at,
	}, nil
}

// publishSnapshot: コミット済みの全在庫ビューを配信する。
// 配信はベストエフォートで、失敗してもトグル自体は成立している。
func (s *Service) publishSnapshot(ctx context.Context) {
	if s.hub == nil {
		return
	}
	views, err := s.Snapshot(ctx)
	if err != nil {
		log.Printf("[ERROR] snapshot for broadcast: %v", err)
		return
	}
	s.hub.Publish(realtime.InventoryUpdated(views))
}

// ===== 照会系（Query Service） =====

// Snapshot: 全アイテムを最新ログと結合した表示用ビュー。
// 台帳側の単発クエリなので、ステータスだけ更新されてログが
// 見えない、という中途半端な状態は観測されない。
func (s *Service) Snapshot(ctx context.Context) ([]ItemView, error) {
	rows, err := s.ledger.ListItemsWithLatestLog(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ItemView, 0, len(rows))
	for _, r := range rows {
		out = append(out, s.toView(ctx, r))
	}
	return out, nil
}

// History: 1バーコードの遷移ログ（新しい順）
func (s *Service) History(ctx context.Context, barcode string, limit int) ([]LogView, error) {
	code, err := NormalizeBarcode(barcode)
	if err != nil {
		return nil, err
	}
	logs, err := s.ledger.ListLogsByBarcode(ctx, code, limit)
	if err != nil {
		return nil, err
	}
	out := make([]LogView, 0, len(logs))
	for _, e := range logs {
		out = append(out, LogView{
			LogULID:  e.LogULID,
			Barcode:  e.Barcode,
			Action:   e.Action,
			Actor:    e.Actor,
			LoggedAt: e.LoggedAt,
		})
	}
	return out, nil
}

func (s *Service) toView(ctx context.Context, r ItemWithLog) ItemView {
	v := ItemView{
		Barcode:            r.Barcode,
		Status:             r.Status,
		CheckedOutBy:       NotApplicable,
		ActorName:          NotApplicable,
		ExpectedReturnDate: NotApplicable,
		Description:        "",
		LastAction:         NotApplicable,
		LastActionAt:       NotApplicable,
	}
	if r.CheckedOutBy.Valid {
		v.CheckedOutBy = r.CheckedOutBy.String
		v.ActorName = v.CheckedOutBy
		if s.dir != nil {
			if info, err := s.dir.Resolve(ctx, v.CheckedOutBy); err == nil && info.Name != "" {
				v.ActorName = info.Name
			}
		}
	}
	if r.ExpectedReturnOn.Valid {
		v.ExpectedReturnDate = r.ExpectedReturnOn.Time.Format("2006-01-02")
	}
	if r.Description.Valid {
		v.Description = r.Description.String
	}
	if r.Last != nil {
		v.LastAction = string(r.Last.Action)
		v.LastActionAt = r.Last.LoggedAt.UTC().Format(time.RFC3339)
	}
	return v
}

// ===== バーコード検証 =====

// NormalizeBarcode: 小文字化して形式を検証する。
// デコーダは形を検証しないので、台帳に入る前のここが唯一の関門。
func NormalizeBarcode(raw string) (string, error) {
	code := strings.ToLower(strings.TrimSpace(raw))
	if code == "" {
		return "", ErrInvalid("barcode is required")
	}
	if len(code) > 64 {
		return "", ErrInvalid("barcode is too long")
	}
	for _, r := range code {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '.' || r == '_' || r == '/':
		default:
			return "", ErrInvalid("barcode contains invalid characters")
		}
	}
	return code, nil
}
