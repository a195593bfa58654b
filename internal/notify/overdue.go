package notify

import (
	"context"
	"log"
	"time"

	"LECS-backend/internal/checkout"
)

// OverdueLister: 期限超過アイテムの列挙（checkout.Ledger が満たす）
type OverdueLister interface {
	ListOverdue(ctx context.Context, asOf time.Time) ([]checkout.Item, error)
}

// Directory: 操作者IDからメールアドレスを引く
type Directory interface {
	ResolveEmail(ctx context.Context, id string) (string, error)
}

type clock interface{ Now() time.Time }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Sweeper: 返却予定日を過ぎたまま out のアイテムを定期的に探して
// 通知を送る。同じアイテムには1日1回まで。送信失敗はログのみで、
// プロセスにもトグル処理にも波及しない。
type Sweeper struct {
	lister   OverdueLister
	sender   Sender
	dir      Directory
	interval time.Duration
	clock    clock

	// barcode -> 最後に通知した日 (YYYY-MM-DD)
	notified map[string]string
}

// NewSweeper: dir は nil 可（その場合は常にデフォルト宛先）
func NewSweeper(lister OverdueLister, sender Sender, dir Directory, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		lister:   lister,
		sender:   sender,
		dir:      dir,
		interval: interval,
		clock:    realClock{},
		notified: make(map[string]string),
	}
}

// Run: ctx がキャンセルされるまで定期実行する
func (s *Sweeper) Run(ctx context.Context) {
	s.Sweep(ctx)

	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep: 1回分のチェックと送信
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.clock.Now().UTC()
	items, err := s.lister.ListOverdue(ctx, now)
	if err != nil {
		log.Printf("[ERROR] overdue list: %v", err)
		return
	}

	today := now.Format("2006-01-02")
	current := make(map[string]struct{}, len(items))
	for _, it := range items {
		current[it.Barcode] = struct{}{}
		if s.notified[it.Barcode] == today {
			continue
		}

		email := ""
		if s.dir != nil && it.CheckedOutBy.Valid {
			if v, err := s.dir.ResolveEmail(ctx, it.CheckedOutBy.String); err == nil {
				email = v
			}
		}

		n := Notification{
			Barcode:          it.Barcode,
			ExpectedReturnOn: it.ExpectedReturnOn.Time,
			ActorEmail:       email,
		}
		if err := s.sender.Send(ctx, n); err != nil {
			log.Printf("[ERROR] overdue notification %s: %v", it.Barcode, err)
			continue
		}
		log.Printf("[INFO] overdue notification sent: %s (due %s)", it.Barcode, n.ExpectedReturnOn.Format("2006-01-02"))
		s.notified[it.Barcode] = today
	}

	// 返却などで期限超過でなくなったアイテムの記録は捨てる。
	// 捨てないとプロセスの寿命分だけ溜まり続ける。
	for code := range s.notified {
		if _, ok := current[code]; !ok {
			delete(s.notified, code)
		}
	}
}
