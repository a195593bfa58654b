package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"

	pdb "LECS-backend/internal/platform/db"
)

// Notification: 返却期限超過1件分の通知内容
type Notification struct {
	Barcode          string
	ExpectedReturnOn time.Time
	// 空なら設定のデフォルト宛先に送る
	ActorEmail string
}

// Sender: 通知の送信。失敗はログ対象だがトグル処理には影響しない。
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// MailgunSender: Mailgun REST API 経由のメール送信
type MailgunSender struct {
	mg   *mailgun.MailgunImpl
	from string
	to   string
}

func NewMailgunSender(cfg pdb.MailgunConfig) *MailgunSender {
	return &MailgunSender{
		mg:   mailgun.NewMailgun(cfg.Domain, cfg.APIKey),
		from: cfg.From,
		to:   cfg.To,
	}
}

func (s *MailgunSender) Send(ctx context.Context, n Notification) error {
	to := s.to
	if n.ActorEmail != "" {
		to = n.ActorEmail
	}

	subject := fmt.Sprintf("Item %s is still checked out!", n.Barcode)
	body := fmt.Sprintf(
		"Item with barcode %s was expected to be returned on %s, but is still checked out.",
		n.Barcode, n.ExpectedReturnOn.Format("2006-01-02"),
	)

	msg := s.mg.NewMessage(s.from, subject, body, to)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, _, err := s.mg.Send(ctx, msg)
	return err
}
