package scanner

import (
	"context"
	"log"

	"LECS-backend/internal/checkout"
	"LECS-backend/internal/realtime"
)

// Applier: 完成したバーコードの適用先（checkout.Service）
type Applier interface {
	ApplyScan(ctx context.Context, in checkout.ScanInput) (*checkout.ScanResult, error)
}

// Publisher: 操作者待ちイベントの配信先（realtime.Hub）
type Publisher interface {
	Publish(ev realtime.Event)
}

// Loop: スキャナ読み取りループ。プロセスの寿命の間、Source から
// キーイベントを読んで Decoder に流し、完成したバーコードごとに
// ApplyScan を呼ぶ。読み取りエラーで終了する（死んだスキャナに
// 対してビジーループしない）。再起動は上位（スーパーバイザ）の責務。
type Loop struct {
	src Source
	svc Applier
	hub Publisher
	dec *Decoder
}

func NewLoop(src Source, svc Applier, hub Publisher) *Loop {
	return &Loop{src: src, svc: svc, hub: hub, dec: NewDecoder()}
}

// Run: ctx キャンセル時は Source が Close され、読み取りエラー経由で
// 抜けてくる（ReadKey 自体はキャンセルを見ない）。
func (l *Loop) Run(ctx context.Context) error {
	for {
		ev, err := l.src.ReadKey()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[ERROR] scanner read: %v", err)
			return err
		}

		code, ok := l.dec.Feed(ev)
		if !ok {
			continue
		}
		l.handleBarcode(ctx, code)
	}
}

// handleBarcode: 1スキャンの適用。バリデーションエラー等で
// ループは止めない（1回の不正イベントでプロセスを殺さない）。
func (l *Loop) handleBarcode(ctx context.Context, code string) {
	res, err := l.svc.ApplyScan(ctx, checkout.ScanInput{Barcode: code})
	if err != nil {
		log.Printf("[WARN] scan %q rejected: %v", code, err)
		return
	}

	if res.NeedsActor {
		// 既存アイテム＋操作者なし。Webクライアントに確認を促す。
		log.Printf("[INFO] barcode %s awaiting actor", res.Item.Barcode)
		if l.hub != nil {
			l.hub.Publish(realtime.BarcodeAwaitingActor(res.Item.Barcode))
		}
		return
	}

	log.Printf("[INFO] barcode %s -> %s", res.Item.Barcode, res.Item.Status)
}
