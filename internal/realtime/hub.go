package realtime

import "sync"

// イベント種別
const (
	EventInventoryUpdated     = "inventoryUpdated"
	EventBarcodeAwaitingActor = "barcodeAwaitingActor"
)

// Event: 接続中クライアントへ配信する1イベント
// inventoryUpdated は Items に全在庫スナップショット、
// barcodeAwaitingActor は Barcode のみを持つ。
type Event struct {
	Type    string `json:"type"`
	Items   any    `json:"items,omitempty"`
	Barcode string `json:"barcode,omitempty"`
}

func InventoryUpdated(items any) Event {
	return Event{Type: EventInventoryUpdated, Items: items}
}

func BarcodeAwaitingActor(barcode string) Event {
	return Event{Type: EventBarcodeAwaitingActor, Barcode: barcode}
}

// 購読チャネルのバッファ。溢れた購読者へのイベントは破棄する。
const subscriberBuffer = 16

// Hub: 購読者レジストリ。台帳側のロックとは独立に同期するため、
// 遅いクライアントがバーコード処理を止めることはない。
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan Event]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe: 新しい購読チャネルを登録して返す
func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch
	}
	h.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe: 登録解除。チャネルはクローズされる。
func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; !ok {
		return
	}
	delete(h.subs, ch)
	close(ch)
}

// Publish: 全購読者へ配信する。ベストエフォート配信で、
// バッファが詰まっている購読者へは送らずに先へ進む。
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			// 受信が追いつかない購読者は捨てる
		}
	}
}

// Close: 全購読チャネルをクローズし、以後の Subscribe/Publish を無効化する
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		close(ch)
	}
	h.subs = map[chan Event]struct{}{}
}

// SubscriberCount: 現在の購読者数（テスト・監視用）
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
