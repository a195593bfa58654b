package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubFanOut(t *testing.T) {
	h := NewHub()
	defer h.Close()

	a := h.Subscribe()
	b := h.Subscribe()
	require.Equal(t, 2, h.SubscriberCount())

	h.Publish(BarcodeAwaitingActor("abc"))

	for _, ch := range []chan Event{a, b} {
		ev := <-ch
		assert.Equal(t, EventBarcodeAwaitingActor, ev.Type)
		assert.Equal(t, "abc", ev.Barcode)
	}
}

func TestHubSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	h := NewHub()
	defer h.Close()

	slow := h.Subscribe()
	fast := h.Subscribe()

	// slow のバッファを溢れさせてもPublishはブロックしない
	for i := 0; i < subscriberBuffer*3; i++ {
		h.Publish(InventoryUpdated(nil))
	}

	assert.Len(t, slow, subscriberBuffer)
	assert.Len(t, fast, subscriberBuffer)
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()
	defer h.Close()

	ch := h.Subscribe()
	h.Unsubscribe(ch)

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, h.SubscriberCount())

	// 二重解除は何もしない
	h.Unsubscribe(ch)

	// 解除後のPublishはパニックしない
	h.Publish(BarcodeAwaitingActor("x"))
}

func TestHubCloseStopsEverything(t *testing.T) {
	h := NewHub()

	ch := h.Subscribe()
	h.Close()

	_, ok := <-ch
	assert.False(t, ok)

	// クローズ後の Subscribe は閉じたチャネルを返す
	ch2 := h.Subscribe()
	_, ok = <-ch2
	assert.False(t, ok)

	h.Publish(BarcodeAwaitingActor("x")) // no-op
}
