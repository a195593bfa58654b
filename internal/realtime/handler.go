package realtime

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"
)

// SnapshotFunc: 接続直後に送る初期スナップショットの取得関数
type SnapshotFunc func(ctx context.Context) (any, error)

type Handler struct {
	hub      *Hub
	snapshot SnapshotFunc
}

func RegisterRoutes(r gin.IRoutes, hub *Hub, snapshot SnapshotFunc) {
	h := &Handler{hub: hub, snapshot: snapshot}

	// GET /events (SSE)
	r.GET("/events", h.Events)
}

// Events: Server-Sent Events でイベントをストリーム配信する。
// 接続時に在庫スナップショットを1回送り、以後はHub経由のイベントを流す。
func (h *Handler) Events(c *gin.Context) {
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ch := h.hub.Subscribe()
	defer h.hub.Unsubscribe(ch)

	if h.snapshot != nil {
		items, err := h.snapshot(c.Request.Context())
		if err == nil {
			c.SSEvent("message", InventoryUpdated(items))
			c.Writer.Flush()
		}
	}

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case ev, ok := <-ch:
			if !ok {
				// Hubクローズ（シャットダウン）
				return false
			}
			c.SSEvent("message", ev)
			return true
		}
	})
}
