package checkout

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// GET /items (在庫スナップショット。ポーリングクライアント用)
	r.GET("/items", h.ListItems)

	// POST /scans (操作者確定済みトグル。スキャン→確認の二段階フローの確定側)
	r.POST("/scans", h.CreateScan)

	// GET /items/:barcode/logs (遷移履歴)
	r.GET("/items/:barcode/logs", h.ListItemLogs)
}

// ---------- handlers ----------

func (h *Handler) ListItems(c *gin.Context) {
	items, err := h.svc.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) CreateScan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}

	in := ScanInput{
		Barcode:     req.Barcode,
		Actor:       req.Actor,
		Description: req.Description,
	}
	if req.ExpectedReturnDate != nil && *req.ExpectedReturnDate != "" {
		parsed, err := time.Parse("2006-01-02", *req.ExpectedReturnDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid expected_return_date format, expected YYYY-MM-DD"))
			return
		}
		in.ExpectedReturnOn = &parsed
	}

	res, err := h.svc.ApplyScan(c.Request.Context(), in)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}

	// actor必須でbindしているので NeedsActor にはならない
	resp := ScanResponse{
		Barcode:  res.Item.Barcode,
		Status:   res.Item.Status,
		Action:   res.Entry.Action,
		Actor:    res.Entry.Actor,
		LogULID:  res.Entry.LogULID,
		LoggedAt: res.Entry.LoggedAt,
		Created:  res.Created,
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	c.JSON(status, resp)
}

func (h *Handler) ListItemLogs(c *gin.Context) {
	limit := parseIntDefault(c.Query("limit"), 50)
	logs, err := h.svc.History(c.Request.Context(), c.Param("barcode"), limit)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// ---------- helpers ----------

func parseIntDefault(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

type errorDTO struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func errorBody(code Code, msg string) errorDTO {
	var e errorDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

func errorFromErr(err error) errorDTO {
	var msg string
	var code Code = CodeInternal
	if api, ok := err.(*APIError); ok {
		code, msg = api.Code, api.Message
	} else {
		msg = err.Error()
	}
	return errorBody(code, msg)
}
