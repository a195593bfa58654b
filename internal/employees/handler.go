package employees

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// GET /employees (操作者選択プロンプト用。有効な従業員のみ)
	r.GET("/employees", h.ListEmployees)
}

func (h *Handler) ListEmployees(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "INTERNAL", "message": err.Error()}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"employees": list})
}
