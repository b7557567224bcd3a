package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CreateItem POST /api/v1/items
func (h *LedgerHandler) CreateItem(c *gin.Context) {
	var req ItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(c, err)
		return
	}

	item, err := h.items.CreateItem(c.Request.Context(), ownerID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toItemResp(item))
}

// UpdateItem 类型、方向和币种不可修改
func (h *LedgerHandler) UpdateItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req ItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(c, err)
		return
	}

	item, err := h.items.UpdateItem(c.Request.Context(), ownerID(c), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toItemResp(item))
}

func (h *LedgerHandler) GetItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	item, err := h.items.GetItem(c.Request.Context(), ownerID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toItemResp(item))
}

// ListItems GET /api/v1/items?include_archived=true
func (h *LedgerHandler) ListItems(c *gin.Context) {
	items, err := h.items.ListItems(c.Request.Context(), ownerID(c), c.Query("include_archived") == "true")
	if err != nil {
		writeError(c, err)
		return
	}
	resp := make([]ItemResp, len(items))
	for i := range items {
		resp[i] = toItemResp(&items[i])
	}
	c.JSON(http.StatusOK, resp)
}

// CloseItem POST /api/v1/items/:id/close
func (h *LedgerHandler) CloseItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req CloseItemReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}
	}
	in, err := req.toInput()
	if err != nil {
		writeError(c, err)
		return
	}

	item, err := h.items.CloseItem(c.Request.Context(), ownerID(c), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toItemResp(item))
}

func (h *LedgerHandler) ArchiveItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	item, err := h.items.ArchiveItem(c.Request.Context(), ownerID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toItemResp(item))
}

// GetPlan 未配置时返回 enabled=false 的空设置
func (h *LedgerHandler) GetPlan(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	settings, err := h.plans.GetSettings(c.Request.Context(), ownerID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if settings == nil {
		c.JSON(http.StatusOK, PlanSettingsResp{})
		return
	}
	c.JSON(http.StatusOK, toPlanSettingsResp(settings))
}

// UpdatePlan 保存设置并按需重建自动交易链
func (h *LedgerHandler) UpdatePlan(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req PlanSettingsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	in, err := req.toSettings()
	if err != nil {
		writeError(c, err)
		return
	}

	settings, err := h.plans.UpdateSettings(c.Request.Context(), ownerID(c), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPlanSettingsResp(settings))
}

// RebuildPlan 强制重建，返回新建的交易链数量
func (h *LedgerHandler) RebuildPlan(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	n, err := h.plans.RebuildPlan(c.Request.Context(), ownerID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chains": n})
}
