package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/finplan/backend/internal/ledger/domain"
	"github.com/finplan/backend/internal/ledger/service"
)

// OwnerKey 鉴权中间件写入的当前用户 ID (int64)
const OwnerKey = "owner_id"

type LedgerHandler struct {
	ledger *service.LedgerService
	items  *service.ItemService
	plans  *service.PlanService
	chains *service.ChainService
}

func NewLedgerHandler(
	ledger *service.LedgerService,
	items *service.ItemService,
	plans *service.PlanService,
	chains *service.ChainService,
) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, items: items, plans: plans, chains: chains}
}

// RegisterRoutes 注册路由
func (h *LedgerHandler) RegisterRoutes(r *gin.RouterGroup) {
	items := r.Group("/items")
	{
		items.GET("", h.ListItems)
		items.POST("", h.CreateItem)
		items.GET("/:id", h.GetItem)
		items.PUT("/:id", h.UpdateItem)
		items.POST("/:id/close", h.CloseItem)
		items.POST("/:id/archive", h.ArchiveItem)
		items.GET("/:id/plan", h.GetPlan)
		items.PUT("/:id/plan", h.UpdatePlan)
		items.POST("/:id/plan/rebuild", h.RebuildPlan)
	}

	txs := r.Group("/transactions")
	{
		txs.GET("", h.ListTransactions)
		txs.POST("", h.PostTransaction)
		txs.GET("/:id", h.GetTransaction)
		txs.PUT("/:id", h.UpdateTransaction)
		txs.DELETE("/:id", h.DeleteTransaction)
		txs.PATCH("/:id/status", h.UpdateStatus)
		txs.POST("/:id/realize", h.RealizeTransaction)
	}

	chains := r.Group("/chains")
	{
		chains.GET("", h.ListChains)
		chains.POST("", h.CreateChain)
		chains.GET("/:id", h.GetChain)
		chains.DELETE("/:id", h.DeleteChain)
	}

	r.POST("/plans/preview", h.PreviewPlan)
}

// PostTransaction 记账
// POST /api/v1/transactions
func (h *LedgerHandler) PostTransaction(c *gin.Context) {
	var req TransactionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(c, err)
		return
	}

	t, err := h.ledger.CreateTransaction(c.Request.Context(), ownerID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTransactionResp(t))
}

// UpdateTransaction PUT /api/v1/transactions/:id
func (h *LedgerHandler) UpdateTransaction(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req TransactionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(c, err)
		return
	}

	t, err := h.ledger.UpdateTransaction(c.Request.Context(), ownerID(c), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTransactionResp(t))
}

// DeleteTransaction 软删除，重复删除返回 204
func (h *LedgerHandler) DeleteTransaction(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.ledger.DeleteTransaction(c.Request.Context(), ownerID(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *LedgerHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req StatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	t, err := h.ledger.UpdateStatus(c.Request.Context(), ownerID(c), id, domain.TransactionStatus(req.Status))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTransactionResp(t))
}

// RealizeTransaction 计划交易转为实际交易，body 可为空
func (h *LedgerHandler) RealizeTransaction(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req RealizeReq
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

	t, err := h.ledger.RealizeTransaction(c.Request.Context(), ownerID(c), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTransactionResp(t))
}

func (h *LedgerHandler) GetTransaction(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	t, err := h.ledger.GetTransaction(c.Request.Context(), ownerID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTransactionResp(t))
}

// ListTransactions 游标分页
// GET /api/v1/transactions?limit=50&cursor=2024-01-31|42&item_id=1&item_id=2&direction=EXPENSE
func (h *LedgerHandler) ListTransactions(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		writeError(c, err)
		return
	}

	page, err := h.ledger.ListTransactions(c.Request.Context(), ownerID(c), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := TransactionPageResp{
		Items:      make([]TransactionResp, len(page.Items)),
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}
	for i := range page.Items {
		resp.Items[i] = toTransactionResp(&page.Items[i])
	}
	c.JSON(http.StatusOK, resp)
}

func parseFilter(c *gin.Context) (domain.TransactionFilter, error) {
	var f domain.TransactionFilter
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return f, domain.Invalid("limit", "must be a positive integer")
		}
		f.Limit = n
	}

	cursor, err := service.ParseCursor(c.Query("cursor"))
	if err != nil {
		return f, err
	}
	f.Cursor = cursor

	if raw := c.Query("date_from"); raw != "" {
		d, err := parseDate("date_from", raw)
		if err != nil {
			return f, err
		}
		f.DateFrom = &d
	}
	if raw := c.Query("date_to"); raw != "" {
		d, err := parseDate("date_to", raw)
		if err != nil {
			return f, err
		}
		f.DateTo = &d
	}

	for _, raw := range c.QueryArray("item_id") {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, domain.Invalid("item_id", "must be an integer")
		}
		f.ItemIDs = append(f.ItemIDs, id)
	}
	for _, raw := range c.QueryArray("direction") {
		d := domain.Direction(raw)
		if !d.IsValid() {
			return f, domain.Invalid("direction", "unknown direction %q", raw)
		}
		f.Directions = append(f.Directions, d)
	}
	for _, raw := range c.QueryArray("type") {
		t := domain.TransactionType(raw)
		if !t.IsValid() {
			return f, domain.Invalid("type", "unknown transaction type %q", raw)
		}
		f.Types = append(f.Types, t)
	}
	if raw := c.Query("chain_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, domain.Invalid("chain_id", "must be an integer")
		}
		f.ChainID = &id
	}

	f.IncludeDeleted = c.Query("include_deleted") == "true"
	f.DeletedOnly = c.Query("deleted_only") == "true"
	return f, nil
}

// ownerID 由鉴权中间件保证存在
func ownerID(c *gin.Context) int64 {
	return c.GetInt64(OwnerKey)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, domain.Invalid("id", "must be a positive integer"))
		return 0, false
	}
	return id, true
}
