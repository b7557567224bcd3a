package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/finplan/backend/internal/ledger/amortization"
	"github.com/finplan/backend/internal/ledger/domain"
	"github.com/finplan/backend/internal/ledger/service"
)

// CreateChain 创建周期交易链并生成全部计划交易
func (h *LedgerHandler) CreateChain(c *gin.Context) {
	var req ChainReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(c, err)
		return
	}

	chain, err := h.chains.CreateChain(c.Request.Context(), ownerID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toChainResp(chain))
}

// DeleteChain 已实现的交易保留
func (h *LedgerHandler) DeleteChain(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.chains.DeleteChain(c.Request.Context(), ownerID(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *LedgerHandler) GetChain(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	chain, err := h.chains.GetChain(c.Request.Context(), ownerID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toChainResp(chain))
}

func (h *LedgerHandler) ListChains(c *gin.Context) {
	chains, err := h.chains.ListChains(c.Request.Context(), ownerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	resp := make([]ChainResp, len(chains))
	for i := range chains {
		resp[i] = toChainResp(&chains[i])
	}
	c.JSON(http.StatusOK, resp)
}

// PreviewPlan 只计算不落库
// POST /api/v1/plans/preview
func (h *LedgerHandler) PreviewPlan(c *gin.Context) {
	var req PreviewReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	payouts, err := preview(req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPreviewResp(payouts))
}

func preview(req PreviewReq) ([]amortization.Payout, error) {
	rate, err := decimal.NewFromString(req.AnnualPercent)
	if err != nil {
		return nil, domain.Invalid("annual_percent", "must be a decimal number")
	}
	open, err := parseDate("open_date", req.OpenDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		return nil, err
	}

	if req.Mode == "interest" {
		_, payouts, err := service.InterestPlan(service.InterestPlanParams{
			Principal:     req.Principal,
			AnnualPercent: rate,
			OpenDate:      open,
			EndDate:       end,
			PayoutOrder:   domain.InterestPayoutOrder(req.PayoutOrder),
			FirstPayout:   enumPtr[domain.FirstPayoutRule](req.FirstPayoutRule),
			Capitalize:    req.Capitalize,
		})
		return payouts, err
	}

	if req.Rule == nil {
		return nil, domain.MissingField("rule")
	}
	kind := domain.ItemKind(req.Kind)
	if kind == "" {
		kind = domain.Liability
	}
	_, payouts, err := service.LoanPlan(service.LoanPlanParams{
		Kind:              kind,
		Principal:         req.Principal,
		AnnualPercent:     rate,
		OpenDate:          open,
		EndDate:           end,
		FullRepayment:     req.FullRepayment,
		Rule:              req.Rule.toRule(),
		FirstPayout:       enumPtr[domain.FirstPayoutRule](req.FirstPayoutRule),
		RepaymentType:     enumPtr[domain.RepaymentType](req.RepaymentType),
		PaymentAmountKind: enumPtr[domain.PaymentAmountKind](req.PaymentAmountKind),
		PaymentAmount:     req.PaymentAmount,
	})
	return payouts, err
}
