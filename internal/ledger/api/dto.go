package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/finplan/backend/internal/ledger/amortization"
	"github.com/finplan/backend/internal/ledger/domain"
	"github.com/finplan/backend/internal/ledger/schedule"
	"github.com/finplan/backend/internal/ledger/service"
)

// 请求中的日期统一为 YYYY-MM-DD，金额为最小货币单位 (整数)

// TransactionReq 创建 / 修改交易
type TransactionReq struct {
	TransactionDate          string  `json:"transaction_date" binding:"required"`
	Direction                string  `json:"direction" binding:"required,oneof=INCOME EXPENSE TRANSFER"`
	TransactionType          string  `json:"transaction_type" binding:"omitempty,oneof=ACTUAL PLANNED"`
	Status                   string  `json:"status" binding:"omitempty,oneof=CONFIRMED UNCONFIRMED REALIZED"`
	PrimaryItemID            int64   `json:"primary_item_id" binding:"required"`
	CounterpartyItemID       *int64  `json:"counterparty_item_id"`
	Amount                   int64   `json:"amount" binding:"min=0"`
	AmountCounterparty       *int64  `json:"amount_counterparty"`
	PrimaryQuantityLots      *int64  `json:"primary_quantity_lots"`
	CounterpartyQuantityLots *int64  `json:"counterparty_quantity_lots"`
	CategoryID               *int64  `json:"category_id"`
	CounterpartyID           *int64  `json:"counterparty_id"`
	Description              *string `json:"description"`
	Comment                  *string `json:"comment"`
}

func (r TransactionReq) toInput() (service.TransactionInput, error) {
	date, err := parseDate("transaction_date", r.TransactionDate)
	if err != nil {
		return service.TransactionInput{}, err
	}
	return service.TransactionInput{
		TransactionDate:          date,
		Direction:                domain.Direction(r.Direction),
		TransactionType:          domain.TransactionType(r.TransactionType),
		Status:                   domain.TransactionStatus(r.Status),
		PrimaryItemID:            r.PrimaryItemID,
		CounterpartyItemID:       r.CounterpartyItemID,
		Amount:                   r.Amount,
		AmountCounterparty:       r.AmountCounterparty,
		PrimaryQuantityLots:      r.PrimaryQuantityLots,
		CounterpartyQuantityLots: r.CounterpartyQuantityLots,
		CategoryID:               r.CategoryID,
		CounterpartyID:           r.CounterpartyID,
		Description:              r.Description,
		Comment:                  r.Comment,
	}, nil
}

type StatusReq struct {
	Status string `json:"status" binding:"required,oneof=CONFIRMED UNCONFIRMED REALIZED"`
}

type RealizeReq struct {
	TransactionDate    string `json:"transaction_date"`
	Amount             *int64 `json:"amount"`
	AmountCounterparty *int64 `json:"amount_counterparty"`
}

func (r RealizeReq) toInput() (service.RealizeInput, error) {
	in := service.RealizeInput{Amount: r.Amount, AmountCounterparty: r.AmountCounterparty}
	if r.TransactionDate != "" {
		date, err := parseDate("transaction_date", r.TransactionDate)
		if err != nil {
			return in, err
		}
		in.TransactionDate = &date
	}
	return in, nil
}

type TransactionResp struct {
	ID                       int64   `json:"id"`
	TransactionDate          string  `json:"transaction_date"`
	Direction                string  `json:"direction"`
	TransactionType          string  `json:"transaction_type"`
	Status                   string  `json:"status"`
	Source                   string  `json:"source"`
	PrimaryItemID            int64   `json:"primary_item_id"`
	PrimaryCardItemID        *int64  `json:"primary_card_item_id,omitempty"`
	CounterpartyItemID       *int64  `json:"counterparty_item_id,omitempty"`
	CounterpartyCardItemID   *int64  `json:"counterparty_card_item_id,omitempty"`
	Amount                   int64   `json:"amount"`
	AmountCounterparty       *int64  `json:"amount_counterparty,omitempty"`
	PrimaryQuantityLots      *int64  `json:"primary_quantity_lots,omitempty"`
	CounterpartyQuantityLots *int64  `json:"counterparty_quantity_lots,omitempty"`
	ChainID                  *int64  `json:"chain_id,omitempty"`
	LinkedItemID             *int64  `json:"linked_item_id,omitempty"`
	CategoryID               *int64  `json:"category_id,omitempty"`
	CounterpartyID           *int64  `json:"counterparty_id,omitempty"`
	Description              *string `json:"description,omitempty"`
	Comment                  *string `json:"comment,omitempty"`
	Deleted                  bool    `json:"deleted"`
}

func toTransactionResp(t *domain.Transaction) TransactionResp {
	return TransactionResp{
		ID:                       t.ID,
		TransactionDate:          t.TransactionDate.Format(domain.DateLayout),
		Direction:                string(t.Direction),
		TransactionType:          string(t.TransactionType),
		Status:                   string(t.Status),
		Source:                   string(t.Source),
		PrimaryItemID:            t.PrimaryItemID,
		PrimaryCardItemID:        t.PrimaryCardItemID,
		CounterpartyItemID:       t.CounterpartyItemID,
		CounterpartyCardItemID:   t.CounterpartyCardItemID,
		Amount:                   t.Amount,
		AmountCounterparty:       t.AmountCounterparty,
		PrimaryQuantityLots:      t.PrimaryQuantityLots,
		CounterpartyQuantityLots: t.CounterpartyQuantityLots,
		ChainID:                  t.ChainID,
		LinkedItemID:             t.LinkedItemID,
		CategoryID:               t.CategoryID,
		CounterpartyID:           t.CounterpartyID,
		Description:              t.Description,
		Comment:                  t.Comment,
		Deleted:                  t.DeletedAt.Valid,
	}
}

type TransactionPageResp struct {
	Items      []TransactionResp `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
	HasMore    bool              `json:"has_more"`
}

// ---------------------------------------------------------

// PlanSettingsReq 计划设置
type PlanSettingsReq struct {
	Enabled               bool    `json:"enabled"`
	FirstPayoutRule       *string `json:"first_payout_rule" binding:"omitempty,oneof=OPEN_DATE MONTH_END SHIFT_ONE_MONTH"`
	PlanEndDate           *string `json:"plan_end_date"`
	LoanEndDate           *string `json:"loan_end_date"`
	RepaymentFrequency    *string `json:"repayment_frequency" binding:"omitempty,oneof=DAILY WEEKLY MONTHLY REGULAR"`
	RepaymentWeeklyDay    *int    `json:"repayment_weekly_day" binding:"omitempty,min=0,max=6"`
	RepaymentMonthlyDay   *int    `json:"repayment_monthly_day" binding:"omitempty,min=1,max=31"`
	RepaymentMonthlyRule  *string `json:"repayment_monthly_rule" binding:"omitempty,oneof=FIRST_DAY LAST_DAY"`
	RepaymentIntervalDays *int    `json:"repayment_interval_days" binding:"omitempty,min=1"`
	RepaymentAccountID    *int64  `json:"repayment_account_id"`
	RepaymentType         *string `json:"repayment_type" binding:"omitempty,oneof=ANNUITY DIFFERENTIATED"`
	PaymentAmountKind     *string `json:"payment_amount_kind" binding:"omitempty,oneof=TOTAL PRINCIPAL"`
	PaymentAmount         *int64  `json:"payment_amount" binding:"omitempty,min=1"`
}

func (r PlanSettingsReq) toSettings() (domain.ItemPlanSettings, error) {
	planEnd, err := parseOptionalDate("plan_end_date", r.PlanEndDate)
	if err != nil {
		return domain.ItemPlanSettings{}, err
	}
	loanEnd, err := parseOptionalDate("loan_end_date", r.LoanEndDate)
	if err != nil {
		return domain.ItemPlanSettings{}, err
	}
	return domain.ItemPlanSettings{
		Enabled:               r.Enabled,
		FirstPayoutRule:       enumPtr[domain.FirstPayoutRule](r.FirstPayoutRule),
		PlanEndDate:           planEnd,
		LoanEndDate:           loanEnd,
		RepaymentFrequency:    enumPtr[domain.Frequency](r.RepaymentFrequency),
		RepaymentWeeklyDay:    r.RepaymentWeeklyDay,
		RepaymentMonthlyDay:   r.RepaymentMonthlyDay,
		RepaymentMonthlyRule:  enumPtr[domain.MonthlyRule](r.RepaymentMonthlyRule),
		RepaymentIntervalDays: r.RepaymentIntervalDays,
		RepaymentAccountID:    r.RepaymentAccountID,
		RepaymentType:         enumPtr[domain.RepaymentType](r.RepaymentType),
		PaymentAmountKind:     enumPtr[domain.PaymentAmountKind](r.PaymentAmountKind),
		PaymentAmount:         r.PaymentAmount,
	}, nil
}

type PlanSettingsResp struct {
	Enabled               bool    `json:"enabled"`
	FirstPayoutRule       *string `json:"first_payout_rule,omitempty"`
	PlanEndDate           *string `json:"plan_end_date,omitempty"`
	LoanEndDate           *string `json:"loan_end_date,omitempty"`
	RepaymentFrequency    *string `json:"repayment_frequency,omitempty"`
	RepaymentWeeklyDay    *int    `json:"repayment_weekly_day,omitempty"`
	RepaymentMonthlyDay   *int    `json:"repayment_monthly_day,omitempty"`
	RepaymentMonthlyRule  *string `json:"repayment_monthly_rule,omitempty"`
	RepaymentIntervalDays *int    `json:"repayment_interval_days,omitempty"`
	RepaymentAccountID    *int64  `json:"repayment_account_id,omitempty"`
	RepaymentType         *string `json:"repayment_type,omitempty"`
	PaymentAmountKind     *string `json:"payment_amount_kind,omitempty"`
	PaymentAmount         *int64  `json:"payment_amount,omitempty"`
}

func toPlanSettingsResp(s *domain.ItemPlanSettings) *PlanSettingsResp {
	if s == nil {
		return nil
	}
	return &PlanSettingsResp{
		Enabled:               s.Enabled,
		FirstPayoutRule:       enumString(s.FirstPayoutRule),
		PlanEndDate:           formatOptionalDate(s.PlanEndDate),
		LoanEndDate:           formatOptionalDate(s.LoanEndDate),
		RepaymentFrequency:    enumString(s.RepaymentFrequency),
		RepaymentWeeklyDay:    s.RepaymentWeeklyDay,
		RepaymentMonthlyDay:   s.RepaymentMonthlyDay,
		RepaymentMonthlyRule:  enumString(s.RepaymentMonthlyRule),
		RepaymentIntervalDays: s.RepaymentIntervalDays,
		RepaymentAccountID:    s.RepaymentAccountID,
		RepaymentType:         enumString(s.RepaymentType),
		PaymentAmountKind:     enumString(s.PaymentAmountKind),
		PaymentAmount:         s.PaymentAmount,
	}
}

// ItemReq 创建 / 修改资产
type ItemReq struct {
	Kind                      string           `json:"kind" binding:"omitempty,oneof=ASSET LIABILITY"`
	TypeCode                  string           `json:"type_code"`
	Name                      string           `json:"name" binding:"required"`
	CurrencyCode              string           `json:"currency_code"`
	CardKind                  *string          `json:"card_kind" binding:"omitempty,oneof=DEBIT CREDIT"`
	CreditLimit               *int64           `json:"credit_limit"`
	CardAccountID             *int64           `json:"card_account_id"`
	InstrumentID              *string          `json:"instrument_id"`
	LotSize                   *int64           `json:"lot_size"`
	InterestRate              *string          `json:"interest_rate"`
	InterestPayoutOrder       *string          `json:"interest_payout_order" binding:"omitempty,oneof=MONTHLY END_OF_TERM"`
	InterestCapitalization    bool             `json:"interest_capitalization"`
	InterestPayoutAccountID   *int64           `json:"interest_payout_account_id"`
	DepositEndDate            *string          `json:"deposit_end_date"`
	InitialValue              int64            `json:"initial_value"`
	InitialLots               *int64           `json:"initial_lots"`
	OpenDate                  string           `json:"open_date" binding:"required"`
	HistoryStatus             string           `json:"history_status" binding:"omitempty,oneof=NEW HISTORICAL"`
	OpeningCounterpartyItemID *int64           `json:"opening_counterparty_item_id"`
	Commission                *int64           `json:"commission"`
	CommissionPaymentItemID   *int64           `json:"commission_payment_item_id"`
	Plan                      *PlanSettingsReq `json:"plan"`
}

func (r ItemReq) toInput() (service.ItemInput, error) {
	openDate, err := parseDate("open_date", r.OpenDate)
	if err != nil {
		return service.ItemInput{}, err
	}
	depositEnd, err := parseOptionalDate("deposit_end_date", r.DepositEndDate)
	if err != nil {
		return service.ItemInput{}, err
	}
	var rate decimal.NullDecimal
	if r.InterestRate != nil && *r.InterestRate != "" {
		d, err := decimal.NewFromString(*r.InterestRate)
		if err != nil {
			return service.ItemInput{}, domain.Invalid("interest_rate", "must be a decimal number")
		}
		rate = decimal.NewNullDecimal(d)
	}

	in := service.ItemInput{
		Kind:                      domain.ItemKind(r.Kind),
		TypeCode:                  r.TypeCode,
		Name:                      r.Name,
		CurrencyCode:              r.CurrencyCode,
		CardKind:                  enumPtr[domain.CardKind](r.CardKind),
		CreditLimit:               r.CreditLimit,
		CardAccountID:             r.CardAccountID,
		InstrumentID:              r.InstrumentID,
		LotSize:                   r.LotSize,
		InterestRate:              rate,
		InterestPayoutOrder:       enumPtr[domain.InterestPayoutOrder](r.InterestPayoutOrder),
		InterestCapitalization:    r.InterestCapitalization,
		InterestPayoutAccountID:   r.InterestPayoutAccountID,
		DepositEndDate:            depositEnd,
		InitialValue:              r.InitialValue,
		InitialLots:               r.InitialLots,
		OpenDate:                  openDate,
		HistoryStatus:             domain.HistoryStatus(r.HistoryStatus),
		OpeningCounterpartyItemID: r.OpeningCounterpartyItemID,
		Commission:                r.Commission,
		CommissionPaymentItemID:   r.CommissionPaymentItemID,
	}
	if r.Plan != nil {
		settings, err := r.Plan.toSettings()
		if err != nil {
			return service.ItemInput{}, err
		}
		in.Plan = &settings
	}
	return in, nil
}

type ItemResp struct {
	ID                      int64   `json:"id"`
	Kind                    string  `json:"kind"`
	TypeCode                string  `json:"type_code"`
	Name                    string  `json:"name"`
	CurrencyCode            string  `json:"currency_code"`
	CardKind                *string `json:"card_kind,omitempty"`
	CreditLimit             *int64  `json:"credit_limit,omitempty"`
	CardAccountID           *int64  `json:"card_account_id,omitempty"`
	InstrumentID            *string `json:"instrument_id,omitempty"`
	PositionLots            *int64  `json:"position_lots,omitempty"`
	InterestRate            *string `json:"interest_rate,omitempty"`
	InterestPayoutOrder     *string `json:"interest_payout_order,omitempty"`
	InterestCapitalization  bool    `json:"interest_capitalization"`
	InterestPayoutAccountID *int64  `json:"interest_payout_account_id,omitempty"`
	DepositEndDate          *string `json:"deposit_end_date,omitempty"`
	InitialValue            int64   `json:"initial_value"`
	CurrentValue            int64   `json:"current_value"`
	CurrentValueDisplay     string  `json:"current_value_display"`
	OpenDate                string  `json:"open_date"`
	HistoryStatus           string  `json:"history_status"`
	Closed                  bool    `json:"closed"`
	Archived                bool    `json:"archived"`
}

func toItemResp(i *domain.Item) ItemResp {
	resp := ItemResp{
		ID:                      i.ID,
		Kind:                    string(i.Kind),
		TypeCode:                i.TypeCode,
		Name:                    i.Name,
		CurrencyCode:            i.CurrencyCode,
		CardKind:                enumString(i.CardKind),
		CreditLimit:             i.CreditLimit,
		CardAccountID:           i.CardAccountID,
		InstrumentID:            i.InstrumentID,
		PositionLots:            i.PositionLots,
		InterestPayoutOrder:     enumString(i.InterestPayoutOrder),
		InterestCapitalization:  i.InterestCapitalization,
		InterestPayoutAccountID: i.InterestPayoutAccountID,
		DepositEndDate:          formatOptionalDate(i.DepositEndDate),
		InitialValue:            i.InitialValue,
		CurrentValue:            i.CurrentValue,
		CurrentValueDisplay:     domain.FormatAmount(i.CurrentValue, i.CurrencyCode),
		OpenDate:                i.OpenDate.Format(domain.DateLayout),
		HistoryStatus:           string(i.HistoryStatus),
		Closed:                  i.ClosedAt != nil,
		Archived:                i.ArchivedAt != nil,
	}
	if i.InterestRate.Valid {
		rate := i.InterestRate.Decimal.String()
		resp.InterestRate = &rate
	}
	return resp
}

type CloseItemReq struct {
	Date             string  `json:"date"`
	TransferToItemID *int64  `json:"transfer_item_id"`
	WriteOff         bool    `json:"write_off"`
	Comment          *string `json:"comment"`
}

func (r CloseItemReq) toInput() (service.CloseInput, error) {
	in := service.CloseInput{TransferToItemID: r.TransferToItemID, WriteOff: r.WriteOff, Comment: r.Comment}
	if r.Date != "" {
		date, err := parseDate("date", r.Date)
		if err != nil {
			return in, err
		}
		in.Date = &date
	}
	return in, nil
}

// ---------------------------------------------------------

// RuleReq 重复规则
type RuleReq struct {
	Frequency    string  `json:"frequency" binding:"required,oneof=DAILY WEEKLY MONTHLY REGULAR"`
	WeeklyDay    *int    `json:"weekly_day" binding:"omitempty,min=0,max=6"`
	MonthlyDay   *int    `json:"monthly_day" binding:"omitempty,min=1,max=31"`
	MonthlyRule  *string `json:"monthly_rule" binding:"omitempty,oneof=FIRST_DAY LAST_DAY"`
	IntervalDays *int    `json:"interval_days" binding:"omitempty,min=1"`
}

func (r RuleReq) toRule() schedule.Rule {
	return schedule.Rule{
		Frequency:    domain.Frequency(r.Frequency),
		WeeklyDay:    r.WeeklyDay,
		MonthlyDay:   r.MonthlyDay,
		MonthlyRule:  enumPtr[domain.MonthlyRule](r.MonthlyRule),
		IntervalDays: r.IntervalDays,
	}
}

type ChainReq struct {
	Name               string  `json:"name" binding:"required"`
	StartDate          string  `json:"start_date" binding:"required"`
	EndDate            string  `json:"end_date" binding:"required"`
	Rule               RuleReq `json:"rule"`
	Direction          string  `json:"direction" binding:"required,oneof=INCOME EXPENSE TRANSFER"`
	PrimaryItemID      int64   `json:"primary_item_id" binding:"required"`
	CounterpartyItemID *int64  `json:"counterparty_item_id"`
	Amount             int64   `json:"amount" binding:"min=0"`
	AmountCounterparty *int64  `json:"amount_counterparty"`
	AmountIsVariable   bool    `json:"amount_is_variable"`
	AmountMin          *int64  `json:"amount_min"`
	AmountMax          *int64  `json:"amount_max"`
	CategoryID         *int64  `json:"category_id"`
	CounterpartyID     *int64  `json:"counterparty_id"`
	Description        *string `json:"description"`
	Comment            *string `json:"comment"`
}

func (r ChainReq) toInput() (service.ChainInput, error) {
	start, err := parseDate("start_date", r.StartDate)
	if err != nil {
		return service.ChainInput{}, err
	}
	end, err := parseDate("end_date", r.EndDate)
	if err != nil {
		return service.ChainInput{}, err
	}
	return service.ChainInput{
		Name:               r.Name,
		StartDate:          start,
		EndDate:            end,
		Rule:               r.Rule.toRule(),
		Direction:          domain.Direction(r.Direction),
		PrimaryItemID:      r.PrimaryItemID,
		CounterpartyItemID: r.CounterpartyItemID,
		Amount:             r.Amount,
		AmountCounterparty: r.AmountCounterparty,
		AmountIsVariable:   r.AmountIsVariable,
		AmountMin:          r.AmountMin,
		AmountMax:          r.AmountMax,
		CategoryID:         r.CategoryID,
		CounterpartyID:     r.CounterpartyID,
		Description:        r.Description,
		Comment:            r.Comment,
	}, nil
}

type ChainResp struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	StartDate          string `json:"start_date"`
	EndDate            string `json:"end_date"`
	Frequency          string `json:"frequency"`
	Direction          string `json:"direction"`
	PrimaryItemID      int64  `json:"primary_item_id"`
	CounterpartyItemID *int64 `json:"counterparty_item_id,omitempty"`
	Amount             int64  `json:"amount"`
	AmountIsVariable   bool   `json:"amount_is_variable"`
	AmountMin          *int64 `json:"amount_min,omitempty"`
	AmountMax          *int64 `json:"amount_max,omitempty"`
	Source             string `json:"source"`
	Purpose            string `json:"purpose,omitempty"`
	LinkedItemID       *int64 `json:"linked_item_id,omitempty"`
	CategoryID         *int64 `json:"category_id,omitempty"`
	Deleted            bool   `json:"deleted"`
}

func toChainResp(c *domain.TransactionChain) ChainResp {
	return ChainResp{
		ID:                 c.ID,
		Name:               c.Name,
		StartDate:          c.StartDate.Format(domain.DateLayout),
		EndDate:            c.EndDate.Format(domain.DateLayout),
		Frequency:          string(c.Frequency),
		Direction:          string(c.Direction),
		PrimaryItemID:      c.PrimaryItemID,
		CounterpartyItemID: c.CounterpartyItemID,
		Amount:             c.Amount,
		AmountIsVariable:   c.AmountIsVariable,
		AmountMin:          c.AmountMin,
		AmountMax:          c.AmountMax,
		Source:             string(c.Source),
		Purpose:            string(c.Purpose),
		LinkedItemID:       c.LinkedItemID,
		CategoryID:         c.CategoryID,
		Deleted:            c.DeletedAt.Valid,
	}
}

// ---------------------------------------------------------

// PreviewReq 离线计算计划，不落库
type PreviewReq struct {
	Mode              string   `json:"mode" binding:"required,oneof=interest loan"`
	Kind              string   `json:"kind" binding:"omitempty,oneof=ASSET LIABILITY"`
	Principal         int64    `json:"principal" binding:"min=0"`
	AnnualPercent     string   `json:"annual_percent" binding:"required"`
	OpenDate          string   `json:"open_date" binding:"required"`
	EndDate           string   `json:"end_date" binding:"required"`
	PayoutOrder       string   `json:"payout_order" binding:"omitempty,oneof=MONTHLY END_OF_TERM"`
	FirstPayoutRule   *string  `json:"first_payout_rule" binding:"omitempty,oneof=OPEN_DATE MONTH_END SHIFT_ONE_MONTH"`
	Capitalize        bool     `json:"capitalize"`
	Rule              *RuleReq `json:"rule"`
	RepaymentType     *string  `json:"repayment_type" binding:"omitempty,oneof=ANNUITY DIFFERENTIATED"`
	PaymentAmountKind *string  `json:"payment_amount_kind" binding:"omitempty,oneof=TOTAL PRINCIPAL"`
	PaymentAmount     *int64   `json:"payment_amount"`
	FullRepayment     bool     `json:"full_repayment"`
}

type PayoutResp struct {
	Date      string `json:"date"`
	Interest  int64  `json:"interest"`
	Principal int64  `json:"principal"`
}

type PreviewResp struct {
	Rows           []PayoutResp `json:"rows"`
	TotalInterest  int64        `json:"total_interest"`
	TotalPrincipal int64        `json:"total_principal"`
}

func toPreviewResp(payouts []amortization.Payout) PreviewResp {
	resp := PreviewResp{
		Rows:           make([]PayoutResp, len(payouts)),
		TotalInterest:  amortization.TotalInterest(payouts),
		TotalPrincipal: amortization.TotalPrincipal(payouts),
	}
	for i, p := range payouts {
		resp.Rows[i] = PayoutResp{Date: p.Date.Format(domain.DateLayout), Interest: p.Interest, Principal: p.Principal}
	}
	return resp
}

// ---------------------------------------------------------

func parseDate(field, s string) (time.Time, error) {
	d, err := domain.ParseDate(s)
	if err != nil {
		return time.Time{}, domain.Validation(domain.ReasonInvalidDate, field, "expected YYYY-MM-DD, got %q", s)
	}
	return d, nil
}

func parseOptionalDate(field string, s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := parseDate(field, *s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func formatOptionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(domain.DateLayout)
	return &s
}

func enumPtr[T ~string](s *string) *T {
	if s == nil || *s == "" {
		return nil
	}
	v := T(*s)
	return &v
}

func enumString[T ~string](v *T) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
