package domain

import (
	"fmt"
	"strings"
	"time"
)

// PlanSignature 汇总影响计划生成的全部字段；无计划时返回空串
func PlanSignature(item *Item, settings *ItemPlanSettings) string {
	if item == nil || settings == nil || !settings.Enabled {
		return ""
	}
	switch {
	case IsInterestType(item.TypeCode):
		return joinSignature(
			"INTEREST",
			item.TypeCode,
			item.CurrencyCode,
			item.InitialValue,
			item.OpenDate,
			item.DepositEndDate,
			rateString(item),
			item.InterestPayoutOrder,
			item.InterestCapitalization,
			item.InterestPayoutAccountID,
			settings.FirstPayoutRule,
			settings.PlanEndDate,
		)
	case IsLoanType(item.TypeCode):
		return joinSignature(
			"LOAN",
			item.TypeCode,
			item.Kind,
			item.CurrencyCode,
			item.InitialValue,
			item.OpenDate,
			rateString(item),
			settings.LoanEndDate,
			settings.PlanEndDate,
			settings.FirstPayoutRule,
			settings.RepaymentFrequency,
			settings.RepaymentWeeklyDay,
			settings.RepaymentMonthlyDay,
			settings.RepaymentMonthlyRule,
			settings.RepaymentIntervalDays,
			settings.RepaymentAccountID,
			settings.RepaymentType,
			settings.PaymentAmountKind,
			settings.PaymentAmount,
		)
	}
	return ""
}

// OpeningSignature 影响开户交易的字段
func OpeningSignature(item *Item, settings *ItemPlanSettings) string {
	var planEnd, loanEnd *time.Time
	if settings != nil {
		planEnd, loanEnd = settings.PlanEndDate, settings.LoanEndDate
	}
	return joinSignature(
		item.HistoryStatus,
		item.InitialValue,
		item.InitialLots,
		item.OpenDate,
		item.OpeningCounterpartyItemID,
		item.DepositEndDate,
		planEnd,
		loanEnd,
	)
}

func rateString(item *Item) string {
	if !item.InterestRate.Valid {
		return ""
	}
	return item.InterestRate.Decimal.String()
}

func joinSignature(parts ...any) string {
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = signaturePart(p)
	}
	return strings.Join(out, "|")
}

func signaturePart(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		return x.Format(DateLayout)
	case *time.Time:
		if x == nil {
			return ""
		}
		return x.Format(DateLayout)
	case *int64:
		if x == nil {
			return ""
		}
		return fmt.Sprint(*x)
	case *int:
		if x == nil {
			return ""
		}
		return fmt.Sprint(*x)
	case *InterestPayoutOrder:
		if x == nil {
			return ""
		}
		return string(*x)
	case *FirstPayoutRule:
		if x == nil {
			return ""
		}
		return string(*x)
	case *Frequency:
		if x == nil {
			return ""
		}
		return string(*x)
	case *MonthlyRule:
		if x == nil {
			return ""
		}
		return string(*x)
	case *RepaymentType:
		if x == nil {
			return ""
		}
		return string(*x)
	case *PaymentAmountKind:
		if x == nil {
			return ""
		}
		return string(*x)
	}
	return fmt.Sprint(v)
}
