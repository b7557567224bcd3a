package service

import "github.com/finplan/backend/internal/ledger/domain"

// CategoryNames 自动生成的交易使用的默认分类名
type CategoryNames struct {
	OtherIncome         string
	OtherExpense        string
	DepositInterest     string
	SavingsInterest     string
	LoanInterestIncome  string
	LoanInterestExpense string
	Commission          string
}

func DefaultCategoryNames() CategoryNames {
	return CategoryNames{
		OtherIncome:         "Other income",
		OtherExpense:        "Other expenses",
		DepositInterest:     "Deposit interest",
		SavingsInterest:     "Savings account interest",
		LoanInterestIncome:  "Interest on loans given",
		LoanInterestExpense: "Scheduled loan interest",
		Commission:          "Brokerage commissions",
	}
}

// WithDefaults 未配置的名称回落到默认值
func (c CategoryNames) WithDefaults() CategoryNames {
	d := DefaultCategoryNames()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&c.OtherIncome, d.OtherIncome)
	fill(&c.OtherExpense, d.OtherExpense)
	fill(&c.DepositInterest, d.DepositInterest)
	fill(&c.SavingsInterest, d.SavingsInterest)
	fill(&c.LoanInterestIncome, d.LoanInterestIncome)
	fill(&c.LoanInterestExpense, d.LoanInterestExpense)
	fill(&c.Commission, d.Commission)
	return c
}

// Scopes 每个默认分类适用的方向，用于初始化全局分类
func (c CategoryNames) Scopes() map[string]domain.CategoryScope {
	c = c.WithDefaults()
	return map[string]domain.CategoryScope{
		c.OtherIncome:         domain.ScopeIncome,
		c.OtherExpense:        domain.ScopeExpense,
		c.DepositInterest:     domain.ScopeIncome,
		c.SavingsInterest:     domain.ScopeIncome,
		c.LoanInterestIncome:  domain.ScopeIncome,
		c.LoanInterestExpense: domain.ScopeExpense,
		c.Commission:          domain.ScopeExpense,
	}
}
