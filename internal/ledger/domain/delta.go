package domain

import (
	"fmt"

	"github.com/Rhymond/go-money"
)

// Delta 计算一笔流水对某一侧余额的带符号变化量
// 收入 +, 支出 -，与资产类型无关
// 转账: 资产 转出方 - / 转入方 +，负债取反
func Delta(kind ItemKind, role Role, direction Direction, amount int64) int64 {
	switch direction {
	case Income:
		return amount
	case Expense:
		return -amount
	case Transfer:
		sign := int64(1)
		if role == RolePrimary {
			sign = -1
		}
		if kind == Liability {
			sign = -sign
		}
		return sign * amount
	}
	return 0
}

// OpeningDelta 开户交易的变化量
// 负债开户记为支出 (其他支出分类)，但增加负债余额
func OpeningDelta(kind ItemKind, role Role, direction Direction, amount int64) int64 {
	if kind == Liability && direction == Expense {
		return amount
	}
	return Delta(kind, role, direction, amount)
}

// FormatAmount 按币种格式化最小单位金额，用于错误信息
func FormatAmount(amount int64, currency string) string {
	if money.GetCurrency(currency) == nil {
		return fmt.Sprintf("%d %s", amount, currency)
	}
	return money.New(amount, currency).Display()
}
