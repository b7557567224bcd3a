package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/finplan/backend/internal/ledger/domain"
)

// Side 交易一侧的解析结果
// 绑定了银行账户的卡，余额记在账户上 (Effective)，卡本身记入 Card
type Side struct {
	Selected  *domain.Item
	Effective *domain.Item
	Card      *domain.Item
	StartDate time.Time // 最早允许的交易日期
}

func (s Side) CardID() *int64 {
	if s.Card == nil {
		return nil
	}
	id := s.Card.ID
	return &id
}

// Resolver 解析有效资产
type Resolver struct {
	items domain.ItemRepository
}

func NewResolver(items domain.ItemRepository) *Resolver {
	return &Resolver{items: items}
}

// Resolve field 用于错误信息中标识是哪一侧
func (r *Resolver) Resolve(ctx context.Context, db *gorm.DB, ownerID, itemID int64, field string) (Side, error) {
	item, err := r.items.Get(ctx, db, ownerID, itemID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Side{}, domain.Validation(domain.ReasonInvalidReference, field, "item %d not found", itemID)
		}
		return Side{}, err
	}
	if !item.IsActive() {
		return Side{}, domain.Validation(domain.ReasonItemInactive, field, "item %q is closed or archived", item.Name)
	}

	side := Side{Selected: item, Effective: item, StartDate: item.OpenDate}
	if item.TypeCode != domain.TypeBankCard || item.CardAccountID == nil {
		return side, nil
	}

	account, err := r.items.Get(ctx, db, ownerID, *item.CardAccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Side{}, domain.Validation(domain.ReasonInvalidReference, field, "card account %d not found", *item.CardAccountID)
		}
		return Side{}, err
	}
	if err := CheckCardAccount(item, account); err != nil {
		return Side{}, err
	}

	side.Effective = account
	side.Card = item
	side.StartDate = domain.MaxDate(item.OpenDate, account.OpenDate)
	return side, nil
}

// CheckCardAccount 卡绑定的账户必须是同币种的活跃银行账户 (资产)
func CheckCardAccount(card, account *domain.Item) error {
	if account.TypeCode != domain.TypeBankAccount || account.Kind != domain.Asset {
		return domain.Validation(domain.ReasonInvalidReference, "card_account_id", "card account must be an asset bank account")
	}
	if account.CurrencyCode != card.CurrencyCode {
		return domain.Validation(domain.ReasonCurrencyMismatch, "card_account_id", "card account currency %s does not match card currency %s",
			account.CurrencyCode, card.CurrencyCode)
	}
	if !account.IsActive() {
		return domain.Validation(domain.ReasonItemInactive, "card_account_id", "card account %q is closed or archived", account.Name)
	}
	return nil
}
