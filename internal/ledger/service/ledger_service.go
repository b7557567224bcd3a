package service

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/finplan/backend/internal/ledger/domain"
)

// TransactionInput 创建 / 修改交易的输入 (Service 层 DTO)
type TransactionInput struct {
	TransactionDate          time.Time
	Direction                domain.Direction
	TransactionType          domain.TransactionType   // 空则 ACTUAL
	Status                   domain.TransactionStatus // 空则 CONFIRMED
	PrimaryItemID            int64
	CounterpartyItemID       *int64
	Amount                   int64
	AmountCounterparty       *int64
	PrimaryQuantityLots      *int64
	CounterpartyQuantityLots *int64
	CategoryID               *int64
	CounterpartyID           *int64
	Description              *string
	Comment                  *string
}

// RealizeInput 计划交易转为实际交易时可覆盖的字段
type RealizeInput struct {
	TransactionDate    *time.Time
	Amount             *int64
	AmountCounterparty *int64
}

// LedgerService 余额账本
// current_value / position_lots 只能通过这里修改
type LedgerService struct {
	db       *gorm.DB // 用于开启事务
	items    domain.ItemRepository
	txs      domain.TransactionRepository
	refs     domain.ReferenceResolver
	resolver *Resolver
	logger   *zap.Logger
}

func NewLedgerService(
	db *gorm.DB,
	items domain.ItemRepository,
	txs domain.TransactionRepository,
	refs domain.ReferenceResolver,
	logger *zap.Logger,
) *LedgerService {
	return &LedgerService{
		db:       db,
		items:    items,
		txs:      txs,
		refs:     refs,
		resolver: NewResolver(items),
		logger:   logger,
	}
}

// CreateTransaction 手工记一笔
func (s *LedgerService) CreateTransaction(ctx context.Context, ownerID int64, in TransactionInput) (result *domain.Transaction, err error) {
	ctx, done := track(ctx, "create_transaction", ownerID)
	defer func() { done(err) }()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.Build(ctx, tx, ownerID, in)
		if err != nil {
			return err
		}
		t.Source = domain.SourceManual
		if err := s.Record(ctx, tx, t); err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("transaction created",
		zap.Int64("owner_id", ownerID),
		zap.Int64("tx_id", result.ID),
		zap.String("direction", string(result.Direction)),
		zap.String("type", string(result.TransactionType)),
		zap.Int64("amount", result.Amount),
	)
	return result, nil
}

// UpdateTransaction 修改交易：旧交易的反向影响与新交易的影响按资产合并后再校验
func (s *LedgerService) UpdateTransaction(ctx context.Context, ownerID, id int64, in TransactionInput) (result *domain.Transaction, err error) {
	ctx, done := track(ctx, "update_transaction", ownerID)
	defer func() { done(err) }()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		old, err := s.txs.Lock(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		if old.DeletedAt.Valid {
			return domain.Validation(domain.ReasonDeleted, "", "transaction %d is deleted", id)
		}

		next, err := s.Build(ctx, tx, ownerID, in)
		if err != nil {
			return err
		}
		next.ID = old.ID
		next.CreatedAt = old.CreatedAt
		next.ChainID = old.ChainID
		next.LinkedItemID = old.LinkedItemID
		next.Source = old.Source
		if in.Status == "" {
			next.Status = old.Status
		}

		if err := s.Edit(ctx, tx, ownerID, old, next); err != nil {
			return err
		}
		if err := s.txs.Save(ctx, tx, next); err != nil {
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("transaction updated", zap.Int64("owner_id", ownerID), zap.Int64("tx_id", id))
	return result, nil
}

// DeleteTransaction 软删除并冲回余额；重复删除是幂等的
func (s *LedgerService) DeleteTransaction(ctx context.Context, ownerID, id int64) (err error) {
	ctx, done := track(ctx, "delete_transaction", ownerID)
	defer func() { done(err) }()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.txs.Lock(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		if t.DeletedAt.Valid {
			return nil
		}
		return s.SoftDelete(ctx, tx, ownerID, t)
	})
	if err != nil {
		return err
	}

	s.logger.Info("transaction deleted", zap.Int64("owner_id", ownerID), zap.Int64("tx_id", id))
	return nil
}

// UpdateStatus 只改状态，不影响余额
func (s *LedgerService) UpdateStatus(ctx context.Context, ownerID, id int64, status domain.TransactionStatus) (result *domain.Transaction, err error) {
	ctx, done := track(ctx, "update_status", ownerID)
	defer func() { done(err) }()

	if !status.IsValid() {
		return nil, domain.Invalid("status", "unsupported status %q", status)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.txs.Lock(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		if t.DeletedAt.Valid {
			return domain.Validation(domain.ReasonDeleted, "", "transaction %d is deleted", id)
		}
		if status == domain.StatusRealized && t.TransactionType != domain.Planned {
			return domain.Invalid("status", "only planned transactions can be realized")
		}
		if t.Status == status {
			result = t
			return nil
		}
		t.Status = status
		if err := s.txs.Save(ctx, tx, t); err != nil {
			return err
		}
		result = t
		return nil
	})
	return result, err
}

// RealizeTransaction 按计划交易生成一笔实际交易，并把计划交易标记为 REALIZED
func (s *LedgerService) RealizeTransaction(ctx context.Context, ownerID, id int64, in RealizeInput) (result *domain.Transaction, err error) {
	ctx, done := track(ctx, "realize_transaction", ownerID)
	defer func() { done(err) }()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		planned, err := s.txs.Lock(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		if planned.DeletedAt.Valid {
			return domain.Validation(domain.ReasonDeleted, "", "transaction %d is deleted", id)
		}
		if planned.TransactionType != domain.Planned {
			return domain.Invalid("transaction_type", "only planned transactions can be realized")
		}
		if planned.Status == domain.StatusRealized {
			return domain.Conflict(domain.ReasonInvalid, "transaction %d is already realized", id)
		}

		input := inputFromTransaction(planned)
		input.TransactionType = domain.Actual
		input.Status = domain.StatusConfirmed
		if in.TransactionDate != nil {
			input.TransactionDate = *in.TransactionDate
		}
		if in.Amount != nil {
			input.Amount = *in.Amount
			if in.AmountCounterparty == nil && planned.AmountCounterparty != nil && *planned.AmountCounterparty == planned.Amount {
				input.AmountCounterparty = in.Amount
			}
		}
		if in.AmountCounterparty != nil {
			input.AmountCounterparty = in.AmountCounterparty
		}

		actual, err := s.Build(ctx, tx, ownerID, input)
		if err != nil {
			return err
		}
		actual.Source = domain.SourceManual
		actual.ChainID = planned.ChainID
		actual.LinkedItemID = planned.LinkedItemID
		if err := s.Record(ctx, tx, actual); err != nil {
			return err
		}

		planned.Status = domain.StatusRealized
		if err := s.txs.Save(ctx, tx, planned); err != nil {
			return err
		}
		result = actual
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("planned transaction realized",
		zap.Int64("owner_id", ownerID),
		zap.Int64("planned_id", id),
		zap.Int64("tx_id", result.ID),
	)
	return result, nil
}

func (s *LedgerService) GetTransaction(ctx context.Context, ownerID, id int64) (*domain.Transaction, error) {
	return s.txs.Get(ctx, s.db, ownerID, id)
}

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// TransactionPage 一页流水
type TransactionPage struct {
	Items      []domain.Transaction
	NextCursor string
	HasMore    bool
}

// ListTransactions 按 (日期, id) 倒序分页
func (s *LedgerService) ListTransactions(ctx context.Context, ownerID int64, filter domain.TransactionFilter) (*TransactionPage, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}

	rows, err := s.txs.Page(ctx, s.db, ownerID, filter)
	if err != nil {
		return nil, err
	}

	page := &TransactionPage{Items: rows}
	if len(rows) > filter.Limit {
		page.Items = rows[:filter.Limit]
		page.HasMore = true
		page.NextCursor = EncodeCursor(page.Items[len(page.Items)-1])
	}
	return page, nil
}

// EncodeCursor 格式 "YYYY-MM-DD|id"
func EncodeCursor(t domain.Transaction) string {
	return t.TransactionDate.Format(domain.DateLayout) + "|" + strconv.FormatInt(t.ID, 10)
}

// ParseCursor 同时接受 RFC3339 日期时间
func ParseCursor(raw string) (*domain.TransactionCursor, error) {
	if raw == "" {
		return nil, nil
	}
	datePart, idPart, ok := strings.Cut(raw, "|")
	if !ok {
		return nil, domain.Invalid("cursor", "malformed cursor")
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return nil, domain.Invalid("cursor", "malformed cursor id")
	}
	date, err := domain.ParseDate(datePart)
	if err != nil {
		ts, rfcErr := time.Parse(time.RFC3339, datePart)
		if rfcErr != nil {
			return nil, domain.Invalid("cursor", "malformed cursor date")
		}
		date = domain.TruncateDay(ts)
	}
	return &domain.TransactionCursor{Date: date, ID: id}, nil
}

// ---------------------------------------------------------
// 以下方法在调用方的事务 (tx) 中执行，供编排层复用

// Build 校验输入并构造交易实体 (不写库，不动余额)
func (s *LedgerService) Build(ctx context.Context, tx *gorm.DB, ownerID int64, in TransactionInput) (*domain.Transaction, error) {
	if !in.Direction.IsValid() {
		return nil, domain.Invalid("direction", "unsupported direction %q", in.Direction)
	}
	txType := in.TransactionType
	if txType == "" {
		txType = domain.Actual
	}
	if !txType.IsValid() {
		return nil, domain.Invalid("transaction_type", "unsupported transaction type %q", in.TransactionType)
	}
	status := in.Status
	if status == "" {
		status = domain.StatusConfirmed
	}
	if !status.IsValid() {
		return nil, domain.Invalid("status", "unsupported status %q", in.Status)
	}
	if status == domain.StatusRealized && txType != domain.Planned {
		return nil, domain.Invalid("status", "only planned transactions can be realized")
	}
	if in.Amount < 0 {
		return nil, domain.Invalid("amount", "must not be negative")
	}
	if in.AmountCounterparty != nil && *in.AmountCounterparty < 0 {
		return nil, domain.Invalid("amount_counterparty", "must not be negative")
	}
	if negative(in.PrimaryQuantityLots) || negative(in.CounterpartyQuantityLots) {
		return nil, domain.Invalid("quantity_lots", "must not be negative")
	}
	if in.TransactionDate.IsZero() {
		return nil, domain.MissingField("transaction_date")
	}
	date := domain.TruncateDay(in.TransactionDate)

	primary, err := s.resolver.Resolve(ctx, tx, ownerID, in.PrimaryItemID, "primary_item_id")
	if err != nil {
		return nil, err
	}
	if date.Before(primary.StartDate) {
		return nil, beforeStart("transaction_date", date, primary)
	}

	if in.CounterpartyID != nil {
		if _, err := s.refs.Counterparty(ctx, tx, ownerID, *in.CounterpartyID); err != nil {
			return nil, err
		}
	}

	t := &domain.Transaction{
		OwnerID:             ownerID,
		TransactionDate:     date,
		Direction:           in.Direction,
		PrimaryItemID:       primary.Effective.ID,
		PrimaryCardItemID:   primary.CardID(),
		Amount:              in.Amount,
		PrimaryQuantityLots: in.PrimaryQuantityLots,
		TransactionType:     txType,
		Status:              status,
		Source:              domain.SourceManual,
		CounterpartyID:      in.CounterpartyID,
		Description:         in.Description,
		Comment:             in.Comment,
	}

	if in.Direction == domain.Transfer {
		if in.CounterpartyItemID == nil {
			return nil, domain.MissingField("counterparty_item_id")
		}
		counter, err := s.resolver.Resolve(ctx, tx, ownerID, *in.CounterpartyItemID, "counterparty_item_id")
		if err != nil {
			return nil, err
		}
		if counter.Selected.ID == primary.Selected.ID || counter.Effective.ID == primary.Effective.ID {
			return nil, domain.Validation(domain.ReasonSameItem, "counterparty_item_id", "transfer items must be different")
		}
		if date.Before(counter.StartDate) {
			return nil, beforeStart("transaction_date", date, counter)
		}

		amountCounter, err := counterAmount(primary.Effective, counter.Effective, in.Amount, in.AmountCounterparty)
		if err != nil {
			return nil, err
		}
		counterID := counter.Effective.ID
		t.CounterpartyItemID = &counterID
		t.CounterpartyCardItemID = counter.CardID()
		t.AmountCounterparty = &amountCounter
		t.CounterpartyQuantityLots = in.CounterpartyQuantityLots
	} else if in.CounterpartyItemID != nil {
		return nil, domain.Invalid("counterparty_item_id", "only allowed for TRANSFER")
	}

	if in.CategoryID != nil {
		category, err := s.refs.Category(ctx, tx, ownerID, *in.CategoryID)
		if err != nil {
			return nil, err
		}
		if in.Direction != domain.Transfer && !category.Scope.Allows(in.Direction) {
			return nil, domain.Invalid("category_id", "category %q cannot be used for %s", category.Name, in.Direction)
		}
		t.CategoryID = &category.ID
	}
	return t, nil
}

// Record 记账并保存交易行；PLANNED 交易不影响余额
func (s *LedgerService) Record(ctx context.Context, tx *gorm.DB, t *domain.Transaction) error {
	if err := s.Apply(ctx, tx, t); err != nil {
		return err
	}
	return s.txs.Create(ctx, tx, t)
}

// Apply 把交易的影响写入余额
func (s *LedgerService) Apply(ctx context.Context, tx *gorm.DB, t *domain.Transaction) error {
	return s.post(ctx, tx, t.OwnerID, []*domain.Transaction{t}, nil, postApply)
}

// Reverse 精确冲回交易的影响；可能因后续交易导致余额不足而被拒绝
func (s *LedgerService) Reverse(ctx context.Context, tx *gorm.DB, t *domain.Transaction) error {
	return s.post(ctx, tx, t.OwnerID, nil, []*domain.Transaction{t}, postReverse)
}

// Edit 冲回 old 并记入 next，按资产合并后校验
func (s *LedgerService) Edit(ctx context.Context, tx *gorm.DB, ownerID int64, old, next *domain.Transaction) error {
	return s.post(ctx, tx, ownerID, []*domain.Transaction{next}, []*domain.Transaction{old}, postEdit)
}

// SoftDelete 冲回后打删除标记
func (s *LedgerService) SoftDelete(ctx context.Context, tx *gorm.DB, ownerID int64, t *domain.Transaction) error {
	if t.OwnerID != ownerID {
		return domain.NotFound("transaction", t.ID)
	}
	if err := s.Reverse(ctx, tx, t); err != nil {
		return err
	}
	return s.txs.SoftDelete(ctx, tx, t)
}

// AdjustBalance 直接调整余额 (HISTORICAL 资产修改初始值时使用)
func (s *LedgerService) AdjustBalance(ctx context.Context, tx *gorm.DB, ownerID, itemID, valueDelta, lotsDelta int64) error {
	if valueDelta == 0 && lotsDelta == 0 {
		return nil
	}
	items, err := s.items.LockMany(ctx, tx, ownerID, []int64{itemID})
	if err != nil {
		return err
	}
	net := map[int64]*movement{itemID: {value: valueDelta, lots: lotsDelta}}
	return s.commit(ctx, tx, items, net, postApply)
}

type postMode int

const (
	postApply postMode = iota
	postReverse
	postEdit
)

// movement 某资产的净变化
type movement struct {
	value int64
	lots  int64
}

func (s *LedgerService) post(ctx context.Context, tx *gorm.DB, ownerID int64, add, remove []*domain.Transaction, mode postMode) error {
	var ids []int64
	for _, t := range append(append([]*domain.Transaction{}, add...), remove...) {
		if t.TransactionType != domain.Actual {
			continue
		}
		ids = append(ids, t.PrimaryItemID)
		if t.Direction == domain.Transfer && t.CounterpartyItemID != nil {
			ids = append(ids, *t.CounterpartyItemID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	// 按 id 升序加锁
	items, err := s.items.LockMany(ctx, tx, ownerID, ids)
	if err != nil {
		return err
	}

	net := make(map[int64]*movement)
	for _, t := range add {
		accumulate(net, t, items, 1)
	}
	for _, t := range remove {
		accumulate(net, t, items, -1)
	}
	return s.commit(ctx, tx, items, net, mode)
}

// commit 先校验全部资产，再统一写入
func (s *LedgerService) commit(ctx context.Context, tx *gorm.DB, items map[int64]*domain.Item, net map[int64]*movement, mode postMode) error {
	ids := make([]int64, 0, len(net))
	for id := range net {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if err := checkMovement(items[id], net[id], mode); err != nil {
			return err
		}
	}

	for _, id := range ids {
		m := net[id]
		if m.value == 0 && m.lots == 0 {
			continue
		}
		item := items[id]
		item.CurrentValue += m.value
		if m.lots != 0 {
			lots := item.Lots() + m.lots
			item.PositionLots = &lots
		}
		if err := s.items.SaveBalance(ctx, tx, item); err != nil {
			return err
		}
	}
	return nil
}

func accumulate(net map[int64]*movement, t *domain.Transaction, items map[int64]*domain.Item, sign int64) {
	if t.TransactionType != domain.Actual {
		return
	}
	delta := domain.Delta
	if t.Source == domain.SourceOpening {
		delta = domain.OpeningDelta
	}
	add := func(itemID int64, role domain.Role, amount int64, lots *int64) {
		item := items[itemID]
		m := net[itemID]
		if m == nil {
			m = &movement{}
			net[itemID] = m
		}
		// 证券按手数记账
		if item.IsMarket() {
			if lots != nil {
				m.lots += sign * delta(item.Kind, role, t.Direction, *lots)
			}
			return
		}
		m.value += sign * delta(item.Kind, role, t.Direction, amount)
	}

	add(t.PrimaryItemID, domain.RolePrimary, t.Amount, t.PrimaryQuantityLots)
	if t.Direction == domain.Transfer && t.CounterpartyItemID != nil {
		add(*t.CounterpartyItemID, domain.RoleCounterparty, t.CounterAmount(), t.CounterpartyQuantityLots)
	}
}

// checkMovement 只拒绝使余额跌破下限的减少
func checkMovement(item *domain.Item, m *movement, mode postMode) error {
	if m.value < 0 {
		next := item.CurrentValue + m.value
		if next < item.MinimumBalance() {
			return balanceViolation(item, next, mode)
		}
	}
	if m.lots < 0 {
		next := item.Lots() + m.lots
		if next < 0 {
			if mode == postApply {
				return domain.Invariant(domain.ReasonInsufficientLots, "not enough lots of %q: have %d, need %d", item.Name, item.Lots(), -m.lots)
			}
			return domain.Conflict(domain.ReasonReverseConflict, "position %q would become negative. Delete later transactions first", item.Name)
		}
	}
	return nil
}

func balanceViolation(item *domain.Item, next int64, mode postMode) error {
	floor := item.MinimumBalance()
	switch mode {
	case postReverse:
		return domain.Conflict(domain.ReasonReverseConflict,
			"deleting the transaction would take %q below %s. Delete later transactions first",
			item.Name, domain.FormatAmount(floor, item.CurrencyCode))
	case postEdit:
		return domain.Conflict(domain.ReasonReverseConflict,
			"cannot update the transaction: %q would go down to %s",
			item.Name, domain.FormatAmount(next, item.CurrencyCode))
	}
	if floor < 0 {
		return domain.Invariant(domain.ReasonCreditLimitExceeded,
			"amount exceeds the credit limit of %q: limit %s",
			item.Name, domain.FormatAmount(-floor, item.CurrencyCode))
	}
	return domain.Invariant(domain.ReasonInsufficientFunds,
		"insufficient funds on %q: balance %s, after transaction %s",
		item.Name, domain.FormatAmount(item.CurrentValue, item.CurrencyCode), domain.FormatAmount(next, item.CurrencyCode))
}

// counterAmount 同币种时对方金额必须等于 amount，跨币种时必须显式给出
func counterAmount(primary, counter *domain.Item, amount int64, given *int64) (int64, error) {
	if primary.CurrencyCode != counter.CurrencyCode {
		if given == nil {
			return 0, domain.Validation(domain.ReasonCurrencyMismatch, "amount_counterparty", "required for cross-currency transfer")
		}
		return *given, nil
	}
	if given != nil && *given != amount {
		return 0, domain.Invalid("amount_counterparty", "must match amount for same-currency transfer")
	}
	return amount, nil
}

func beforeStart(field string, date time.Time, side Side) error {
	return domain.Validation(domain.ReasonInvalidDate, field, "date %s is before the start of %q (%s)",
		date.Format(domain.DateLayout), side.Selected.Name, side.StartDate.Format(domain.DateLayout))
}

func negative(v *int64) bool {
	return v != nil && *v < 0
}

// inputFromTransaction 从已有交易还原输入 (卡交易还原为卡)
func inputFromTransaction(t *domain.Transaction) TransactionInput {
	in := TransactionInput{
		TransactionDate:          t.TransactionDate,
		Direction:                t.Direction,
		TransactionType:          t.TransactionType,
		Status:                   t.Status,
		PrimaryItemID:            t.PrimaryItemID,
		Amount:                   t.Amount,
		AmountCounterparty:       t.AmountCounterparty,
		PrimaryQuantityLots:      t.PrimaryQuantityLots,
		CounterpartyQuantityLots: t.CounterpartyQuantityLots,
		CategoryID:               t.CategoryID,
		CounterpartyID:           t.CounterpartyID,
		Description:              t.Description,
		Comment:                  t.Comment,
	}
	if t.PrimaryCardItemID != nil {
		in.PrimaryItemID = *t.PrimaryCardItemID
	}
	if t.CounterpartyItemID != nil {
		id := *t.CounterpartyItemID
		if t.CounterpartyCardItemID != nil {
			id = *t.CounterpartyCardItemID
		}
		in.CounterpartyItemID = &id
	}
	if t.Direction != domain.Transfer {
		in.AmountCounterparty = nil
	}
	return in
}
