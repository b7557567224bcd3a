package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/finplan/backend/internal/ledger/domain"
	"github.com/finplan/backend/internal/ledger/schedule"
	"github.com/finplan/backend/internal/platform/metrics"
)

// ChainInput 手工创建周期交易链
type ChainInput struct {
	Name               string
	StartDate          time.Time
	EndDate            time.Time
	Rule               schedule.Rule
	Direction          domain.Direction
	PrimaryItemID      int64
	CounterpartyItemID *int64
	Amount             int64
	AmountCounterparty *int64
	AmountIsVariable   bool
	AmountMin          *int64
	AmountMax          *int64
	CategoryID         *int64
	CounterpartyID     *int64
	Description        *string
	Comment            *string
}

// plannedRow 计划交易的一行 (日期 + 金额)
type plannedRow struct {
	Date   time.Time
	Amount int64
}

type ChainService struct {
	db     *gorm.DB
	chains domain.ChainRepository
	txs    domain.TransactionRepository
	ledger *LedgerService
	logger *zap.Logger
}

func NewChainService(db *gorm.DB, chains domain.ChainRepository, txs domain.TransactionRepository, ledger *LedgerService, logger *zap.Logger) *ChainService {
	return &ChainService{db: db, chains: chains, txs: txs, ledger: ledger, logger: logger}
}

// CreateChain 校验、展开日期并生成计划交易
func (s *ChainService) CreateChain(ctx context.Context, ownerID int64, in ChainInput) (chain *domain.TransactionChain, err error) {
	ctx, done := track(ctx, "create_chain", ownerID)
	defer func() { done(err) }()

	if in.Name == "" {
		return nil, domain.MissingField("name")
	}
	if in.StartDate.IsZero() {
		return nil, domain.MissingField("start_date")
	}
	if in.EndDate.IsZero() {
		return nil, domain.MissingField("end_date")
	}
	if in.EndDate.Before(in.StartDate) {
		return nil, domain.Validation(domain.ReasonInvalidDate, "end_date", "end date must not be before start date")
	}
	if err := schedule.Validate(in.Rule); err != nil {
		return nil, err
	}
	if in.AmountIsVariable {
		if in.AmountMin == nil || in.AmountMax == nil {
			return nil, domain.MissingField("amount_min")
		}
		if *in.AmountMin > *in.AmountMax {
			return nil, domain.Invalid("amount_max", "must not be less than amount_min")
		}
	}

	dates := schedule.Generate(in.StartDate, in.EndDate, in.Rule)
	if len(dates) == 0 {
		return nil, domain.ErrNoScheduleDates
	}
	rows := make([]plannedRow, len(dates))
	for i, d := range dates {
		rows[i] = plannedRow{Date: d, Amount: in.Amount}
	}

	chain = &domain.TransactionChain{
		OwnerID:          ownerID,
		Name:             in.Name,
		StartDate:        domain.TruncateDay(in.StartDate),
		EndDate:          domain.TruncateDay(in.EndDate),
		Frequency:        in.Rule.Frequency,
		WeeklyDay:        in.Rule.WeeklyDay,
		MonthlyDay:       in.Rule.MonthlyDay,
		MonthlyRule:      in.Rule.MonthlyRule,
		IntervalDays:     in.Rule.IntervalDays,
		AmountIsVariable: in.AmountIsVariable,
		AmountMin:        in.AmountMin,
		AmountMax:        in.AmountMax,
		Source:           domain.ChainManual,
		Purpose:          domain.PurposeNone,
		Description:      in.Description,
		Comment:          in.Comment,
	}
	template := TransactionInput{
		Direction:          in.Direction,
		PrimaryItemID:      in.PrimaryItemID,
		CounterpartyItemID: in.CounterpartyItemID,
		AmountCounterparty: in.AmountCounterparty,
		CategoryID:         in.CategoryID,
		CounterpartyID:     in.CounterpartyID,
		Description:        in.Description,
		Comment:            in.Comment,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.materialize(ctx, tx, ownerID, chain, template, rows)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("chain created",
		zap.Int64("owner_id", ownerID),
		zap.Int64("chain_id", chain.ID),
		zap.Int("rows", len(rows)),
	)
	return chain, nil
}

// DeleteChain 删除链及其未实现的计划交易，已实现的保留
func (s *ChainService) DeleteChain(ctx context.Context, ownerID, id int64) (err error) {
	ctx, done := track(ctx, "delete_chain", ownerID)
	defer func() { done(err) }()

	var removed int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		chain, err := s.chains.Lock(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		if chain.DeletedAt.Valid {
			return nil
		}
		if chain.Source == domain.ChainAuto {
			return domain.Conflict(domain.ReasonInvalid, "chain %d is managed by its item plan", id)
		}
		removed, err = s.txs.SoftDeletePlannedByChains(ctx, tx, ownerID, []int64{id}, true)
		if err != nil {
			return err
		}
		return s.chains.SoftDelete(ctx, tx, chain)
	})
	if err != nil {
		return err
	}

	s.logger.Info("chain deleted",
		zap.Int64("owner_id", ownerID),
		zap.Int64("chain_id", id),
		zap.Int64("planned_removed", removed),
	)
	return nil
}

func (s *ChainService) GetChain(ctx context.Context, ownerID, id int64) (*domain.TransactionChain, error) {
	return s.chains.Get(ctx, s.db, ownerID, id)
}

func (s *ChainService) ListChains(ctx context.Context, ownerID int64) ([]domain.TransactionChain, error) {
	return s.chains.List(ctx, s.db, ownerID)
}

// materialize 保存链并为每一行生成 PLANNED 交易
// 各侧资产只按第一行解析一次，rows 需按日期升序
func (s *ChainService) materialize(ctx context.Context, tx *gorm.DB, ownerID int64, chain *domain.TransactionChain, template TransactionInput, rows []plannedRow) error {
	if len(rows) == 0 {
		return domain.ErrNoScheduleDates
	}

	template.TransactionType = domain.Planned
	template.Status = domain.StatusConfirmed
	template.TransactionDate = rows[0].Date
	template.Amount = rows[0].Amount
	// 给定对方金额时，后续各行按与首行相同的比例换算
	sameCounter := template.AmountCounterparty == nil

	base, err := s.ledger.Build(ctx, tx, ownerID, template)
	if err != nil {
		return err
	}

	chain.Direction = base.Direction
	chain.PrimaryItemID = base.PrimaryItemID
	chain.PrimaryCardItemID = base.PrimaryCardItemID
	chain.CounterpartyItemID = base.CounterpartyItemID
	chain.CounterpartyCardItemID = base.CounterpartyCardItemID
	chain.AmountCounterparty = base.AmountCounterparty
	chain.CategoryID = base.CategoryID
	chain.CounterpartyID = base.CounterpartyID
	chain.Amount = rows[0].Amount
	if !chain.AmountIsVariable {
		lo, hi := rows[0].Amount, rows[0].Amount
		for _, r := range rows[1:] {
			lo, hi = min(lo, r.Amount), max(hi, r.Amount)
		}
		if lo != hi {
			chain.AmountIsVariable = true
			chain.AmountMin, chain.AmountMax = &lo, &hi
		}
	}
	if err := s.chains.Create(ctx, tx, chain); err != nil {
		return err
	}

	for _, row := range rows {
		t := *base
		t.ID = 0
		t.TransactionDate = domain.TruncateDay(row.Date)
		t.Amount = row.Amount
		t.ChainID = &chain.ID
		t.LinkedItemID = chain.LinkedItemID
		if t.Direction == domain.Transfer {
			counter := row.Amount
			if !sameCounter && base.Amount != 0 {
				counter = *base.AmountCounterparty * row.Amount / base.Amount
			}
			t.AmountCounterparty = &counter
		}
		if err := s.ledger.Record(ctx, tx, &t); err != nil {
			return err
		}
	}

	metrics.PlanChains.WithLabelValues(purposeLabel(chain.Purpose)).Inc()
	metrics.PlannedTransactions.Add(float64(len(rows)))
	return nil
}

// deleteAutoChains 删除资产的全部自动链，已实现的计划交易保留
func (s *ChainService) deleteAutoChains(ctx context.Context, tx *gorm.DB, ownerID, itemID int64) (int, error) {
	chains, err := s.chains.ListAuto(ctx, tx, ownerID, itemID)
	if err != nil {
		return 0, err
	}
	if len(chains) == 0 {
		return 0, nil
	}

	ids := make([]int64, len(chains))
	for i := range chains {
		ids[i] = chains[i].ID
	}
	if _, err := s.txs.SoftDeletePlannedByChains(ctx, tx, ownerID, ids, true); err != nil {
		return 0, err
	}
	for i := range chains {
		if err := s.chains.SoftDelete(ctx, tx, &chains[i]); err != nil {
			return 0, err
		}
	}
	return len(chains), nil
}

func purposeLabel(p domain.ChainPurpose) string {
	if p == domain.PurposeNone {
		return "manual"
	}
	return string(p)
}
