package service

import (
	"context"
	"testing"
	"time"

	"github.com/finplan/backend/internal/ledger/domain"
	"github.com/finplan/backend/internal/ledger/schedule"
)

func rentChain(itemID int64) ChainInput {
	return ChainInput{
		Name:          "Rent",
		StartDate:     domain.Date(2024, time.January, 10),
		EndDate:       domain.Date(2024, time.June, 10),
		Rule:          schedule.Rule{Frequency: domain.Monthly, MonthlyDay: ptr(10)},
		Direction:     domain.Expense,
		PrimaryItemID: itemID,
		Amount:        1000,
	}
}

func TestCreateChainPlansEveryDate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.account(t, "Checking", 10000)

	chain, err := env.chains.CreateChain(ctx, testOwner, rentChain(acc.ID))
	if err != nil {
		t.Fatalf("CreateChain() error = %v", err)
	}
	if chain.Source != domain.ChainManual || chain.Amount != 1000 || chain.AmountIsVariable {
		t.Errorf("chain = %+v", chain)
	}

	rows := chainRows(t, env, chain.ID)
	if len(rows) != 6 {
		t.Fatalf("rows = %d, want 6", len(rows))
	}
	for _, tx := range rows {
		if tx.TransactionDate.Day() != 10 || tx.Amount != 1000 || tx.Status != domain.StatusConfirmed {
			t.Errorf("row %+v, want confirmed 1000 on the 10th", tx)
		}
	}
	if got := env.balance(t, acc.ID); got != 10000 {
		t.Errorf("balance = %d, planned rows must not move it", got)
	}

	got, err := env.chains.GetChain(ctx, testOwner, chain.ID)
	if err != nil || got.Name != "Rent" {
		t.Errorf("GetChain() = %+v, %v", got, err)
	}
}

func TestDeleteChainKeepsRealizedRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.account(t, "Checking", 10000)

	chain, err := env.chains.CreateChain(ctx, testOwner, rentChain(acc.ID))
	if err != nil {
		t.Fatalf("CreateChain() error = %v", err)
	}
	rows := chainRows(t, env, chain.ID)
	first := rows[len(rows)-1]
	amount := int64(1200)
	actual, err := env.ledger.RealizeTransaction(ctx, testOwner, first.ID, RealizeInput{Amount: &amount})
	if err != nil {
		t.Fatalf("RealizeTransaction() error = %v", err)
	}
	if got := env.balance(t, acc.ID); got != 8800 {
		t.Errorf("balance after realize = %d, want 8800", got)
	}

	if err := env.chains.DeleteChain(ctx, testOwner, chain.ID); err != nil {
		t.Fatalf("DeleteChain() error = %v", err)
	}
	// 重复删除无副作用
	if err := env.chains.DeleteChain(ctx, testOwner, chain.ID); err != nil {
		t.Fatalf("second DeleteChain() error = %v", err)
	}

	left := chainRows(t, env, chain.ID)
	if len(left) != 1 || left[0].ID != first.ID || left[0].Status != domain.StatusRealized {
		t.Errorf("planned rows after delete = %+v, want the realized row", left)
	}
	if _, err := env.ledger.GetTransaction(ctx, testOwner, actual.ID); err != nil {
		t.Errorf("actual transaction lost: %v", err)
	}
	if got := env.balance(t, acc.ID); got != 8800 {
		t.Errorf("balance after delete = %d, want 8800", got)
	}

	list, err := env.chains.ListChains(ctx, testOwner)
	if err != nil {
		t.Fatalf("ListChains() error = %v", err)
	}
	if len(list) != 0 {
		t.Errorf("ListChains() = %d chains, want 0", len(list))
	}
}

func TestDeleteAutoChainRejected(t *testing.T) {
	env := newTestEnv(t)
	bank := env.account(t, "Checking", 1000000)
	env.createItem(t, mortgageInput(bank.ID))

	interest := autoChains(t, env)[domain.PurposeInterest]
	err := env.chains.DeleteChain(context.Background(), testOwner, interest.ID)
	if domain.KindOf(err) != domain.KindConflict {
		t.Fatalf("DeleteChain(auto) error = %v, want conflict", err)
	}
}

func TestCreateChainValidation(t *testing.T) {
	env := newTestEnv(t)
	acc := env.account(t, "Checking", 10000)
	sunday := 6

	tests := []struct {
		name   string
		modify func(in *ChainInput)
		want   domain.Reason
	}{
		{
			name:   "missing name",
			modify: func(in *ChainInput) { in.Name = "" },
			want:   domain.ReasonMissingField,
		},
		{
			name:   "end before start",
			modify: func(in *ChainInput) { in.EndDate = domain.Date(2023, time.December, 1) },
			want:   domain.ReasonInvalidDate,
		},
		{
			name:   "weekly without day",
			modify: func(in *ChainInput) { in.Rule = schedule.Rule{Frequency: domain.Weekly} },
			want:   domain.ReasonMissingField,
		},
		{
			name: "variable min above max",
			modify: func(in *ChainInput) {
				in.AmountIsVariable = true
				in.AmountMin = ptr(int64(500))
				in.AmountMax = ptr(int64(100))
			},
			want: domain.ReasonInvalid,
		},
		{
			name: "no dates in range",
			modify: func(in *ChainInput) {
				in.StartDate = domain.Date(2024, time.January, 1)
				in.EndDate = domain.Date(2024, time.January, 2)
				in.Rule = schedule.Rule{Frequency: domain.Weekly, WeeklyDay: &sunday}
			},
			want: domain.ReasonNoScheduleDates,
		},
		{
			name:   "unknown item",
			modify: func(in *ChainInput) { in.PrimaryItemID = 9999 },
			want:   domain.ReasonNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := rentChain(acc.ID)
			tt.modify(&in)
			_, err := env.chains.CreateChain(context.Background(), testOwner, in)
			wantReason(t, err, tt.want)
		})
	}

	if list, _ := env.chains.ListChains(context.Background(), testOwner); len(list) != 0 {
		t.Errorf("failed creates left %d chains", len(list))
	}
}
