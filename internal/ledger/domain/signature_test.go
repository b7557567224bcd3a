package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPlanSignature(t *testing.T) {
	end := Date(2025, 12, 31)
	monthly := PayoutMonthly
	rule := FirstPayoutMonthEnd
	deposit := &Item{
		Kind:                Asset,
		TypeCode:            TypeDeposit,
		CurrencyCode:        "RUB",
		InitialValue:        100000,
		OpenDate:            Date(2025, 1, 15),
		DepositEndDate:      &end,
		InterestRate:        decimal.NewNullDecimal(decimal.RequireFromString("12.5")),
		InterestPayoutOrder: &monthly,
	}
	settings := &ItemPlanSettings{Enabled: true, FirstPayoutRule: &rule}

	base := PlanSignature(deposit, settings)
	if base == "" {
		t.Fatal("expected a signature for an enabled deposit plan")
	}
	if again := PlanSignature(deposit, settings); again != base {
		t.Errorf("signature not stable: %q vs %q", again, base)
	}

	deposit.Name = "renamed"
	if got := PlanSignature(deposit, settings); got != base {
		t.Error("name must not affect the signature")
	}

	deposit.InterestRate = decimal.NewNullDecimal(decimal.RequireFromString("13"))
	if got := PlanSignature(deposit, settings); got == base {
		t.Error("rate change must change the signature")
	}

	settings.Enabled = false
	if got := PlanSignature(deposit, settings); got != "" {
		t.Errorf("disabled plan signature = %q, want empty", got)
	}

	account := &Item{Kind: Asset, TypeCode: TypeBankAccount}
	if got := PlanSignature(account, &ItemPlanSettings{Enabled: true}); got != "" {
		t.Errorf("bank account signature = %q, want empty", got)
	}
}
