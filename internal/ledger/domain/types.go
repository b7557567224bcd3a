package domain

// ItemKind 资产/负债
type ItemKind string

const (
	Asset     ItemKind = "ASSET"     // 资产
	Liability ItemKind = "LIABILITY" // 负债
)

func (k ItemKind) IsValid() bool {
	return k == Asset || k == Liability
}

// Direction 交易方向
type Direction string

const (
	Income   Direction = "INCOME"
	Expense  Direction = "EXPENSE"
	Transfer Direction = "TRANSFER"
)

// IsValid 校验方向合法性
func (d Direction) IsValid() bool {
	return d == Income || d == Expense || d == Transfer
}

// Role 交易中的一侧
type Role int

const (
	RolePrimary Role = iota
	RoleCounterparty
)

// TransactionType 实际 / 计划
type TransactionType string

const (
	Actual  TransactionType = "ACTUAL"
	Planned TransactionType = "PLANNED"
)

func (t TransactionType) IsValid() bool {
	return t == Actual || t == Planned
}

type TransactionStatus string

const (
	StatusConfirmed   TransactionStatus = "CONFIRMED"
	StatusUnconfirmed TransactionStatus = "UNCONFIRMED"
	StatusRealized    TransactionStatus = "REALIZED"
)

func (s TransactionStatus) IsValid() bool {
	return s == StatusConfirmed || s == StatusUnconfirmed || s == StatusRealized
}

// TransactionSource 交易来源
type TransactionSource string

const (
	SourceManual     TransactionSource = "MANUAL"
	SourceOpening    TransactionSource = "AUTO_ITEM_OPENING"
	SourceClosing    TransactionSource = "AUTO_ITEM_CLOSING"
	SourceCommission TransactionSource = "AUTO_ITEM_COMMISSION"
)

type ChainSource string

const (
	ChainAuto   ChainSource = "AUTO_ITEM"
	ChainManual ChainSource = "MANUAL"
)

type ChainPurpose string

const (
	PurposeNone      ChainPurpose = ""
	PurposeInterest  ChainPurpose = "INTEREST"
	PurposePrincipal ChainPurpose = "PRINCIPAL"
)

// HistoryStatus NEW: 余额由开户交易产生; HISTORICAL: 直接以初始值入账
type HistoryStatus string

const (
	HistoryNew        HistoryStatus = "NEW"
	HistoryHistorical HistoryStatus = "HISTORICAL"
)

func (h HistoryStatus) IsValid() bool {
	return h == HistoryNew || h == HistoryHistorical
}

type CardKind string

const (
	CardDebit  CardKind = "DEBIT"
	CardCredit CardKind = "CREDIT"
)

type InterestPayoutOrder string

const (
	PayoutMonthly   InterestPayoutOrder = "MONTHLY"
	PayoutEndOfTerm InterestPayoutOrder = "END_OF_TERM"
)

type FirstPayoutRule string

const (
	FirstPayoutOpenDate      FirstPayoutRule = "OPEN_DATE"
	FirstPayoutMonthEnd      FirstPayoutRule = "MONTH_END"
	FirstPayoutShiftOneMonth FirstPayoutRule = "SHIFT_ONE_MONTH"
)

// Frequency 重复频率
type Frequency string

const (
	Daily   Frequency = "DAILY"
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
	Regular Frequency = "REGULAR"
)

func (f Frequency) IsValid() bool {
	switch f {
	case Daily, Weekly, Monthly, Regular:
		return true
	}
	return false
}

type MonthlyRule string

const (
	FirstDay MonthlyRule = "FIRST_DAY"
	LastDay  MonthlyRule = "LAST_DAY"
)

type RepaymentType string

const (
	Annuity        RepaymentType = "ANNUITY"
	Differentiated RepaymentType = "DIFFERENTIATED"
)

type PaymentAmountKind string

const (
	PaymentTotal     PaymentAmountKind = "TOTAL"
	PaymentPrincipal PaymentAmountKind = "PRINCIPAL"
)

type CategoryScope string

const (
	ScopeIncome  CategoryScope = "INCOME"
	ScopeExpense CategoryScope = "EXPENSE"
	ScopeBoth    CategoryScope = "BOTH"
)

// Allows 分类是否可用于该方向
func (s CategoryScope) Allows(d Direction) bool {
	switch s {
	case ScopeBoth, "":
		return true
	case ScopeIncome:
		return d == Income
	case ScopeExpense:
		return d == Expense
	}
	return false
}

// 资产类型代码
const (
	TypeBankAccount    = "bank_account"
	TypeBankCard       = "bank_card"
	TypeDeposit        = "deposit"
	TypeSavingsAccount = "savings_account"
	TypeLoanGiven      = "loan_to_third_party"
	TypeThirdPartyDebt = "third_party_receivables"
	TypeCreditCardDebt = "credit_card_debt"
	TypeConsumerLoan   = "consumer_loan"
	TypeMortgage       = "mortgage"
	TypeCarLoan        = "car_loan"
	TypeEducationLoan  = "education_loan"
	TypeInstallment    = "installment"
	TypeMicroloan      = "microloan"
	TypePrivateLoan    = "private_loan"
	TypeThirdPartyLoan = "third_party_payables"
)

var interestTypes = map[string]bool{
	TypeDeposit:        true,
	TypeSavingsAccount: true,
}

var loanTypes = map[string]bool{
	TypeLoanGiven:      true,
	TypeThirdPartyDebt: true,
	TypeCreditCardDebt: true,
	TypeConsumerLoan:   true,
	TypeMortgage:       true,
	TypeCarLoan:        true,
	TypeEducationLoan:  true,
	TypeInstallment:    true,
	TypeMicroloan:      true,
	TypePrivateLoan:    true,
	TypeThirdPartyLoan: true,
}

// IsInterestType 存款类（按利率生成利息计划）
func IsInterestType(typeCode string) bool {
	return interestTypes[typeCode]
}

// IsLoanType 贷款类（生成本金 + 利息计划），方向由 ItemKind 决定
func IsLoanType(typeCode string) bool {
	return loanTypes[typeCode]
}
