package models

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/money"
)

// SplitStrategy selects how an expense total is divided among participants.
type SplitStrategy string

const (
	SplitEqual   SplitStrategy = "EQUAL"
	SplitExact   SplitStrategy = "EXACT"
	SplitPercent SplitStrategy = "PERCENT"
	SplitShares  SplitStrategy = "SHARES"
)

// Valid reports whether s is a known strategy.
func (s SplitStrategy) Valid() bool {
	switch s {
	case SplitEqual, SplitExact, SplitPercent, SplitShares:
		return true
	}
	return false
}

// ParticipantInput is one participant of an expense draft.
// Input is nil for EQUAL and required for every other strategy:
// an amount in major units for EXACT, a percentage for PERCENT, a weight for SHARES.
type ParticipantInput struct {
	MemberID string
	Input    *decimal.Decimal
}

// ExpenseDraft is an expense as submitted, before the split is computed.
type ExpenseDraft struct {
	Description  string
	Total        money.Money
	PayerID      string
	Strategy     SplitStrategy
	Participants []ParticipantInput
}

// ExpenseShare is one participant's owed amount in a recorded expense.
type ExpenseShare struct {
	MemberID string
	Owed     money.Money

	// Input is the raw strategy input the share was computed from, if any.
	Input *decimal.Decimal
}

// Expense is an immutable snapshot of a reconciled split.
// Shares are sorted by MemberID and always sum to Total.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	GroupID     string
	Description string
	Total       money.Money
	Strategy    SplitStrategy
	PayerID     string
	Shares      []ExpenseShare

	// CreatedBy is the user who recorded the expense.
	CreatedBy string

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64
}

// SharesTotal sums the owed amounts.
func (e *Expense) SharesTotal() money.Money {
	total := money.Zero
	for _, s := range e.Shares {
		total = total.Add(s.Owed)
	}
	return total
}

// OwedBy returns the amount owed by memberID and whether they participate.
func (e *Expense) OwedBy(memberID string) (money.Money, bool) {
	for _, s := range e.Shares {
		if s.MemberID == memberID {
			return s.Owed, true
		}
	}
	return money.Zero, false
}
