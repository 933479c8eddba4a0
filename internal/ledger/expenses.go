package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/notify"
	"github.com/mmynk/splitledger/internal/storage"
)

// Expenses validates, splits and records group expenses.
type Expenses struct {
	store    storage.Store
	notifier notify.Notifier
}

// NewExpenses creates an Expenses backed by store. notifier may be nil.
func NewExpenses(store storage.Store, notifier notify.Notifier) *Expenses {
	return &Expenses{store: store, notifier: notifier}
}

// ProposeExpense validates a draft against the group's current members and
// computes its split. The returned expense is not persisted.
func (e *Expenses) ProposeExpense(ctx context.Context, actingUserID, groupID string, draft models.ExpenseDraft) (*models.Expense, error) {
	if _, err := requireVisible(ctx, e.store, groupID, actingUserID); err != nil {
		return nil, err
	}
	if !draft.Total.IsPositive() {
		return nil, models.NewInputError("total_positive", "total %s must be greater than zero", draft.Total)
	}
	description, err := cleanName("description", draft.Description)
	if err != nil {
		return nil, err
	}

	if draft.PayerID == "" {
		return nil, models.NewInputError("payer_required", "payer must be specified")
	}

	memberships, err := e.store.ListMemberships(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	members := make(map[string]bool, len(memberships))
	for _, m := range memberships {
		members[m.UserID] = true
	}
	if !members[draft.PayerID] {
		return nil, &models.MemberError{UserID: draft.PayerID, Role: "payer"}
	}
	for _, p := range draft.Participants {
		// Empty IDs are reported by the split engine.
		if p.MemberID != "" && !members[p.MemberID] {
			return nil, &models.MemberError{UserID: p.MemberID, Role: "participant"}
		}
	}

	shares, err := computeSplit(draft.Total, draft.Strategy, draft.Participants)
	if err != nil {
		return nil, err
	}

	expense := &models.Expense{
		GroupID:     groupID,
		Description: description,
		Total:       draft.Total,
		Strategy:    draft.Strategy,
		PayerID:     draft.PayerID,
		CreatedBy:   actingUserID,
		Shares:      snapshotShares(shares, draft),
	}
	if !expense.SharesTotal().Equal(expense.Total) {
		return nil, fmt.Errorf("shares sum %s, total %s: %w", expense.SharesTotal(), expense.Total, calculator.ErrUnreconciled)
	}
	return expense, nil
}

// RecordExpense proposes the expense and persists it with its shares.
func (e *Expenses) RecordExpense(ctx context.Context, actingUserID, groupID string, draft models.ExpenseDraft) (*models.Expense, error) {
	expense, err := e.ProposeExpense(ctx, actingUserID, groupID, draft)
	if err != nil {
		return nil, err
	}
	if err := e.store.CreateExpense(ctx, expense); err != nil {
		return nil, fmt.Errorf("failed to record expense: %w", err)
	}

	slog.Info("Expense recorded",
		"expense_id", expense.ID,
		"group_id", groupID,
		"total", expense.Total,
		"strategy", expense.Strategy,
		"participants", len(expense.Shares),
	)
	notify.Deliver(ctx, e.notifier, notify.NewEvent(notify.ExpenseRecorded, groupID, actingUserID, expense.ID))
	return expense, nil
}

// GetExpense returns a recorded expense. Non-members of its group get NotFound.
func (e *Expenses) GetExpense(ctx context.Context, actingUserID, expenseID string) (*models.Expense, error) {
	if err := requireUser(actingUserID); err != nil {
		return nil, err
	}
	expense, err := e.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if _, err := requireVisible(ctx, e.store, expense.GroupID, actingUserID); err != nil {
		return nil, fmt.Errorf("expense %s: %w", expenseID, models.ErrNotFound)
	}
	return expense, nil
}

// ListExpenses returns a group's expenses, newest first.
func (e *Expenses) ListExpenses(ctx context.Context, actingUserID, groupID string) ([]*models.Expense, error) {
	if _, err := requireVisible(ctx, e.store, groupID, actingUserID); err != nil {
		return nil, err
	}
	expenses, err := e.store.ListExpensesByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	return expenses, nil
}

// PreviewSplit runs the split engine without membership checks.
func (e *Expenses) PreviewSplit(total money.Money, strategy models.SplitStrategy, participants []models.ParticipantInput) ([]calculator.Share, error) {
	return computeSplit(total, strategy, participants)
}

// computeSplit runs the engine and records the outcome.
func computeSplit(total money.Money, strategy models.SplitStrategy, participants []models.ParticipantInput) ([]calculator.Share, error) {
	shares, err := calculator.ComputeSplit(total, strategy, participants)
	outcome := metrics.OutcomeOK
	if err != nil {
		var inputErr *models.InputError
		if errors.As(err, &inputErr) {
			outcome = inputErr.Constraint
		} else {
			outcome = "error"
		}
	}
	label := string(strategy)
	if !strategy.Valid() {
		label = "unknown"
	}
	metrics.SplitsTotal.WithLabelValues(label, outcome).Inc()
	return shares, err
}

// snapshotShares pairs each computed share with the raw input it came from.
// EQUAL ignores inputs, so none are kept for it.
func snapshotShares(shares []calculator.Share, draft models.ExpenseDraft) []models.ExpenseShare {
	inputs := make(map[string]*decimal.Decimal, len(draft.Participants))
	if draft.Strategy != models.SplitEqual {
		for _, p := range draft.Participants {
			inputs[p.MemberID] = p.Input
		}
	}
	out := make([]models.ExpenseShare, len(shares))
	for i, s := range shares {
		out[i] = models.ExpenseShare{MemberID: s.MemberID, Owed: s.Owed, Input: inputs[s.MemberID]}
	}
	return out
}
