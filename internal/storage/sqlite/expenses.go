package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
)

// CreateExpense persists an expense and its shares in one transaction.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, group_id, description, total_minor, strategy, payer_id, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.GroupID, expense.Description, expense.Total.Minor(),
		string(expense.Strategy), expense.PayerID, expense.CreatedBy, expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	for _, share := range expense.Shares {
		var input any
		if share.Input != nil {
			input = share.Input.String()
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO expense_shares (expense_id, member_id, owed_minor, input) VALUES (?, ?, ?, ?)",
			expense.ID, share.MemberID, share.Owed.Minor(), input,
		)
		if err != nil {
			return fmt.Errorf("failed to insert share: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const expenseColumns = "id, group_id, description, total_minor, strategy, payer_id, created_by, created_at"

func scanExpense(row rowScanner) (*models.Expense, error) {
	e := &models.Expense{}
	var total int64
	var strategy string
	if err := row.Scan(&e.ID, &e.GroupID, &e.Description, &total, &strategy, &e.PayerID, &e.CreatedBy, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Total = money.New(total)
	e.Strategy = models.SplitStrategy(strategy)
	return e, nil
}

// GetExpense retrieves an expense with its stored shares.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	expense, err := scanExpense(s.db.QueryRowContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE id = ?", expenseID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %s: %w", expenseID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	if err := s.loadShares(ctx, []*models.Expense{expense}); err != nil {
		return nil, err
	}
	return expense, nil
}

// ListExpensesByGroup returns a group's expenses, newest first.
func (s *SQLiteStore) ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE group_id = ? ORDER BY created_at DESC, rowid DESC",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	var expenses []*models.Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	if err := s.loadShares(ctx, expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}

// loadShares fills in Shares for each expense, sorted by member ID.
// The expense rows must be fully read first: the pool has a single connection.
func (s *SQLiteStore) loadShares(ctx context.Context, expenses []*models.Expense) error {
	if len(expenses) == 0 {
		return nil
	}
	byID := make(map[string]*models.Expense, len(expenses))
	args := make([]any, len(expenses))
	for i, e := range expenses {
		byID[e.ID] = e
		args[i] = e.ID
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT expense_id, member_id, owed_minor, input FROM expense_shares
		 WHERE expense_id IN (`+placeholders(len(expenses))+`)
		 ORDER BY expense_id, member_id`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to get shares: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var expenseID string
		var share models.ExpenseShare
		var owed int64
		var input sql.NullString
		if err := rows.Scan(&expenseID, &share.MemberID, &owed, &input); err != nil {
			return fmt.Errorf("failed to scan share: %w", err)
		}
		share.Owed = money.New(owed)
		if input.Valid {
			d, err := decimal.NewFromString(input.String)
			if err != nil {
				return fmt.Errorf("failed to parse stored share input %q: %w", input.String, err)
			}
			share.Input = &d
		}
		if e, ok := byID[expenseID]; ok {
			e.Shares = append(e.Shares, share)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate shares: %w", err)
	}
	return nil
}
