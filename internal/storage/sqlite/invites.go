package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/splitledger/internal/models"
)

// SetInviteCodeIfAbsent stores code on the group unless one is already set,
// then reads back whichever code won.
func (s *SQLiteStore) SetInviteCodeIfAbsent(ctx context.Context, groupID, code string) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"UPDATE groups SET invite_code = ? WHERE id = ? AND invite_code IS NULL",
		code, groupID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("invite code collision: %w", models.ErrStorageConflict)
		}
		return "", fmt.Errorf("failed to set invite code: %w", err)
	}

	var stored sql.NullString
	err = tx.QueryRowContext(ctx, "SELECT invite_code FROM groups WHERE id = ?", groupID).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("group %s: %w", groupID, models.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read invite code: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return stored.String, nil
}

// ReplaceInviteCode overwrites the group's invite code.
func (s *SQLiteStore) ReplaceInviteCode(ctx context.Context, groupID, code string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE groups SET invite_code = ? WHERE id = ?", code, groupID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("invite code collision: %w", models.ErrStorageConflict)
		}
		return fmt.Errorf("failed to replace invite code: %w", err)
	}
	return requireRow(res, "group", groupID)
}

// GetGroupByInviteCode looks a group up through the unique invite code index.
func (s *SQLiteStore) GetGroupByInviteCode(ctx context.Context, code string) (*models.Group, error) {
	group, err := scanGroup(s.db.QueryRowContext(ctx,
		"SELECT "+groupColumns+" FROM groups g WHERE g.invite_code = ?", code,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrInvalidCode
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group by invite code: %w", err)
	}
	return group, nil
}
