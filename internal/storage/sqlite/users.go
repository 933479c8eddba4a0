package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmynk/splitledger/internal/models"
)

const userColumns = "id, email, name, phone, image_ref, created_at"

// findUsersByEmailQuery matches the NOCASE collation of idx_users_email.
const findUsersByEmailQuery = "SELECT " + userColumns + " FROM users WHERE email = ? COLLATE NOCASE ORDER BY created_at, id"

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var phone, imageRef sql.NullString
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &phone, &imageRef, &user.CreatedAt); err != nil {
		return nil, err
	}
	user.Phone = phone.String
	user.ImageRef = imageRef.String
	return user, nil
}

// UpsertUser inserts a user on first sight, otherwise refreshes the email and,
// when provided, the name. Phone and image are only changed through the
// profile operations.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *models.User) error {
	if user.CreatedAt == 0 {
		user.CreatedAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, phone, image_ref, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   email = excluded.email,
		   name = CASE WHEN excluded.name = '' THEN users.name ELSE excluded.name END`,
		user.ID, user.Email, user.Name, nullString(user.Phone), nullString(user.ImageRef), user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by their ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return user, nil
}

// FindUsersByEmail returns every user whose email matches, ignoring case.
func (s *SQLiteStore) FindUsersByEmail(ctx context.Context, email string) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, findUsersByEmailQuery, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find users by email: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// GetUsersByIDs retrieves multiple users by their IDs.
// Returns a map of user ID to User object.
// Users that don't exist are omitted from the result.
func (s *SQLiteStore) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	users := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id IN ("+placeholders(len(ids))+")",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get users by IDs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users[user.ID] = user
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// UpdateUserProfile sets the editable profile fields.
func (s *SQLiteStore) UpdateUserProfile(ctx context.Context, id, name, phone string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET name = ?, phone = ? WHERE id = ?",
		name, nullString(phone), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update user profile: %w", err)
	}
	return requireRow(res, "user", id)
}

// SetUserImage stores the blob reference of the user's profile picture.
func (s *SQLiteStore) SetUserImage(ctx context.Context, id, imageRef string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET image_ref = ? WHERE id = ?",
		nullString(imageRef), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set user image: %w", err)
	}
	return requireRow(res, "user", id)
}

// requireRow maps an update that touched no rows to models.ErrNotFound.
func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, models.ErrNotFound)
	}
	return nil
}

// placeholders returns n comma-separated "?" for building IN clauses.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
