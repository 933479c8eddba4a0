// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/mmynk/splitledger/internal/models"
)

// GroupStore persists groups and their founding membership.
type GroupStore interface {
	// CreateGroupWithFounder inserts the group and an admin membership for
	// founderID in one transaction. The group.ID and CreatedAt fields are
	// populated by the store when empty.
	CreateGroupWithFounder(ctx context.Context, group *models.Group, founderID string) error

	// GetGroup retrieves a group by ID. Returns models.ErrNotFound when absent.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// UpdateGroup patches name and description.
	UpdateGroup(ctx context.Context, group *models.Group) error

	// ListGroupsForUser returns the groups userID belongs to, oldest first.
	ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error)
}

// MembershipStore persists (group, user, role) rows.
type MembershipStore interface {
	// AddMembership inserts m unless a row for (GroupID, UserID) already
	// exists. The uniqueness check and insert are one atomic statement;
	// inserted is false when the row already existed.
	AddMembership(ctx context.Context, m *models.Membership) (inserted bool, err error)

	// GetMembership returns models.ErrNotFound when userID is not in groupID.
	GetMembership(ctx context.Context, groupID, userID string) (*models.Membership, error)

	// ListMemberships returns a group's members ordered by join time.
	ListMemberships(ctx context.Context, groupID string) ([]*models.Membership, error)
}

// InviteStore persists invite codes on groups.
type InviteStore interface {
	// SetInviteCodeIfAbsent stores code only if the group has none and
	// returns the code that is stored afterwards. Returns
	// models.ErrStorageConflict when code is already used by another group.
	SetInviteCodeIfAbsent(ctx context.Context, groupID, code string) (string, error)

	// ReplaceInviteCode overwrites the group's code (explicit rotation).
	ReplaceInviteCode(ctx context.Context, groupID, code string) error

	// GetGroupByInviteCode returns models.ErrNotFound when no group has code.
	GetGroupByInviteCode(ctx context.Context, code string) (*models.Group, error)
}

// ExpenseStore persists expense snapshots.
type ExpenseStore interface {
	// CreateExpense inserts the expense and all of its shares atomically.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense returns the stored snapshot. Returns models.ErrNotFound when absent.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// ListExpensesByGroup returns a group's expenses, newest first.
	ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error)
}

// UserStore persists the user directory.
type UserStore interface {
	// UpsertUser inserts the user or refreshes email and (non-empty) name.
	UpsertUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	FindUsersByEmail(ctx context.Context, email string) ([]*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
	UpdateUserProfile(ctx context.Context, id, name, phone string) error
	SetUserImage(ctx context.Context, id, imageRef string) error
}

// Store defines the full persistence contract of the ledger.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the ledger layer.
type Store interface {
	GroupStore
	MembershipStore
	InviteStore
	ExpenseStore
	UserStore

	// Close releases any resources held by the store.
	Close() error
}
