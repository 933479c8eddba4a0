// Package ledger implements the group ledger operations: groups and their
// memberships, invite codes, expenses and the user directory.
//
// Every operation takes the acting user's ID explicitly. Authorization is
// decided here from stored memberships, and all failures wrap one of the
// error kinds in package models.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

const (
	maxNameLength        = 100
	maxDescriptionLength = 500
)

// strictPolicy strips all markup. Policies are safe for concurrent use.
var strictPolicy = bluemonday.StrictPolicy()

// sanitizeText removes markup from user-supplied text and trims it.
// Entities escaped by the policy are decoded again since values are stored as plain text.
func sanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

// cleanName sanitizes a required display name.
func cleanName(field, s string) (string, error) {
	name := sanitizeText(s)
	if name == "" {
		return "", models.NewInputError(field+"_required", "%s must not be empty", field)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", models.NewInputError(field+"_too_long", "%s must be at most %d characters", field, maxNameLength)
	}
	return name, nil
}

// cleanDescription sanitizes optional free text.
func cleanDescription(s string) (string, error) {
	desc := sanitizeText(s)
	if utf8.RuneCountInString(desc) > maxDescriptionLength {
		return "", models.NewInputError("description_too_long", "description must be at most %d characters", maxDescriptionLength)
	}
	return desc, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func requireUser(userID string) error {
	if userID == "" {
		return models.ErrUnauthenticated
	}
	return nil
}

// lookupMembership returns nil without error when userID is not in groupID.
func lookupMembership(ctx context.Context, store storage.MembershipStore, groupID, userID string) (*models.Membership, error) {
	m, err := store.GetMembership(ctx, groupID, userID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// requireVisible fails with NotFound unless userID is a member of groupID,
// so outsiders cannot tell a hidden group from a missing one.
func requireVisible(ctx context.Context, store storage.MembershipStore, groupID, userID string) (*models.Membership, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	m, err := lookupMembership(ctx, store, groupID, userID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("group %s: %w", groupID, models.ErrNotFound)
	}
	return m, nil
}

// requireMember fails with Unauthorized unless userID is a member of groupID.
// With adminOnly set the membership must also carry the admin role.
func requireMember(ctx context.Context, store storage.MembershipStore, groupID, userID string, adminOnly bool) (*models.Membership, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	m, err := lookupMembership(ctx, store, groupID, userID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("user %s in group %s: %w", userID, groupID, models.ErrUnauthorized)
	}
	if adminOnly && !m.IsAdmin() {
		return nil, fmt.Errorf("user %s is not an admin of group %s: %w", userID, groupID, models.ErrUnauthorized)
	}
	return m, nil
}
