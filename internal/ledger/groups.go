package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/notify"
	"github.com/mmynk/splitledger/internal/storage"
)

// Groups manages groups and their memberships.
type Groups struct {
	store    storage.Store
	notifier notify.Notifier
}

// NewGroups creates a Groups backed by store. notifier may be nil.
func NewGroups(store storage.Store, notifier notify.Notifier) *Groups {
	return &Groups{store: store, notifier: notifier}
}

// CreateGroup creates a group with founderID as its first admin.
func (g *Groups) CreateGroup(ctx context.Context, founderID, name, description string) (*models.Group, error) {
	if err := requireUser(founderID); err != nil {
		return nil, err
	}
	name, err := cleanName("name", name)
	if err != nil {
		return nil, err
	}
	description, err = cleanDescription(description)
	if err != nil {
		return nil, err
	}

	group := &models.Group{Name: name, Description: description}
	if err := g.store.CreateGroupWithFounder(ctx, group, founderID); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	metrics.MembershipsCreated.WithLabelValues(metrics.SourceFounder).Inc()

	slog.Info("Group created", "group_id", group.ID, "founder", founderID)
	notify.Deliver(ctx, g.notifier, notify.NewEvent(notify.GroupCreated, group.ID, founderID, ""))
	return group, nil
}

// AddMember adds targetUserID to the group as a member.
// Any member may add others; the target must exist in the user directory.
func (g *Groups) AddMember(ctx context.Context, groupID, actingUserID, targetUserID string) (*models.Membership, error) {
	if _, err := requireMember(ctx, g.store, groupID, actingUserID, false); err != nil {
		return nil, err
	}
	return g.addMember(ctx, groupID, actingUserID, targetUserID)
}

// AddMemberByEmail resolves email through the user directory, then adds that user.
func (g *Groups) AddMemberByEmail(ctx context.Context, groupID, actingUserID, email string) (*models.Membership, error) {
	if _, err := requireMember(ctx, g.store, groupID, actingUserID, false); err != nil {
		return nil, err
	}
	email = normalizeEmail(email)
	if email == "" {
		return nil, models.NewInputError("email_required", "email must not be empty")
	}

	users, err := g.store.FindUsersByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("user with email %s: %w", email, models.ErrNotFound)
	}
	return g.addMember(ctx, groupID, actingUserID, users[0].ID)
}

func (g *Groups) addMember(ctx context.Context, groupID, actingUserID, targetUserID string) (*models.Membership, error) {
	if targetUserID == "" {
		return nil, models.NewInputError("user_id_required", "user to add must be specified")
	}
	if _, err := g.store.GetUserByID(ctx, targetUserID); err != nil {
		return nil, err
	}

	m := &models.Membership{GroupID: groupID, UserID: targetUserID, Role: models.RoleMember}
	inserted, err := g.store.AddMembership(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}
	if !inserted {
		return nil, fmt.Errorf("user %s in group %s: %w", targetUserID, groupID, models.ErrAlreadyExists)
	}
	metrics.MembershipsCreated.WithLabelValues(metrics.SourceAdded).Inc()

	slog.Info("Member added", "group_id", groupID, "user_id", targetUserID, "added_by", actingUserID)
	notify.Deliver(ctx, g.notifier, notify.NewEvent(notify.MemberAdded, groupID, actingUserID, targetUserID))
	return m, nil
}

// ListGroupsForUser returns the groups userID belongs to.
func (g *Groups) ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	groups, err := g.store.ListGroupsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

// GetGroupWithMembers returns the group and its members in join order.
// Non-members get NotFound.
func (g *Groups) GetGroupWithMembers(ctx context.Context, userID, groupID string) (*models.GroupDetails, error) {
	if _, err := requireVisible(ctx, g.store, groupID, userID); err != nil {
		return nil, err
	}

	group, err := g.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	memberships, err := g.store.ListMemberships(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	ids := make([]string, len(memberships))
	for i, m := range memberships {
		ids[i] = m.UserID
	}
	users, err := g.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load member profiles: %w", err)
	}

	details := &models.GroupDetails{Group: *group, Members: make([]models.MemberDetail, len(memberships))}
	for i, m := range memberships {
		details.Members[i] = models.MemberDetail{Membership: *m, User: users[m.UserID]}
	}
	return details, nil
}

// UpdateGroup renames a group and replaces its description. Admins only.
func (g *Groups) UpdateGroup(ctx context.Context, actingUserID, groupID, name, description string) (*models.Group, error) {
	if _, err := requireMember(ctx, g.store, groupID, actingUserID, true); err != nil {
		return nil, err
	}
	name, err := cleanName("name", name)
	if err != nil {
		return nil, err
	}
	description, err = cleanDescription(description)
	if err != nil {
		return nil, err
	}

	group, err := g.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	group.Name = name
	group.Description = description
	if err := g.store.UpdateGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to update group: %w", err)
	}

	slog.Info("Group updated", "group_id", groupID, "updated_by", actingUserID)
	return group, nil
}
