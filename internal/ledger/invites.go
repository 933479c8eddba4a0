package ledger

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/notify"
	"github.com/mmynk/splitledger/internal/storage"
)

const (
	// inviteCodeBytes of entropy, 128 bits.
	inviteCodeBytes = 16

	// maxCodeAttempts bounds regeneration after a cross-group collision.
	maxCodeAttempts = 5
)

var codeEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewInviteCode returns a random 26-character lowercase base32 token.
func NewInviteCode() (string, error) {
	b := make([]byte, inviteCodeBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return strings.ToLower(codeEncoding.EncodeToString(b)), nil
}

// JoinResult is the outcome of redeeming an invite code.
type JoinResult struct {
	Group *models.Group

	// AlreadyMember is true when the user was a member before redeeming.
	AlreadyMember bool
}

// Invites manages group invite codes.
type Invites struct {
	store    storage.Store
	notifier notify.Notifier
	newCode  func() (string, error)

	// creating coalesces concurrent first-time code creation per group.
	creating singleflight.Group
}

// NewInvites creates an Invites backed by store. notifier may be nil.
func NewInvites(store storage.Store, notifier notify.Notifier) *Invites {
	return &Invites{store: store, notifier: notifier, newCode: NewInviteCode}
}

// GetOrCreateInviteCode returns the group's invite code, generating it on first use.
// Once a code exists it is returned unchanged; only RotateInviteCode replaces it.
func (i *Invites) GetOrCreateInviteCode(ctx context.Context, actingUserID, groupID string) (string, error) {
	if _, err := requireMember(ctx, i.store, groupID, actingUserID, false); err != nil {
		return "", err
	}
	group, err := i.store.GetGroup(ctx, groupID)
	if err != nil {
		return "", err
	}
	if group.InviteCode != "" {
		return group.InviteCode, nil
	}

	// The shared call must not fail because the first caller went away.
	flightCtx := context.WithoutCancel(ctx)
	v, err, _ := i.creating.Do(groupID, func() (any, error) {
		return i.createCode(flightCtx, groupID)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// createCode stores a fresh code with compare-and-set and returns the stored value,
// which is another caller's code if that one won.
func (i *Invites) createCode(ctx context.Context, groupID string) (string, error) {
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := i.newCode()
		if err != nil {
			return "", err
		}
		stored, err := i.store.SetInviteCodeIfAbsent(ctx, groupID, code)
		if errors.Is(err, models.ErrStorageConflict) {
			slog.Warn("Invite code collision, regenerating", "group_id", groupID, "attempt", attempt)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to store invite code: %w", err)
		}
		if stored == code {
			slog.Info("Invite code created", "group_id", groupID)
		}
		return stored, nil
	}
	return "", fmt.Errorf("no unique invite code after %d attempts: %w", maxCodeAttempts, models.ErrStorageConflict)
}

// GetInviteCode returns the current code, or "" when none has been generated.
func (i *Invites) GetInviteCode(ctx context.Context, actingUserID, groupID string) (string, error) {
	if _, err := requireMember(ctx, i.store, groupID, actingUserID, false); err != nil {
		return "", err
	}
	group, err := i.store.GetGroup(ctx, groupID)
	if err != nil {
		return "", err
	}
	return group.InviteCode, nil
}

// RotateInviteCode replaces the group's code, invalidating the old one. Admins only.
func (i *Invites) RotateInviteCode(ctx context.Context, actingUserID, groupID string) (string, error) {
	if _, err := requireMember(ctx, i.store, groupID, actingUserID, true); err != nil {
		return "", err
	}
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := i.newCode()
		if err != nil {
			return "", err
		}
		err = i.store.ReplaceInviteCode(ctx, groupID, code)
		if errors.Is(err, models.ErrStorageConflict) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to rotate invite code: %w", err)
		}

		slog.Info("Invite code rotated", "group_id", groupID, "rotated_by", actingUserID)
		notify.Deliver(ctx, i.notifier, notify.NewEvent(notify.InviteRotated, groupID, actingUserID, ""))
		return code, nil
	}
	return "", fmt.Errorf("no unique invite code after %d attempts: %w", maxCodeAttempts, models.ErrStorageConflict)
}

// RedeemInviteCode joins userID to the group owning code as a member.
// Redeeming again, or losing a race with a concurrent redemption, succeeds
// with AlreadyMember set and leaves exactly one membership.
func (i *Invites) RedeemInviteCode(ctx context.Context, userID, code string) (*JoinResult, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		metrics.InviteRedemptions.WithLabelValues(metrics.OutcomeInvalidCode).Inc()
		return nil, models.ErrInvalidCode
	}

	group, err := i.store.GetGroupByInviteCode(ctx, code)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			metrics.InviteRedemptions.WithLabelValues(metrics.OutcomeInvalidCode).Inc()
		}
		return nil, err
	}

	existing, err := lookupMembership(ctx, i.store, group.ID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		metrics.InviteRedemptions.WithLabelValues(metrics.OutcomeAlreadyMember).Inc()
		return &JoinResult{Group: group, AlreadyMember: true}, nil
	}

	inserted, err := i.store.AddMembership(ctx, &models.Membership{GroupID: group.ID, UserID: userID, Role: models.RoleMember})
	if err != nil {
		return nil, fmt.Errorf("failed to join group: %w", err)
	}
	if !inserted {
		metrics.InviteRedemptions.WithLabelValues(metrics.OutcomeAlreadyMember).Inc()
		return &JoinResult{Group: group, AlreadyMember: true}, nil
	}

	metrics.InviteRedemptions.WithLabelValues(metrics.OutcomeJoined).Inc()
	metrics.MembershipsCreated.WithLabelValues(metrics.SourceInvite).Inc()
	slog.Info("Member joined via invite", "group_id", group.ID, "user_id", userID)
	notify.Deliver(ctx, i.notifier, notify.NewEvent(notify.MemberJoined, group.ID, userID, userID))
	return &JoinResult{Group: group}, nil
}
