package ledger

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/notify"
)

func TestNewInviteCode(t *testing.T) {
	pattern := regexp.MustCompile(`^[a-z2-7]{26}$`)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := NewInviteCode()
		if err != nil {
			t.Fatalf("NewInviteCode failed: %v", err)
		}
		if !pattern.MatchString(code) {
			t.Fatalf("Unexpected code format %q", code)
		}
		if seen[code] {
			t.Fatalf("Duplicate code %q", code)
		}
		seen[code] = true
	}
}

func TestGetOrCreateInviteCode(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()
	l.addUsers(t, "alice", "bob")
	group := l.newGroup(t, "alice", "bob")

	t.Run("stable across calls", func(t *testing.T) {
		code, err := l.invites.GetOrCreateInviteCode(ctx, "alice", group.ID)
		if err != nil {
			t.Fatalf("GetOrCreateInviteCode failed: %v", err)
		}
		if code == "" {
			t.Fatal("Expected a code")
		}
		again, err := l.invites.GetOrCreateInviteCode(ctx, "bob", group.ID)
		if err != nil {
			t.Fatalf("GetOrCreateInviteCode failed: %v", err)
		}
		if again != code {
			t.Errorf("Expected stable code %q, got %q", code, again)
		}
		got, err := l.invites.GetInviteCode(ctx, "bob", group.ID)
		if err != nil {
			t.Fatalf("GetInviteCode failed: %v", err)
		}
		if got != code {
			t.Errorf("GetInviteCode = %q, want %q", got, code)
		}
	})

	t.Run("non-member is unauthorized", func(t *testing.T) {
		_, err := l.invites.GetOrCreateInviteCode(ctx, "mallory", group.ID)
		if !errors.Is(err, models.ErrUnauthorized) {
			t.Errorf("Expected ErrUnauthorized, got %v", err)
		}
		_, err = l.invites.GetInviteCode(ctx, "mallory", group.ID)
		if !errors.Is(err, models.ErrUnauthorized) {
			t.Errorf("Expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("GetInviteCode is empty before generation", func(t *testing.T) {
		other := l.newGroup(t, "alice")
		code, err := l.invites.GetInviteCode(ctx, "alice", other.ID)
		if err != nil {
			t.Fatalf("GetInviteCode failed: %v", err)
		}
		if code != "" {
			t.Errorf("Expected no code yet, got %q", code)
		}
	})
}

func TestGetOrCreateInviteCodeConcurrent(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()
	group := l.newGroup(t, "alice")

	// Separate Invites values do not share a singleflight group, so
	// convergence has to come from the store's compare-and-set.
	const workers = 16
	codes := make([]string, workers)
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		invites := NewInvites(l.store, nil)
		if i%2 == 0 {
			invites = l.invites
		}
		i := i
		g.Go(func() error {
			code, err := invites.GetOrCreateInviteCode(ctx, "alice", group.ID)
			codes[i] = code
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("GetOrCreateInviteCode failed: %v", err)
	}
	for i, code := range codes {
		if code != codes[0] {
			t.Errorf("Worker %d got %q, want %q", i, code, codes[0])
		}
	}
}

func TestInviteCodeCollisionRegenerates(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()
	first := l.newGroup(t, "alice")
	second := l.newGroup(t, "alice")

	taken, err := l.invites.GetOrCreateInviteCode(ctx, "alice", first.ID)
	if err != nil {
		t.Fatalf("GetOrCreateInviteCode failed: %v", err)
	}

	// The first two generated codes collide with the other group's code.
	calls := 0
	invites := NewInvites(l.store, nil)
	invites.newCode = func() (string, error) {
		calls++
		if calls <= 2 {
			return taken, nil
		}
		return fmt.Sprintf("fresh-code-%d", calls), nil
	}

	code, err := invites.GetOrCreateInviteCode(ctx, "alice", second.ID)
	if err != nil {
		t.Fatalf("GetOrCreateInviteCode failed: %v", err)
	}
	if code != "fresh-code-3" {
		t.Errorf("Expected fresh-code-3, got %q", code)
	}

	// Every attempt colliding gives up with a storage conflict.
	third := l.newGroup(t, "alice")
	invites.newCode = func() (string, error) { return taken, nil }
	_, err = invites.GetOrCreateInviteCode(ctx, "alice", third.ID)
	if !errors.Is(err, models.ErrStorageConflict) {
		t.Errorf("Expected ErrStorageConflict, got %v", err)
	}
}

func TestRotateInviteCode(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()
	l.addUsers(t, "alice", "bob", "carol")
	group := l.newGroup(t, "alice", "bob")

	old, err := l.invites.GetOrCreateInviteCode(ctx, "alice", group.ID)
	if err != nil {
		t.Fatalf("GetOrCreateInviteCode failed: %v", err)
	}

	_, err = l.invites.RotateInviteCode(ctx, "bob", group.ID)
	if !errors.Is(err, models.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized for non-admin, got %v", err)
	}

	rotated, err := l.invites.RotateInviteCode(ctx, "alice", group.ID)
	if err != nil {
		t.Fatalf("RotateInviteCode failed: %v", err)
	}
	if rotated == old {
		t.Error("Expected a new code after rotation")
	}
	if l.events.count(notify.InviteRotated) != 1 {
		t.Error("Expected an invite.rotated event")
	}

	if _, err := l.invites.RedeemInviteCode(ctx, "carol", old); !errors.Is(err, models.ErrInvalidCode) {
		t.Errorf("Expected old code to be invalid, got %v", err)
	}
	current, err := l.invites.GetOrCreateInviteCode(ctx, "bob", group.ID)
	if err != nil {
		t.Fatalf("GetOrCreateInviteCode failed: %v", err)
	}
	if current != rotated {
		t.Errorf("Expected %q after rotation, got %q", rotated, current)
	}
}

func TestRedeemInviteCode(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()

	// Group G created by A; A is the sole admin membership.
	group := l.newGroup(t, "alice")
	code, err := l.invites.GetOrCreateInviteCode(ctx, "alice", group.ID)
	if err != nil {
		t.Fatalf("GetOrCreateInviteCode failed: %v", err)
	}

	t.Run("first redemption joins as member", func(t *testing.T) {
		res, err := l.invites.RedeemInviteCode(ctx, "bob", "  "+code+"\n")
		if err != nil {
			t.Fatalf("RedeemInviteCode failed: %v", err)
		}
		if res.AlreadyMember {
			t.Error("Expected a new membership")
		}
		if res.Group.ID != group.ID {
			t.Errorf("Expected group %s, got %s", group.ID, res.Group.ID)
		}
		m, err := l.store.GetMembership(ctx, group.ID, "bob")
		if err != nil {
			t.Fatalf("GetMembership failed: %v", err)
		}
		if m.Role != models.RoleMember {
			t.Errorf("Expected member role, got %s", m.Role)
		}
		if l.events.count(notify.MemberJoined) != 1 {
			t.Error("Expected a member.joined event")
		}
	})

	t.Run("second redemption is idempotent", func(t *testing.T) {
		res, err := l.invites.RedeemInviteCode(ctx, "bob", code)
		if err != nil {
			t.Fatalf("RedeemInviteCode failed: %v", err)
		}
		if !res.AlreadyMember {
			t.Error("Expected AlreadyMember on second redemption")
		}
		if res.Group.ID != group.ID {
			t.Errorf("Expected same group, got %s", res.Group.ID)
		}
		if n := membershipCount(t, l, group.ID, "bob"); n != 1 {
			t.Errorf("Expected 1 membership for bob, got %d", n)
		}
	})

	t.Run("codes are case-insensitive", func(t *testing.T) {
		res, err := l.invites.RedeemInviteCode(ctx, "bob", strings.ToUpper(code))
		if err != nil {
			t.Fatalf("RedeemInviteCode failed: %v", err)
		}
		if !res.AlreadyMember || res.Group.ID != group.ID {
			t.Errorf("Expected existing membership in %s, got %+v", group.ID, res)
		}
	})

	t.Run("founder redeeming stays admin", func(t *testing.T) {
		res, err := l.invites.RedeemInviteCode(ctx, "alice", code)
		if err != nil {
			t.Fatalf("RedeemInviteCode failed: %v", err)
		}
		if !res.AlreadyMember {
			t.Error("Expected AlreadyMember for founder")
		}
		m, err := l.store.GetMembership(ctx, group.ID, "alice")
		if err != nil {
			t.Fatalf("GetMembership failed: %v", err)
		}
		if !m.IsAdmin() {
			t.Errorf("Expected founder to remain admin, got %s", m.Role)
		}
	})

	t.Run("invalid codes", func(t *testing.T) {
		for _, bad := range []string{"", "   ", "not-a-code"} {
			_, err := l.invites.RedeemInviteCode(ctx, "carol", bad)
			if !errors.Is(err, models.ErrInvalidCode) {
				t.Errorf("RedeemInviteCode(%q): expected ErrInvalidCode, got %v", bad, err)
			}
			if !errors.Is(err, models.ErrNotFound) {
				t.Errorf("RedeemInviteCode(%q): expected NotFound kind, got %v", bad, err)
			}
		}
	})

	t.Run("anonymous", func(t *testing.T) {
		_, err := l.invites.RedeemInviteCode(ctx, "", code)
		if !errors.Is(err, models.ErrUnauthenticated) {
			t.Errorf("Expected ErrUnauthenticated, got %v", err)
		}
	})
}

func TestRedeemInviteCodeConcurrent(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()
	group := l.newGroup(t, "alice")
	code, err := l.invites.GetOrCreateInviteCode(ctx, "alice", group.ID)
	if err != nil {
		t.Fatalf("GetOrCreateInviteCode failed: %v", err)
	}

	const workers = 16
	results := make([]*JoinResult, workers)
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		i := i
		g.Go(func() error {
			res, err := l.invites.RedeemInviteCode(ctx, "bob", code)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("RedeemInviteCode failed: %v", err)
	}

	joined := 0
	for _, res := range results {
		if res.Group.ID != group.ID {
			t.Errorf("Expected group %s, got %s", group.ID, res.Group.ID)
		}
		if !res.AlreadyMember {
			joined++
		}
	}
	if joined != 1 {
		t.Errorf("Expected exactly one new join, got %d", joined)
	}
	if n := membershipCount(t, l, group.ID, "bob"); n != 1 {
		t.Errorf("Expected 1 membership for bob, got %d", n)
	}
}
