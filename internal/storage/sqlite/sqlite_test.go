package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "splitledger-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func createGroup(t *testing.T, store *SQLiteStore, name, founder string) *models.Group {
	t.Helper()
	group := &models.Group{Name: name}
	if err := store.CreateGroupWithFounder(context.Background(), group, founder); err != nil {
		t.Fatalf("CreateGroupWithFounder failed: %v", err)
	}
	return group
}

func TestGroups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateGroupWithFounder makes founder admin", func(t *testing.T) {
		group := createGroup(t, store, "Ski Trip", "alice")
		if group.ID == "" {
			t.Error("Expected group ID to be generated")
		}
		if group.CreatedAt == 0 {
			t.Error("Expected CreatedAt to be set")
		}
		if group.CreatedBy != "alice" {
			t.Errorf("Expected CreatedBy alice, got %s", group.CreatedBy)
		}

		m, err := store.GetMembership(ctx, group.ID, "alice")
		if err != nil {
			t.Fatalf("GetMembership failed: %v", err)
		}
		if !m.IsAdmin() {
			t.Errorf("Expected founder to be admin, got %s", m.Role)
		}
	})

	t.Run("GetGroup returns NotFound for unknown ID", func(t *testing.T) {
		_, err := store.GetGroup(ctx, "missing")
		if !errors.Is(err, models.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("UpdateGroup patches name and description", func(t *testing.T) {
		group := createGroup(t, store, "Old", "alice")
		group.Name = "New"
		group.Description = "renamed"
		if err := store.UpdateGroup(ctx, group); err != nil {
			t.Fatalf("UpdateGroup failed: %v", err)
		}
		got, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if got.Name != "New" || got.Description != "renamed" {
			t.Errorf("Unexpected group after update: %+v", got)
		}

		err = store.UpdateGroup(ctx, &models.Group{ID: "missing", Name: "x"})
		if !errors.Is(err, models.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ListGroupsForUser only returns joined groups", func(t *testing.T) {
		a := createGroup(t, store, "Carol A", "carol")
		b := createGroup(t, store, "Carol B", "carol")
		createGroup(t, store, "Dave", "dave")

		groups, err := store.ListGroupsForUser(ctx, "carol")
		if err != nil {
			t.Fatalf("ListGroupsForUser failed: %v", err)
		}
		if len(groups) != 2 {
			t.Fatalf("Expected 2 groups, got %d", len(groups))
		}
		ids := map[string]bool{groups[0].ID: true, groups[1].ID: true}
		if !ids[a.ID] || !ids[b.ID] {
			t.Errorf("Unexpected groups: %v", ids)
		}

		groups, err = store.ListGroupsForUser(ctx, "nobody")
		if err != nil {
			t.Fatalf("ListGroupsForUser failed: %v", err)
		}
		if len(groups) != 0 {
			t.Errorf("Expected no groups, got %d", len(groups))
		}
	})
}

func TestMemberships(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := createGroup(t, store, "Flat", "alice")

	t.Run("AddMembership reports inserted once", func(t *testing.T) {
		m := &models.Membership{GroupID: group.ID, UserID: "bob", Role: models.RoleMember}
		inserted, err := store.AddMembership(ctx, m)
		if err != nil {
			t.Fatalf("AddMembership failed: %v", err)
		}
		if !inserted {
			t.Error("Expected first insert to report inserted")
		}

		inserted, err = store.AddMembership(ctx, &models.Membership{GroupID: group.ID, UserID: "bob", Role: models.RoleAdmin})
		if err != nil {
			t.Fatalf("AddMembership failed: %v", err)
		}
		if inserted {
			t.Error("Expected duplicate insert to report existing")
		}

		got, err := store.GetMembership(ctx, group.ID, "bob")
		if err != nil {
			t.Fatalf("GetMembership failed: %v", err)
		}
		if got.Role != models.RoleMember {
			t.Errorf("Expected role to stay member, got %s", got.Role)
		}
	})

	t.Run("AddMembership rejects unknown group", func(t *testing.T) {
		_, err := store.AddMembership(ctx, &models.Membership{GroupID: "missing", UserID: "bob", Role: models.RoleMember})
		if err == nil {
			t.Error("Expected foreign key failure for unknown group")
		}
	})

	t.Run("concurrent AddMembership inserts exactly once", func(t *testing.T) {
		var g errgroup.Group
		results := make([]bool, 20)
		for i := range results {
			i := i
			g.Go(func() error {
				inserted, err := store.AddMembership(ctx, &models.Membership{GroupID: group.ID, UserID: "carol", Role: models.RoleMember})
				results[i] = inserted
				return err
			})
		}
		if err := g.Wait(); err != nil {
			t.Fatalf("AddMembership failed: %v", err)
		}
		count := 0
		for _, ok := range results {
			if ok {
				count++
			}
		}
		if count != 1 {
			t.Errorf("Expected exactly one insert, got %d", count)
		}
	})

	t.Run("ListMemberships in join order", func(t *testing.T) {
		members, err := store.ListMemberships(ctx, group.ID)
		if err != nil {
			t.Fatalf("ListMemberships failed: %v", err)
		}
		want := []string{"alice", "bob", "carol"}
		if len(members) != len(want) {
			t.Fatalf("Expected %d members, got %d", len(want), len(members))
		}
		for i, m := range members {
			if m.UserID != want[i] {
				t.Errorf("Member %d: expected %s, got %s", i, want[i], m.UserID)
			}
		}
	})

	t.Run("GetMembership returns NotFound for outsider", func(t *testing.T) {
		_, err := store.GetMembership(ctx, group.ID, "mallory")
		if !errors.Is(err, models.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestInviteCodes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("SetInviteCodeIfAbsent keeps the first code", func(t *testing.T) {
		group := createGroup(t, store, "Trip", "alice")
		code, err := store.SetInviteCodeIfAbsent(ctx, group.ID, "first")
		if err != nil {
			t.Fatalf("SetInviteCodeIfAbsent failed: %v", err)
		}
		if code != "first" {
			t.Errorf("Expected first, got %s", code)
		}

		code, err = store.SetInviteCodeIfAbsent(ctx, group.ID, "second")
		if err != nil {
			t.Fatalf("SetInviteCodeIfAbsent failed: %v", err)
		}
		if code != "first" {
			t.Errorf("Expected stored code to stay first, got %s", code)
		}

		got, err := store.GetGroupByInviteCode(ctx, "first")
		if err != nil {
			t.Fatalf("GetGroupByInviteCode failed: %v", err)
		}
		if got.ID != group.ID {
			t.Errorf("Expected group %s, got %s", group.ID, got.ID)
		}
	})

	t.Run("code used by another group is a conflict", func(t *testing.T) {
		a := createGroup(t, store, "A", "alice")
		b := createGroup(t, store, "B", "bob")
		if _, err := store.SetInviteCodeIfAbsent(ctx, a.ID, "shared"); err != nil {
			t.Fatalf("SetInviteCodeIfAbsent failed: %v", err)
		}
		_, err := store.SetInviteCodeIfAbsent(ctx, b.ID, "shared")
		if !errors.Is(err, models.ErrStorageConflict) {
			t.Errorf("Expected ErrStorageConflict, got %v", err)
		}
		err = store.ReplaceInviteCode(ctx, b.ID, "shared")
		if !errors.Is(err, models.ErrStorageConflict) {
			t.Errorf("Expected ErrStorageConflict on replace, got %v", err)
		}
	})

	t.Run("ReplaceInviteCode invalidates the old code", func(t *testing.T) {
		group := createGroup(t, store, "Rotate", "alice")
		if _, err := store.SetInviteCodeIfAbsent(ctx, group.ID, "old-code"); err != nil {
			t.Fatalf("SetInviteCodeIfAbsent failed: %v", err)
		}
		if err := store.ReplaceInviteCode(ctx, group.ID, "new-code"); err != nil {
			t.Fatalf("ReplaceInviteCode failed: %v", err)
		}
		if _, err := store.GetGroupByInviteCode(ctx, "old-code"); !errors.Is(err, models.ErrInvalidCode) {
			t.Errorf("Expected ErrInvalidCode for old code, got %v", err)
		}
		if _, err := store.GetGroupByInviteCode(ctx, "new-code"); err != nil {
			t.Errorf("Expected new code to resolve, got %v", err)
		}
	})

	t.Run("unknown group", func(t *testing.T) {
		_, err := store.SetInviteCodeIfAbsent(ctx, "missing", "code")
		if !errors.Is(err, models.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
		if _, err := store.GetGroupByInviteCode(ctx, "nope"); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("Expected ErrNotFound kind, got %v", err)
		}
	})
}

func TestExpenses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := createGroup(t, store, "Dinner", "alice")

	pct := decimal.RequireFromString("33.34")
	expense := &models.Expense{
		GroupID:     group.ID,
		Description: "Pizza",
		Total:       money.New(1000),
		Strategy:    models.SplitPercent,
		PayerID:     "alice",
		CreatedBy:   "alice",
		Shares: []models.ExpenseShare{
			{MemberID: "alice", Owed: money.New(334), Input: &pct},
			{MemberID: "bob", Owed: money.New(333)},
			{MemberID: "carol", Owed: money.New(333)},
		},
	}

	t.Run("CreateExpense then GetExpense round trips", func(t *testing.T) {
		if err := store.CreateExpense(ctx, expense); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
		if expense.ID == "" {
			t.Error("Expected expense ID to be generated")
		}

		got, err := store.GetExpense(ctx, expense.ID)
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		if !got.Total.Equal(expense.Total) {
			t.Errorf("Expected total %s, got %s", expense.Total, got.Total)
		}
		if got.Strategy != models.SplitPercent {
			t.Errorf("Expected PERCENT, got %s", got.Strategy)
		}
		if len(got.Shares) != 3 {
			t.Fatalf("Expected 3 shares, got %d", len(got.Shares))
		}
		if !got.SharesTotal().Equal(got.Total) {
			t.Errorf("Shares sum %s != total %s", got.SharesTotal(), got.Total)
		}
		if got.Shares[0].Input == nil || !got.Shares[0].Input.Equal(pct) {
			t.Errorf("Expected stored input %s, got %v", pct, got.Shares[0].Input)
		}
		if got.Shares[1].Input != nil {
			t.Errorf("Expected nil input, got %v", got.Shares[1].Input)
		}
	})

	t.Run("ListExpensesByGroup newest first", func(t *testing.T) {
		later := &models.Expense{
			GroupID:     group.ID,
			Description: "Taxi",
			Total:       money.New(500),
			Strategy:    models.SplitEqual,
			PayerID:     "bob",
			CreatedBy:   "bob",
			CreatedAt:   expense.CreatedAt + 10,
			Shares: []models.ExpenseShare{
				{MemberID: "alice", Owed: money.New(250)},
				{MemberID: "bob", Owed: money.New(250)},
			},
		}
		if err := store.CreateExpense(ctx, later); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}

		expenses, err := store.ListExpensesByGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("ListExpensesByGroup failed: %v", err)
		}
		if len(expenses) != 2 {
			t.Fatalf("Expected 2 expenses, got %d", len(expenses))
		}
		if expenses[0].ID != later.ID {
			t.Errorf("Expected newest expense first, got %s", expenses[0].Description)
		}
		for _, e := range expenses {
			if len(e.Shares) == 0 {
				t.Errorf("Expense %s has no shares loaded", e.Description)
			}
		}
	})

	t.Run("negative share is rejected atomically", func(t *testing.T) {
		bad := &models.Expense{
			GroupID:     group.ID,
			Description: "Bad",
			Total:       money.New(100),
			Strategy:    models.SplitExact,
			PayerID:     "alice",
			CreatedBy:   "alice",
			Shares: []models.ExpenseShare{
				{MemberID: "alice", Owed: money.New(200)},
				{MemberID: "bob", Owed: money.New(-100)},
			},
		}
		if err := store.CreateExpense(ctx, bad); err == nil {
			t.Fatal("Expected CreateExpense to fail")
		}
		if _, err := store.GetExpense(ctx, bad.ID); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("Expected no partial expense, got %v", err)
		}
	})

	t.Run("GetExpense returns NotFound", func(t *testing.T) {
		_, err := store.GetExpense(ctx, "missing")
		if !errors.Is(err, models.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("UpsertUser keeps name when empty", func(t *testing.T) {
		if err := store.UpsertUser(ctx, &models.User{ID: "u1", Email: "alice@example.com", Name: "Alice"}); err != nil {
			t.Fatalf("UpsertUser failed: %v", err)
		}
		if err := store.UpsertUser(ctx, &models.User{ID: "u1", Email: "alice@new.example.com"}); err != nil {
			t.Fatalf("UpsertUser failed: %v", err)
		}
		got, err := store.GetUserByID(ctx, "u1")
		if err != nil {
			t.Fatalf("GetUserByID failed: %v", err)
		}
		if got.Name != "Alice" {
			t.Errorf("Expected name Alice, got %q", got.Name)
		}
		if got.Email != "alice@new.example.com" {
			t.Errorf("Expected refreshed email, got %q", got.Email)
		}
	})

	t.Run("FindUsersByEmail ignores case", func(t *testing.T) {
		if err := store.UpsertUser(ctx, &models.User{ID: "u2", Email: "Bob@Example.com", Name: "Bob"}); err != nil {
			t.Fatalf("UpsertUser failed: %v", err)
		}
		users, err := store.FindUsersByEmail(ctx, "bob@example.com")
		if err != nil {
			t.Fatalf("FindUsersByEmail failed: %v", err)
		}
		if len(users) != 1 || users[0].ID != "u2" {
			t.Errorf("Expected u2, got %v", users)
		}
	})

	t.Run("email lookup uses the email index", func(t *testing.T) {
		rows, err := store.db.QueryContext(ctx, "EXPLAIN QUERY PLAN "+findUsersByEmailQuery, "bob@example.com")
		if err != nil {
			t.Fatalf("EXPLAIN failed: %v", err)
		}
		defer rows.Close()

		var plan []string
		for rows.Next() {
			var id, parent, notUsed int
			var detail string
			if err := rows.Scan(&id, &parent, &notUsed, &detail); err != nil {
				t.Fatalf("failed to scan plan: %v", err)
			}
			plan = append(plan, detail)
		}
		if err := rows.Err(); err != nil {
			t.Fatalf("failed to read plan: %v", err)
		}
		if !strings.Contains(strings.Join(plan, "\n"), "idx_users_email") {
			t.Errorf("Expected idx_users_email in plan, got %q", plan)
		}
	})

	t.Run("GetUsersByIDs omits unknown users", func(t *testing.T) {
		users, err := store.GetUsersByIDs(ctx, []string{"u1", "u2", "ghost"})
		if err != nil {
			t.Fatalf("GetUsersByIDs failed: %v", err)
		}
		if len(users) != 2 {
			t.Errorf("Expected 2 users, got %d", len(users))
		}
		if _, ok := users["ghost"]; ok {
			t.Error("Expected ghost to be omitted")
		}
	})

	t.Run("profile updates", func(t *testing.T) {
		if err := store.UpdateUserProfile(ctx, "u1", "Alice B", "+15551234"); err != nil {
			t.Fatalf("UpdateUserProfile failed: %v", err)
		}
		if err := store.SetUserImage(ctx, "u1", "profiles/u1/abc"); err != nil {
			t.Fatalf("SetUserImage failed: %v", err)
		}
		got, err := store.GetUserByID(ctx, "u1")
		if err != nil {
			t.Fatalf("GetUserByID failed: %v", err)
		}
		if got.Name != "Alice B" || got.Phone != "+15551234" || got.ImageRef != "profiles/u1/abc" {
			t.Errorf("Unexpected profile: %+v", got)
		}

		if err := store.SetUserImage(ctx, "ghost", "x"); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestPlaceholders(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, ""},
		{1, "?"},
		{3, "?, ?, ?"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.n), func(t *testing.T) {
			if got := placeholders(tt.n); got != tt.want {
				t.Errorf("placeholders(%d) = %q, want %q", tt.n, got, tt.want)
			}
		})
	}
}
