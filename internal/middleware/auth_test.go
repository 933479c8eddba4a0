package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/models"
)

type ping struct{}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr error
	}{
		{"Bearer abc", "abc", nil},
		{"bearer abc", "abc", nil},
		{"", "", auth.ErrMissingToken},
		{"Basic abc", "", auth.ErrInvalidToken},
		{"Bearer", "", auth.ErrInvalidToken},
		{"Bearer ", "", auth.ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, err := bearerToken(tt.header)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("bearerToken(%q) error = %v, want %v", tt.header, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("bearerToken(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestRequireAuth(t *testing.T) {
	manager := auth.NewJWTManager("test-secret", time.Hour)
	token, err := manager.Generate(&models.User{ID: "user-1", Email: "a@example.com", Name: "Alice"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	var seen context.Context
	next := func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		seen = ctx
		return connect.NewResponse(&ping{}), nil
	}
	handler := RequireAuth(manager)(next)

	tests := []struct {
		name     string
		header   string
		wantCode connect.Code
	}{
		{"valid token", "Bearer " + token, 0},
		{"missing header", "", connect.CodeUnauthenticated},
		{"bad token", "Bearer garbage", connect.CodeUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := connect.NewRequest(&ping{})
			if tt.header != "" {
				req.Header().Set("Authorization", tt.header)
			}
			_, err := handler(context.Background(), req)
			if tt.wantCode != 0 {
				if connect.CodeOf(err) != tt.wantCode {
					t.Errorf("Expected %v, got %v", tt.wantCode, err)
				}
				if seen != nil {
					t.Error("Handler must not run without a valid token")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if GetUserID(seen) != "user-1" || GetEmail(seen) != "a@example.com" || GetName(seen) != "Alice" {
				t.Errorf("Claims not propagated: %q %q %q", GetUserID(seen), GetEmail(seen), GetName(seen))
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	manager := auth.NewJWTManager("test-secret", time.Hour)

	var userID string
	next := func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		userID = GetUserID(ctx)
		return connect.NewResponse(&ping{}), nil
	}

	req := connect.NewRequest(&ping{})
	req.Header().Set("Authorization", "Bearer garbage")
	if _, err := OptionalAuth(manager)(next)(context.Background(), req); err != nil {
		t.Fatalf("OptionalAuth rejected request: %v", err)
	}
	if userID != "" {
		t.Errorf("Expected no user for invalid token, got %q", userID)
	}
}
