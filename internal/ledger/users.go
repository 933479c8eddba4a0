package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmynk/splitledger/internal/blob"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

const maxPhoneLength = 32

// Users maintains the user directory fed from identity claims.
type Users struct {
	store storage.UserStore
	blobs blob.Store
}

// NewUsers creates a Users backed by store, resolving images through blobs.
func NewUsers(store storage.UserStore, blobs blob.Store) *Users {
	return &Users{store: store, blobs: blobs}
}

// EnsureUser records the identity's email and name, creating the entry on first sight.
// An empty name keeps the stored one.
func (u *Users) EnsureUser(ctx context.Context, userID, email, name string) (*models.User, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	user := &models.User{ID: userID, Email: normalizeEmail(email), Name: sanitizeText(name)}
	if err := u.store.UpsertUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to sync user: %w", err)
	}
	return u.store.GetUserByID(ctx, userID)
}

// GetCurrentUser returns the user's profile with the image URL resolved.
func (u *Users) GetCurrentUser(ctx context.Context, userID string) (*models.Profile, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	user, err := u.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.profile(user), nil
}

// UpdateProfile sets the user's display name and phone number.
func (u *Users) UpdateProfile(ctx context.Context, userID, name, phone string) (*models.Profile, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	name, err := cleanName("name", name)
	if err != nil {
		return nil, err
	}
	phone = sanitizeText(phone)
	if len(phone) > maxPhoneLength {
		return nil, models.NewInputError("phone_too_long", "phone must be at most %d characters", maxPhoneLength)
	}

	if err := u.store.UpdateUserProfile(ctx, userID, name, phone); err != nil {
		return nil, err
	}
	slog.Info("Profile updated", "user_id", userID)
	return u.GetCurrentUser(ctx, userID)
}

// SearchUsersByEmail finds users by exact email. An empty query matches nobody.
func (u *Users) SearchUsersByEmail(ctx context.Context, actingUserID, email string) ([]*models.User, error) {
	if err := requireUser(actingUserID); err != nil {
		return nil, err
	}
	email = normalizeEmail(email)
	if email == "" {
		return nil, nil
	}
	users, err := u.store.FindUsersByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}

// GenerateUploadURL returns a location the user can upload a profile image to.
func (u *Users) GenerateUploadURL(ctx context.Context, userID string) (blob.Upload, error) {
	if err := requireUser(userID); err != nil {
		return blob.Upload{}, err
	}
	upload, err := u.blobs.UploadURL(ctx, userID)
	if err != nil {
		return blob.Upload{}, fmt.Errorf("failed to generate upload URL: %w", err)
	}
	return upload, nil
}

// SetProfileImage stores an uploaded image reference. An empty ref clears the image.
func (u *Users) SetProfileImage(ctx context.Context, userID, ref string) (*models.Profile, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if ref != "" && !u.blobs.Owns(userID, ref) {
		return nil, models.NewInputError("image_ref_foreign", "image reference does not belong to the caller")
	}
	if err := u.store.SetUserImage(ctx, userID, ref); err != nil {
		return nil, err
	}
	return u.GetCurrentUser(ctx, userID)
}

func (u *Users) profile(user *models.User) *models.Profile {
	return &models.Profile{User: *user, ImageURL: u.blobs.ResolveURL(user.ImageRef)}
}
