package service

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/middleware"
)

const UserServiceName = "splitledger.v1.UserService"

const (
	UserServiceGetCurrentUserProcedure     = "/" + UserServiceName + "/GetCurrentUser"
	UserServiceUpdateProfileProcedure      = "/" + UserServiceName + "/UpdateProfile"
	UserServiceSearchUsersByEmailProcedure = "/" + UserServiceName + "/SearchUsersByEmail"
	UserServiceGenerateUploadURLProcedure  = "/" + UserServiceName + "/GenerateUploadURL"
	UserServiceSetProfileImageProcedure    = "/" + UserServiceName + "/SetProfileImage"
)

// UserService implements the Connect UserService.
type UserService struct {
	users *ledger.Users
}

// NewUserService creates a new UserService.
func NewUserService(users *ledger.Users) *UserService {
	return &UserService{users: users}
}

// NewUserServiceHandler builds the HTTP handler serving every UserService procedure.
func NewUserServiceHandler(svc *UserService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = HandlerOptions(opts...)
	mux := http.NewServeMux()
	mux.Handle(UserServiceGetCurrentUserProcedure, connect.NewUnaryHandler(UserServiceGetCurrentUserProcedure, svc.GetCurrentUser, opts...))
	mux.Handle(UserServiceUpdateProfileProcedure, connect.NewUnaryHandler(UserServiceUpdateProfileProcedure, svc.UpdateProfile, opts...))
	mux.Handle(UserServiceSearchUsersByEmailProcedure, connect.NewUnaryHandler(UserServiceSearchUsersByEmailProcedure, svc.SearchUsersByEmail, opts...))
	mux.Handle(UserServiceGenerateUploadURLProcedure, connect.NewUnaryHandler(UserServiceGenerateUploadURLProcedure, svc.GenerateUploadURL, opts...))
	mux.Handle(UserServiceSetProfileImageProcedure, connect.NewUnaryHandler(UserServiceSetProfileImageProcedure, svc.SetProfileImage, opts...))
	return "/" + UserServiceName + "/", mux
}

// GetCurrentUser syncs the caller's token claims into the directory and
// returns their profile. Clients call it after sign-in.
func (s *UserService) GetCurrentUser(ctx context.Context, req *connect.Request[GetCurrentUserRequest]) (*connect.Response[UserResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Info("GetCurrentUser request received", "user_id", userID)

	if _, err := s.users.EnsureUser(ctx, userID, middleware.GetEmail(ctx), middleware.GetName(ctx)); err != nil {
		return nil, toConnectError("GetCurrentUser", err)
	}
	profile, err := s.users.GetCurrentUser(ctx, userID)
	if err != nil {
		return nil, toConnectError("GetCurrentUser", err)
	}
	return connect.NewResponse(&UserResponse{User: toProfile(profile)}), nil
}

// UpdateProfile sets the caller's name and phone.
func (s *UserService) UpdateProfile(ctx context.Context, req *connect.Request[UpdateProfileRequest]) (*connect.Response[UserResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Info("UpdateProfile request received", "user_id", userID)

	profile, err := s.users.UpdateProfile(ctx, userID, req.Msg.Name, req.Msg.Phone)
	if err != nil {
		return nil, toConnectError("UpdateProfile", err)
	}
	return connect.NewResponse(&UserResponse{User: toProfile(profile)}), nil
}

// SearchUsersByEmail finds users by exact email.
func (s *UserService) SearchUsersByEmail(ctx context.Context, req *connect.Request[SearchUsersByEmailRequest]) (*connect.Response[SearchUsersByEmailResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Info("SearchUsersByEmail request received", "user_id", userID)

	users, err := s.users.SearchUsersByEmail(ctx, userID, req.Msg.Email)
	if err != nil {
		return nil, toConnectError("SearchUsersByEmail", err)
	}

	out := make([]User, len(users))
	for i, u := range users {
		out[i] = toUser(u)
	}
	return connect.NewResponse(&SearchUsersByEmailResponse{Users: out}), nil
}

// GenerateUploadURL returns where to upload a new profile image.
func (s *UserService) GenerateUploadURL(ctx context.Context, req *connect.Request[GenerateUploadURLRequest]) (*connect.Response[GenerateUploadURLResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Info("GenerateUploadURL request received", "user_id", userID)

	upload, err := s.users.GenerateUploadURL(ctx, userID)
	if err != nil {
		return nil, toConnectError("GenerateUploadURL", err)
	}
	return connect.NewResponse(toUploadResponse(upload)), nil
}

// SetProfileImage stores the uploaded image reference.
func (s *UserService) SetProfileImage(ctx context.Context, req *connect.Request[SetProfileImageRequest]) (*connect.Response[UserResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Info("SetProfileImage request received", "user_id", userID)

	profile, err := s.users.SetProfileImage(ctx, userID, req.Msg.Ref)
	if err != nil {
		return nil, toConnectError("SetProfileImage", err)
	}
	return connect.NewResponse(&UserResponse{User: toProfile(profile)}), nil
}
