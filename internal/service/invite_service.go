package service

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/middleware"
)

const InviteServiceName = "splitledger.v1.InviteService"

const (
	InviteServiceGetOrCreateInviteCodeProcedure = "/" + InviteServiceName + "/GetOrCreateInviteCode"
	InviteServiceGetInviteCodeProcedure         = "/" + InviteServiceName + "/GetInviteCode"
	InviteServiceRotateInviteCodeProcedure      = "/" + InviteServiceName + "/RotateInviteCode"
	InviteServiceRedeemInviteCodeProcedure      = "/" + InviteServiceName + "/RedeemInviteCode"
)

// InviteService implements the Connect InviteService.
type InviteService struct {
	invites *ledger.Invites
}

// NewInviteService creates a new InviteService.
func NewInviteService(invites *ledger.Invites) *InviteService {
	return &InviteService{invites: invites}
}

// NewInviteServiceHandler builds the HTTP handler serving every InviteService procedure.
func NewInviteServiceHandler(svc *InviteService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = HandlerOptions(opts...)
	mux := http.NewServeMux()
	mux.Handle(InviteServiceGetOrCreateInviteCodeProcedure, connect.NewUnaryHandler(InviteServiceGetOrCreateInviteCodeProcedure, svc.GetOrCreateInviteCode, opts...))
	mux.Handle(InviteServiceGetInviteCodeProcedure, connect.NewUnaryHandler(InviteServiceGetInviteCodeProcedure, svc.GetInviteCode, opts...))
	mux.Handle(InviteServiceRotateInviteCodeProcedure, connect.NewUnaryHandler(InviteServiceRotateInviteCodeProcedure, svc.RotateInviteCode, opts...))
	mux.Handle(InviteServiceRedeemInviteCodeProcedure, connect.NewUnaryHandler(InviteServiceRedeemInviteCodeProcedure, svc.RedeemInviteCode, opts...))
	return "/" + InviteServiceName + "/", mux
}

// GetOrCreateInviteCode returns the group's code, creating it on first use.
func (s *InviteService) GetOrCreateInviteCode(ctx context.Context, req *connect.Request[InviteCodeRequest]) (*connect.Response[InviteCodeResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Info("GetOrCreateInviteCode request received", "group_id", req.Msg.GroupID, "user_id", userID)

	code, err := s.invites.GetOrCreateInviteCode(ctx, userID, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError("GetOrCreateInviteCode", err)
	}
	return connect.NewResponse(&InviteCodeResponse{Code: code}), nil
}

// GetInviteCode returns the group's code without creating one.
func (s *InviteService) GetInviteCode(ctx context.Context, req *connect.Request[InviteCodeRequest]) (*connect.Response[InviteCodeResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Info("GetInviteCode request received", "group_id", req.Msg.GroupID, "user_id", userID)

	code, err := s.invites.GetInviteCode(ctx, userID, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError("GetInviteCode", err)
	}
	return connect.NewResponse(&InviteCodeResponse{Code: code}), nil
}

// RotateInviteCode replaces the group's code. Admins only.
func (s *InviteService) RotateInviteCode(ctx context.Context, req *connect.Request[InviteCodeRequest]) (*connect.Response[InviteCodeResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Info("RotateInviteCode request received", "group_id", req.Msg.GroupID, "user_id", userID)

	code, err := s.invites.RotateInviteCode(ctx, userID, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError("RotateInviteCode", err)
	}
	return connect.NewResponse(&InviteCodeResponse{Code: code}), nil
}

// RedeemInviteCode joins the caller to the code's group.
func (s *InviteService) RedeemInviteCode(ctx context.Context, req *connect.Request[RedeemInviteCodeRequest]) (*connect.Response[RedeemInviteCodeResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Info("RedeemInviteCode request received", "user_id", userID)

	res, err := s.invites.RedeemInviteCode(ctx, userID, req.Msg.Code)
	if err != nil {
		return nil, toConnectError("RedeemInviteCode", err)
	}

	slog.Info("RedeemInviteCode successful", "group_id", res.Group.ID, "already_member", res.AlreadyMember)
	return connect.NewResponse(toJoinResponse(res)), nil
}
