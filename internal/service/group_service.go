// Package service exposes the ledger over Connect RPC.
package service

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/middleware"
)

const GroupServiceName = "splitledger.v1.GroupService"

const (
	GroupServiceCreateGroupProcedure      = "/" + GroupServiceName + "/CreateGroup"
	GroupServiceListGroupsProcedure       = "/" + GroupServiceName + "/ListGroups"
	GroupServiceGetGroupProcedure         = "/" + GroupServiceName + "/GetGroup"
	GroupServiceUpdateGroupProcedure      = "/" + GroupServiceName + "/UpdateGroup"
	GroupServiceAddMemberProcedure        = "/" + GroupServiceName + "/AddMember"
	GroupServiceAddMemberByEmailProcedure = "/" + GroupServiceName + "/AddMemberByEmail"
)

// GroupService implements the Connect GroupService.
type GroupService struct {
	groups *ledger.Groups
}

// NewGroupService creates a new GroupService.
func NewGroupService(groups *ledger.Groups) *GroupService {
	return &GroupService{groups: groups}
}

// NewGroupServiceHandler builds the HTTP handler serving every GroupService procedure.
func NewGroupServiceHandler(svc *GroupService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = HandlerOptions(opts...)
	mux := http.NewServeMux()
	mux.Handle(GroupServiceCreateGroupProcedure, connect.NewUnaryHandler(GroupServiceCreateGroupProcedure, svc.CreateGroup, opts...))
	mux.Handle(GroupServiceListGroupsProcedure, connect.NewUnaryHandler(GroupServiceListGroupsProcedure, svc.ListGroups, opts...))
	mux.Handle(GroupServiceGetGroupProcedure, connect.NewUnaryHandler(GroupServiceGetGroupProcedure, svc.GetGroup, opts...))
	mux.Handle(GroupServiceUpdateGroupProcedure, connect.NewUnaryHandler(GroupServiceUpdateGroupProcedure, svc.UpdateGroup, opts...))
	mux.Handle(GroupServiceAddMemberProcedure, connect.NewUnaryHandler(GroupServiceAddMemberProcedure, svc.AddMember, opts...))
	mux.Handle(GroupServiceAddMemberByEmailProcedure, connect.NewUnaryHandler(GroupServiceAddMemberByEmailProcedure, svc.AddMemberByEmail, opts...))
	return "/" + GroupServiceName + "/", mux
}

// CreateGroup creates a new group with the caller as admin.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Info("CreateGroup request received", "name", req.Msg.Name, "user_id", userID)

	group, err := s.groups.CreateGroup(ctx, userID, req.Msg.Name, req.Msg.Description)
	if err != nil {
		return nil, toConnectError("CreateGroup", err)
	}

	return connect.NewResponse(&CreateGroupResponse{Group: toGroup(group)}), nil
}

// ListGroups lists the caller's groups.
func (s *GroupService) ListGroups(ctx context.Context, req *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Info("ListGroups request received", "user_id", userID)

	groups, err := s.groups.ListGroupsForUser(ctx, userID)
	if err != nil {
		return nil, toConnectError("ListGroups", err)
	}

	slog.Info("ListGroups successful", "count", len(groups))
	return connect.NewResponse(&ListGroupsResponse{Groups: toGroups(groups)}), nil
}

// GetGroup returns a group with its members.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Info("GetGroup request received", "group_id", req.Msg.GroupID, "user_id", userID)

	details, err := s.groups.GetGroupWithMembers(ctx, userID, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError("GetGroup", err)
	}

	members := make([]Member, len(details.Members))
	for i, m := range details.Members {
		members[i] = toMember(m.Membership, m.User)
	}
	return connect.NewResponse(&GetGroupResponse{Group: toGroup(&details.Group), Members: members}), nil
}

// UpdateGroup renames a group. Admins only.
func (s *GroupService) UpdateGroup(ctx context.Context, req *connect.Request[UpdateGroupRequest]) (*connect.Response[UpdateGroupResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Info("UpdateGroup request received", "group_id", req.Msg.GroupID, "name", req.Msg.Name, "user_id", userID)

	group, err := s.groups.UpdateGroup(ctx, userID, req.Msg.GroupID, req.Msg.Name, req.Msg.Description)
	if err != nil {
		return nil, toConnectError("UpdateGroup", err)
	}

	return connect.NewResponse(&UpdateGroupResponse{Group: toGroup(group)}), nil
}

// AddMember adds a known user to the group.
func (s *GroupService) AddMember(ctx context.Context, req *connect.Request[AddMemberRequest]) (*connect.Response[AddMemberResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Info("AddMember request received", "group_id", req.Msg.GroupID, "target", req.Msg.UserID, "user_id", userID)

	m, err := s.groups.AddMember(ctx, req.Msg.GroupID, userID, req.Msg.UserID)
	if err != nil {
		return nil, toConnectError("AddMember", err)
	}

	return connect.NewResponse(&AddMemberResponse{Member: toMember(*m, nil)}), nil
}

// AddMemberByEmail adds the user registered under an email address.
func (s *GroupService) AddMemberByEmail(ctx context.Context, req *connect.Request[AddMemberByEmailRequest]) (*connect.Response[AddMemberResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Info("AddMemberByEmail request received", "group_id", req.Msg.GroupID, "user_id", userID)

	m, err := s.groups.AddMemberByEmail(ctx, req.Msg.GroupID, userID, req.Msg.Email)
	if err != nil {
		return nil, toConnectError("AddMemberByEmail", err)
	}

	return connect.NewResponse(&AddMemberResponse{Member: toMember(*m, nil)}), nil
}
