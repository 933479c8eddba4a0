package service

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/models"
)

const ExpenseServiceName = "splitledger.v1.ExpenseService"

const (
	ExpenseServicePreviewSplitProcedure  = "/" + ExpenseServiceName + "/PreviewSplit"
	ExpenseServiceCreateExpenseProcedure = "/" + ExpenseServiceName + "/CreateExpense"
	ExpenseServiceGetExpenseProcedure    = "/" + ExpenseServiceName + "/GetExpense"
	ExpenseServiceListExpensesProcedure  = "/" + ExpenseServiceName + "/ListExpenses"
)

// PublicProcedures may be called without a token.
var PublicProcedures = []string{ExpenseServicePreviewSplitProcedure}

// ExpenseService implements the Connect ExpenseService.
type ExpenseService struct {
	expenses *ledger.Expenses
}

// NewExpenseService creates a new ExpenseService.
func NewExpenseService(expenses *ledger.Expenses) *ExpenseService {
	return &ExpenseService{expenses: expenses}
}

// NewExpenseServiceHandler builds the HTTP handler serving every ExpenseService procedure.
func NewExpenseServiceHandler(svc *ExpenseService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = HandlerOptions(opts...)
	mux := http.NewServeMux()
	mux.Handle(ExpenseServicePreviewSplitProcedure, connect.NewUnaryHandler(ExpenseServicePreviewSplitProcedure, svc.PreviewSplit, opts...))
	mux.Handle(ExpenseServiceCreateExpenseProcedure, connect.NewUnaryHandler(ExpenseServiceCreateExpenseProcedure, svc.CreateExpense, opts...))
	mux.Handle(ExpenseServiceGetExpenseProcedure, connect.NewUnaryHandler(ExpenseServiceGetExpenseProcedure, svc.GetExpense, opts...))
	mux.Handle(ExpenseServiceListExpensesProcedure, connect.NewUnaryHandler(ExpenseServiceListExpensesProcedure, svc.ListExpenses, opts...))
	return "/" + ExpenseServiceName + "/", mux
}

// PreviewSplit computes a split without recording anything.
func (s *ExpenseService) PreviewSplit(ctx context.Context, req *connect.Request[PreviewSplitRequest]) (*connect.Response[PreviewSplitResponse], error) {
	slog.Info("PreviewSplit request received",
		"total", req.Msg.Total,
		"strategy", req.Msg.Strategy,
		"participants", len(req.Msg.Participants),
	)

	shares, err := s.expenses.PreviewSplit(req.Msg.Total, models.SplitStrategy(req.Msg.Strategy), toParticipants(req.Msg.Participants))
	if err != nil {
		return nil, toConnectError("PreviewSplit", err)
	}
	return connect.NewResponse(&PreviewSplitResponse{Shares: toShares(shares)}), nil
}

// CreateExpense splits and records an expense.
func (s *ExpenseService) CreateExpense(ctx context.Context, req *connect.Request[CreateExpenseRequest]) (*connect.Response[ExpenseResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Info("CreateExpense request received",
		"group_id", req.Msg.GroupID,
		"total", req.Msg.Total,
		"strategy", req.Msg.Strategy,
		"participants", len(req.Msg.Participants),
		"user_id", userID,
	)

	draft := models.ExpenseDraft{
		Description:  req.Msg.Description,
		Total:        req.Msg.Total,
		PayerID:      req.Msg.PayerID,
		Strategy:     models.SplitStrategy(req.Msg.Strategy),
		Participants: toParticipants(req.Msg.Participants),
	}
	expense, err := s.expenses.RecordExpense(ctx, userID, req.Msg.GroupID, draft)
	if err != nil {
		return nil, toConnectError("CreateExpense", err)
	}
	return connect.NewResponse(&ExpenseResponse{Expense: toExpense(expense)}), nil
}

// GetExpense returns a recorded expense.
func (s *ExpenseService) GetExpense(ctx context.Context, req *connect.Request[GetExpenseRequest]) (*connect.Response[ExpenseResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Info("GetExpense request received", "expense_id", req.Msg.ExpenseID, "user_id", userID)

	expense, err := s.expenses.GetExpense(ctx, userID, req.Msg.ExpenseID)
	if err != nil {
		return nil, toConnectError("GetExpense", err)
	}
	return connect.NewResponse(&ExpenseResponse{Expense: toExpense(expense)}), nil
}

// ListExpenses returns a group's expenses, newest first.
func (s *ExpenseService) ListExpenses(ctx context.Context, req *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Info("ListExpenses request received", "group_id", req.Msg.GroupID, "user_id", userID)

	expenses, err := s.expenses.ListExpenses(ctx, userID, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError("ListExpenses", err)
	}

	out := make([]Expense, len(expenses))
	for i, e := range expenses {
		out[i] = toExpense(e)
	}
	slog.Info("ListExpenses successful", "group_id", req.Msg.GroupID, "count", len(out))
	return connect.NewResponse(&ListExpensesResponse{Expenses: out}), nil
}
