package service

import (
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/models"
)

// ConstraintHeader carries the violated input constraint on InvalidArgument errors.
const ConstraintHeader = "Splitledger-Constraint"

// toConnectError maps a ledger error kind onto a Connect code.
// Unexpected errors are logged and hidden behind a generic message.
func toConnectError(op string, err error) error {
	var code connect.Code
	switch {
	case errors.Is(err, models.ErrUnauthenticated):
		code = connect.CodeUnauthenticated
	case errors.Is(err, models.ErrUnauthorized):
		code = connect.CodePermissionDenied
	case errors.Is(err, models.ErrNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, models.ErrAlreadyExists):
		code = connect.CodeAlreadyExists
	case errors.Is(err, models.ErrInvalidInput):
		code = connect.CodeInvalidArgument
	case errors.Is(err, models.ErrNotAMember):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, models.ErrStorageConflict):
		code = connect.CodeAborted
	default:
		slog.Error(op+" failed", "error", err)
		return connect.NewError(connect.CodeInternal, errors.New("internal error"))
	}

	slog.Warn(op+" rejected", "code", code, "error", err)
	connectErr := connect.NewError(code, err)
	var inputErr *models.InputError
	if errors.As(err, &inputErr) {
		connectErr.Meta().Set(ConstraintHeader, inputErr.Constraint)
	}
	return connectErr
}
