package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/exprgate/exprgate/internal/auth"
	"github.com/exprgate/exprgate/internal/model"
	"github.com/exprgate/exprgate/internal/repository"
)

// AccountReader loads an account by API key.
type AccountReader interface {
	GetAccount(ctx context.Context, key string) (*model.Account, error)
}

// AccountHandler serves account profile requests.
type AccountHandler struct {
	accounts AccountReader
	logger   *slog.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts AccountReader, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger}
}

// User handles GET /user. The profile is returned as a list of
// [first_name, last_name, email] rows; an unknown key yields an empty list.
func (h *AccountHandler) User(w http.ResponseWriter, r *http.Request) {
	key := auth.APIKeyFromContext(r.Context())

	account, err := h.accounts.GetAccount(r.Context(), key)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			writeSuccess(w, [][]string{})
			return
		}
		handleError(w, r, h.logger, err)
		return
	}

	writeSuccess(w, [][]string{account.Profile()})
}
