package httpapi

import (
	"errors"
	"net/http"

	"github.com/CircleVault-Network/vault_engine/internal/app/domain/vault"
)

// statusForError maps the engine's error taxonomy onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, vault.ErrVaultNotFound),
		errors.Is(err, vault.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, vault.ErrUnauthorized),
		errors.Is(err, vault.ErrNotAMember):
		return http.StatusForbidden
	case errors.Is(err, vault.ErrDuplicateRegistration),
		errors.Is(err, vault.ErrVaultClosed),
		errors.Is(err, vault.ErrGoalAchieved),
		errors.Is(err, vault.ErrCapacityReached),
		errors.Is(err, vault.ErrMembershipExists),
		errors.Is(err, vault.ErrMembershipDecided),
		errors.Is(err, vault.ErrNoPendingInvite),
		errors.Is(err, vault.ErrAlreadyWithdrawn):
		return http.StatusConflict
	case errors.Is(err, vault.ErrOutOfWindow),
		errors.Is(err, vault.ErrTooEarly),
		errors.Is(err, vault.ErrWithdrawalLocked):
		return http.StatusUnprocessableEntity
	case errors.Is(err, vault.ErrInvalidParameters),
		errors.Is(err, vault.ErrExceedsGoal):
		return http.StatusBadRequest
	case errors.Is(err, vault.ErrTransferFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeEngineError(w http.ResponseWriter, err error) {
	writeError(w, statusForError(err), err)
}
