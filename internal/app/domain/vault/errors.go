package vault

import "errors"

// Engine error taxonomy. Every engine operation either fully commits or
// fails with one of these, leaving state untouched.
var (
	ErrDuplicateRegistration = errors.New("identity already registered")
	ErrUserNotFound          = errors.New("user not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInvalidParameters     = errors.New("invalid parameters")

	ErrVaultNotFound = errors.New("vault not found")
	ErrVaultClosed   = errors.New("vault is closed")

	ErrOutOfWindow      = errors.New("outside the savings window")
	ErrTooEarly         = errors.New("period has not elapsed since last deposit")
	ErrGoalAchieved     = errors.New("goal already achieved")
	ErrExceedsGoal      = errors.New("deposit exceeds goal amount")
	ErrWithdrawalLocked = errors.New("goal not achieved and window still open")
	ErrAlreadyWithdrawn = errors.New("share already withdrawn")

	ErrNotAMember        = errors.New("caller is not an accepted participant")
	ErrCapacityReached   = errors.New("participant capacity reached")
	ErrMembershipExists  = errors.New("candidate already has a membership state")
	ErrNoPendingInvite   = errors.New("candidate has no pending invite")
	ErrMembershipDecided = errors.New("membership state already decided")

	ErrTransferFailed = errors.New("token transfer failed")
)
