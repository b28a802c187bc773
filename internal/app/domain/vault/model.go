// Package vault defines the savings vault data model shared by the factory,
// the solo and group engines, and the registry.
package vault

import "time"

// Kind tags a vault as single-owner or multi-participant. The kind is fixed
// at creation; all engine dispatch happens on this tag.
type Kind string

const (
	KindSolo  Kind = "solo"
	KindGroup Kind = "group"
)

// Status is the lifecycle state of a vault.
//
// Solo vaults move Created -> Active -> Completed, group vaults
// Forming -> Active -> Completed. Vaults past their window without reaching
// the goal are marked Expired by the sweeper, and Closed is terminal once
// the saved funds have been withdrawn.
type Status string

const (
	StatusCreated   Status = "created"
	StatusForming   Status = "forming"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
	StatusClosed    Status = "closed"
)

// MembershipStatus tracks a candidate inside a group vault's invitation
// lifecycle. Invited is the only non-terminal state: a candidate leaves it
// via exactly one Accepted or Rejected transition and can never be invited
// again afterwards.
type MembershipStatus string

const (
	MembershipInvited  MembershipStatus = "invited"
	MembershipAccepted MembershipStatus = "accepted"
	MembershipRejected MembershipStatus = "rejected"
)

// Goal holds the target amount, schedule and window a vault is tracking.
// The shape is shared by solo and group vaults.
type Goal struct {
	Creator         string    `json:"creator"`
	Currency        string    `json:"currency"` // opaque token identifier
	GoalID          int64     `json:"goal_id"`  // unique per creator
	Name            string    `json:"name"`
	GoalAmount      int64     `json:"goal_amount"` // smallest token unit
	AmountSaved     int64     `json:"amount_saved"`
	AmountPerPeriod int64     `json:"amount_per_period"`
	Achieved        bool      `json:"achieved"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	LastSavedAt     time.Time `json:"last_saved_at"`
	TotalPeriods    int64     `json:"total_periods"`
	Frequency       Frequency `json:"frequency"`
}

// Vault is one instantiated savings goal plus its membership and
// contribution bookkeeping. The registry entry addressed by Key is the sole
// source of truth for this state.
type Vault struct {
	Key    string `json:"key"`
	Kind   Kind   `json:"kind"`
	Status Status `json:"status"`
	Goal   Goal   `json:"goal"`

	// TotalParticipants is the target member count (always 1 for solo).
	TotalParticipants int `json:"total_participants"`
	// Participants lists accepted members in acceptance order, creator first.
	Participants []string `json:"participants"`
	// Membership records the invitation state per candidate identity.
	Membership map[string]MembershipStatus `json:"membership,omitempty"`

	// LastSavedBy tracks each member's last successful deposit, used for the
	// per-member period gate on group vaults.
	LastSavedBy map[string]time.Time `json:"last_saved_by,omitempty"`
	// Contributed is each member's lifetime total.
	Contributed map[string]int64 `json:"contributed,omitempty"`
	// Withdrawn marks members who already took their share after closure.
	Withdrawn map[string]bool `json:"withdrawn,omitempty"`

	// CurrentPeriod and PeriodContributed track progress against the period
	// the vault last saw a deposit in. PeriodContributed is reset whenever a
	// deposit lands in a later period.
	CurrentPeriod     int64            `json:"current_period"`
	PeriodContributed map[string]int64 `json:"period_contributed,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Contribution is the audit record written for every successful deposit.
type Contribution struct {
	ID          string    `json:"id"`
	VaultKey    string    `json:"vault_key"`
	Participant string    `json:"participant"`
	Amount      int64     `json:"amount"`
	Period      int64     `json:"period"`
	SavedAt     time.Time `json:"saved_at"`
}

// ParticipantProgress reports how much of the current period's target a
// member has met, plus their lifetime total.
type ParticipantProgress struct {
	Identity    string `json:"identity"`
	PeriodSaved int64  `json:"period_saved"`
	PeriodGoal  int64  `json:"period_goal"`
	TotalSaved  int64  `json:"total_saved"`
}

// IsAccepted reports whether the identity is an accepted member.
func (v Vault) IsAccepted(identity string) bool {
	return v.Membership[identity] == MembershipAccepted
}

// PendingInvites counts candidates still in the Invited state.
func (v Vault) PendingInvites() int {
	n := 0
	for _, st := range v.Membership {
		if st == MembershipInvited {
			n++
		}
	}
	return n
}

// Open reports whether the vault still accepts engine operations.
func (v Vault) Open() bool {
	return v.Status != StatusClosed
}

// PeriodIndex returns the zero-based period the given instant falls in,
// relative to the goal window. Instants before the window map to period 0.
func (v Vault) PeriodIndex(now time.Time) int64 {
	if !now.After(v.Goal.StartTime) {
		return 0
	}
	return int64(now.Sub(v.Goal.StartTime) / v.Goal.Frequency.PeriodLength())
}

// Clone returns a deep copy so callers can hand vaults across goroutine
// boundaries without sharing the internal maps.
func (v Vault) Clone() Vault {
	v.Participants = append([]string(nil), v.Participants...)
	v.Membership = cloneMap(v.Membership)
	v.LastSavedBy = cloneMap(v.LastSavedBy)
	v.Contributed = cloneMap(v.Contributed)
	v.Withdrawn = cloneMap(v.Withdrawn)
	v.PeriodContributed = cloneMap(v.PeriodContributed)
	return v
}

func cloneMap[V any](src map[string]V) map[string]V {
	if src == nil {
		return nil
	}
	dst := make(map[string]V, len(src))
	for k, val := range src {
		dst[k] = val
	}
	return dst
}
