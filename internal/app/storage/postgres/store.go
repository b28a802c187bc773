package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/CircleVault-Network/vault_engine/internal/app/domain/user"
	"github.com/CircleVault-Network/vault_engine/internal/app/domain/vault"
	"github.com/CircleVault-Network/vault_engine/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL. Membership and
// contribution maps are stored as JSONB; the vault row is the unit of
// atomicity, matching the engine's single-writer-per-key discipline.
type Store struct {
	db *sql.DB
}

var _ storage.DirectoryStore = (*Store)(nil)
var _ storage.VaultStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const uniqueViolation = "23505"

// identityKey mirrors the canonical form the memory store keys identities by.
// Identity columns persist this form; display casing lives in display_name.
func identityKey(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

func mapError(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return vault.ErrDuplicateRegistration
	}
	return err
}

// --- DirectoryStore ---------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.RegisteredAt.IsZero() {
		u.RegisteredAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cv_users (identity, display_name, admin, verified, registered_at)
		VALUES ($1, $2, $3, $4, $5)
	`, identityKey(u.Identity), u.DisplayName, u.Admin, u.Verified, u.RegisteredAt)
	if err != nil {
		return user.User{}, mapError(err, vault.ErrUserNotFound)
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE cv_users
		SET display_name = $2, admin = $3, verified = $4
		WHERE identity = $1
	`, identityKey(u.Identity), u.DisplayName, u.Admin, u.Verified)
	if err != nil {
		return user.User{}, mapError(err, vault.ErrUserNotFound)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return user.User{}, vault.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, identity string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT identity, display_name, admin, verified, registered_at
		FROM cv_users
		WHERE identity = $1
	`, identityKey(identity))

	var u user.User
	if err := row.Scan(&u.Identity, &u.DisplayName, &u.Admin, &u.Verified, &u.RegisteredAt); err != nil {
		return user.User{}, mapError(err, vault.ErrUserNotFound)
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT identity, display_name, admin, verified, registered_at
		FROM cv_users
		ORDER BY registered_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []user.User
	for rows.Next() {
		var u user.User
		if err := rows.Scan(&u.Identity, &u.DisplayName, &u.Admin, &u.Verified, &u.RegisteredAt); err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

// --- VaultStore -------------------------------------------------------------

func (s *Store) NextGoalID(ctx context.Context, owner string) (int64, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO cv_vault_sequences (owner, last_goal_id)
		VALUES ($1, 1)
		ON CONFLICT (owner)
		DO UPDATE SET last_goal_id = cv_vault_sequences.last_goal_id + 1
		RETURNING last_goal_id
	`, identityKey(owner))

	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) CreateVault(ctx context.Context, v vault.Vault) (vault.Vault, error) {
	now := time.Now().UTC()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = v.CreatedAt

	cols, err := encodeVault(v)
	if err != nil {
		return vault.Vault{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cv_vaults (
			key, kind, status, creator, currency, goal_id, name, goal_amount,
			amount_saved, amount_per_period, achieved, start_time, end_time,
			last_saved_at, total_periods, frequency, total_participants,
			participants, membership, last_saved_by, contributed, withdrawn,
			current_period, period_contributed, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26
		)
	`, v.Key, v.Kind, v.Status, v.Goal.Creator, v.Goal.Currency, v.Goal.GoalID,
		v.Goal.Name, v.Goal.GoalAmount, v.Goal.AmountSaved, v.Goal.AmountPerPeriod,
		v.Goal.Achieved, v.Goal.StartTime, v.Goal.EndTime, toNullTime(v.Goal.LastSavedAt),
		v.Goal.TotalPeriods, v.Goal.Frequency, v.TotalParticipants,
		cols.participants, cols.membership, cols.lastSavedBy, cols.contributed,
		cols.withdrawn, v.CurrentPeriod, cols.periodContributed, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return vault.Vault{}, mapError(err, vault.ErrVaultNotFound)
	}
	return v, nil
}

func (s *Store) UpdateVault(ctx context.Context, v vault.Vault) (vault.Vault, error) {
	v.UpdatedAt = time.Now().UTC()

	cols, err := encodeVault(v)
	if err != nil {
		return vault.Vault{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE cv_vaults
		SET status = $2, amount_saved = $3, achieved = $4, last_saved_at = $5,
			participants = $6, membership = $7, last_saved_by = $8,
			contributed = $9, withdrawn = $10, current_period = $11,
			period_contributed = $12, updated_at = $13
		WHERE key = $1
	`, v.Key, v.Status, v.Goal.AmountSaved, v.Goal.Achieved, toNullTime(v.Goal.LastSavedAt),
		cols.participants, cols.membership, cols.lastSavedBy, cols.contributed,
		cols.withdrawn, v.CurrentPeriod, cols.periodContributed, v.UpdatedAt)
	if err != nil {
		return vault.Vault{}, mapError(err, vault.ErrVaultNotFound)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return vault.Vault{}, vault.ErrVaultNotFound
	}
	return v, nil
}

func (s *Store) GetVault(ctx context.Context, key string) (vault.Vault, error) {
	row := s.db.QueryRowContext(ctx, vaultSelect+` WHERE key = $1`, key)
	v, err := scanVault(row)
	if err != nil {
		return vault.Vault{}, mapError(err, vault.ErrVaultNotFound)
	}
	return v, nil
}

func (s *Store) ListVaultsByOwner(ctx context.Context, owner string) ([]vault.Vault, error) {
	// creator keeps the factory-supplied casing, so match on the canonical form
	rows, err := s.db.QueryContext(ctx, vaultSelect+` WHERE LOWER(TRIM(creator)) = $1 ORDER BY goal_id`, identityKey(owner))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectVaults(rows)
}

func (s *Store) ListOpenVaults(ctx context.Context) ([]vault.Vault, error) {
	rows, err := s.db.QueryContext(ctx, vaultSelect+` WHERE status NOT IN ('expired','closed') ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectVaults(rows)
}

func (s *Store) AppendContribution(ctx context.Context, c vault.Contribution) (vault.Contribution, error) {
	if c.SavedAt.IsZero() {
		c.SavedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cv_contributions (id, vault_key, participant, amount, period, saved_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ID, c.VaultKey, c.Participant, c.Amount, c.Period, c.SavedAt)
	if err != nil {
		return vault.Contribution{}, mapError(err, vault.ErrVaultNotFound)
	}
	return c, nil
}

func (s *Store) ListContributions(ctx context.Context, vaultKey string) ([]vault.Contribution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, vault_key, participant, amount, period, saved_at
		FROM cv_contributions
		WHERE vault_key = $1
		ORDER BY saved_at
	`, vaultKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []vault.Contribution
	for rows.Next() {
		var c vault.Contribution
		if err := rows.Scan(&c.ID, &c.VaultKey, &c.Participant, &c.Amount, &c.Period, &c.SavedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// --- row mapping ------------------------------------------------------------

const vaultSelect = `
	SELECT key, kind, status, creator, currency, goal_id, name, goal_amount,
		amount_saved, amount_per_period, achieved, start_time, end_time,
		last_saved_at, total_periods, frequency, total_participants,
		participants, membership, last_saved_by, contributed, withdrawn,
		current_period, period_contributed, created_at, updated_at
	FROM cv_vaults`

type vaultColumns struct {
	participants      []byte
	membership        []byte
	lastSavedBy       []byte
	contributed       []byte
	withdrawn         []byte
	periodContributed []byte
}

func encodeVault(v vault.Vault) (vaultColumns, error) {
	var (
		cols vaultColumns
		err  error
	)
	if cols.participants, err = json.Marshal(v.Participants); err != nil {
		return vaultColumns{}, err
	}
	if cols.membership, err = json.Marshal(v.Membership); err != nil {
		return vaultColumns{}, err
	}
	if cols.lastSavedBy, err = json.Marshal(v.LastSavedBy); err != nil {
		return vaultColumns{}, err
	}
	if cols.contributed, err = json.Marshal(v.Contributed); err != nil {
		return vaultColumns{}, err
	}
	if cols.withdrawn, err = json.Marshal(v.Withdrawn); err != nil {
		return vaultColumns{}, err
	}
	if cols.periodContributed, err = json.Marshal(v.PeriodContributed); err != nil {
		return vaultColumns{}, err
	}
	return cols, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVault(row rowScanner) (vault.Vault, error) {
	var (
		v           vault.Vault
		lastSavedAt sql.NullTime
		cols        vaultColumns
	)
	err := row.Scan(&v.Key, &v.Kind, &v.Status, &v.Goal.Creator, &v.Goal.Currency,
		&v.Goal.GoalID, &v.Goal.Name, &v.Goal.GoalAmount, &v.Goal.AmountSaved,
		&v.Goal.AmountPerPeriod, &v.Goal.Achieved, &v.Goal.StartTime, &v.Goal.EndTime,
		&lastSavedAt, &v.Goal.TotalPeriods, &v.Goal.Frequency, &v.TotalParticipants,
		&cols.participants, &cols.membership, &cols.lastSavedBy, &cols.contributed,
		&cols.withdrawn, &v.CurrentPeriod, &cols.periodContributed, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return vault.Vault{}, err
	}
	if lastSavedAt.Valid {
		v.Goal.LastSavedAt = lastSavedAt.Time.UTC()
	}
	if len(cols.participants) > 0 {
		_ = json.Unmarshal(cols.participants, &v.Participants)
	}
	if len(cols.membership) > 0 {
		_ = json.Unmarshal(cols.membership, &v.Membership)
	}
	if len(cols.lastSavedBy) > 0 {
		_ = json.Unmarshal(cols.lastSavedBy, &v.LastSavedBy)
	}
	if len(cols.contributed) > 0 {
		_ = json.Unmarshal(cols.contributed, &v.Contributed)
	}
	if len(cols.withdrawn) > 0 {
		_ = json.Unmarshal(cols.withdrawn, &v.Withdrawn)
	}
	if len(cols.periodContributed) > 0 {
		_ = json.Unmarshal(cols.periodContributed, &v.PeriodContributed)
	}
	return v, nil
}

func collectVaults(rows *sql.Rows) ([]vault.Vault, error) {
	var result []vault.Vault
	for rows.Next() {
		v, err := scanVault(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

func toNullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
