package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/user"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const userColumns = `
	id, name, COALESCE(biometric_id, ''), COALESCE(team_id::text, ''),
	office_start_minutes, office_end_minutes, payout_multiplier::text, is_active,
	created_at, updated_at`

type userRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) user.UserRepository {
	return &userRepository{db: db}
}

// GetByID implements user.UserRepository.
func (r *userRepository) GetByID(ctx context.Context, id string) (user.User, error) {
	q := GetQuerier(ctx, r.db)

	u, err := scanUser(q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrUserNotFound
		}
		return user.User{}, fmt.Errorf("failed to get user by id: %w", err)
	}
	return u, nil
}

// GetByBiometricID implements user.UserRepository.
func (r *userRepository) GetByBiometricID(ctx context.Context, biometricID string) (user.User, error) {
	q := GetQuerier(ctx, r.db)

	u, err := scanUser(q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE biometric_id = $1`, biometricID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrUserNotFound
		}
		return user.User{}, fmt.Errorf("failed to get user by biometric id: %w", err)
	}
	return u, nil
}

// ListActive implements user.UserRepository.
func (r *userRepository) ListActive(ctx context.Context) ([]user.User, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT `+userColumns+` FROM users WHERE is_active ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}
	defer rows.Close()

	users := make([]user.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

func scanUser(row pgx.Row) (user.User, error) {
	var (
		u                      user.User
		officeStart, officeEnd *int
		multiplier             string
	)
	err := row.Scan(
		&u.ID, &u.Name, &u.BiometricID, &u.TeamID,
		&officeStart, &officeEnd, &multiplier, &u.IsActive,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return user.User{}, err
	}
	u.OfficeStart = timeOfDayOrNil(officeStart)
	u.OfficeEnd = timeOfDayOrNil(officeEnd)
	if u.PayoutMultiplier, err = decimal.NewFromString(multiplier); err != nil {
		return user.User{}, fmt.Errorf("invalid payout multiplier %q: %w", multiplier, err)
	}
	return u, nil
}

type teamRepository struct {
	db *database.DB
}

func NewTeamRepository(db *database.DB) user.TeamRepository {
	return &teamRepository{db: db}
}

// GetByID implements user.TeamRepository.
func (r *teamRepository) GetByID(ctx context.Context, id string) (user.Team, error) {
	q := GetQuerier(ctx, r.db)

	var t user.Team
	err := q.QueryRow(ctx, `SELECT id, name FROM teams WHERE id = $1`, id).Scan(&t.ID, &t.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.Team{}, user.ErrTeamNotFound
		}
		return user.Team{}, fmt.Errorf("failed to get team by id: %w", err)
	}
	return t, nil
}
