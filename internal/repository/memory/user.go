package memory

import (
	"context"
	"sort"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/user"
)

type userRepository struct {
	store *Store
}

func NewUserRepository(store *Store) user.UserRepository {
	return &userRepository{store: store}
}

// GetByID implements user.UserRepository.
func (r *userRepository) GetByID(ctx context.Context, id string) (user.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	u, ok := r.store.users[id]
	if !ok {
		return user.User{}, user.ErrUserNotFound
	}
	return u, nil
}

// GetByBiometricID implements user.UserRepository.
func (r *userRepository) GetByBiometricID(ctx context.Context, biometricID string) (user.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, u := range r.store.users {
		if u.BiometricID == biometricID {
			return u, nil
		}
	}
	return user.User{}, user.ErrUserNotFound
}

// ListActive implements user.UserRepository.
func (r *userRepository) ListActive(ctx context.Context) ([]user.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]user.User, 0, len(r.store.users))
	for _, u := range r.store.users {
		if u.IsActive {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type teamRepository struct {
	store *Store
}

func NewTeamRepository(store *Store) user.TeamRepository {
	return &teamRepository{store: store}
}

// GetByID implements user.TeamRepository.
func (r *teamRepository) GetByID(ctx context.Context, id string) (user.Team, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	t, ok := r.store.teams[id]
	if !ok {
		return user.Team{}, user.ErrTeamNotFound
	}
	return t, nil
}
