package memory

import (
	"context"
	"sync"
	"time"

	"github.com/JeandreDegenaar/q1-profiles/internal/domain/user"
	"github.com/google/uuid"
)

// UsersRepo is a mutex-map stand-in for the postgres repo with the same
// contract, used by handler and router tests.
type UsersRepo struct {
	mu    sync.RWMutex
	items map[string]user.User
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items: make(map[string]user.User),
	}
}

func (r *UsersRepo) GetByID(_ context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]

	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

func (r *UsersRepo) GetByUsername(_ context.Context, username string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if u.Username == username {
			return u, nil
		}
	}

	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) GetByUsernameOrEmail(_ context.Context, username, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if u.Username == username || u.Email == email {
			return u, nil
		}
	}

	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) Create(_ context.Context, n user.NewUser) (user.User, error) {
	n.Normalize()

	if err := n.Validate(); err != nil {
		return user.User{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.Username == n.Username || existing.Email == n.Email {
			return user.User{}, user.ErrConflict
		}
	}

	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Username:     n.Username,
		PasswordHash: n.PasswordHash,
		Email:        n.Email,
		Phone:        n.Phone,
		DOB:          n.DOB,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	r.items[u.ID] = u

	return u, nil
}

func (r *UsersRepo) UpdateByID(_ context.Context, id string, upd user.ProfileUpdate) (user.User, error) {
	upd.Normalize()

	if err := upd.Validate(); err != nil {
		return user.User{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]

	if !ok {
		return user.User{}, user.ErrNotFound
	}

	for otherID, existing := range r.items {
		if otherID == id {
			continue
		}
		if existing.Username == upd.Username || existing.Email == upd.Email {
			return user.User{}, user.ErrConflict
		}
	}

	u.Username = upd.Username
	u.Email = upd.Email
	u.Phone = upd.Phone
	u.DOB = upd.DOB
	u.UpdatedAt = time.Now().UTC()

	r.items[id] = u

	return u, nil
}

// Len reports the number of stored records; tests use it to assert that
// rejected requests left the store untouched.
func (r *UsersRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.items)
}
