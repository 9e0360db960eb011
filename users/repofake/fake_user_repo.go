package fakeuserrepo

import (
	"context"
	"sync"

	"github.com/google/uuid"

	autherrors "github.com/jrsteele09/go-auth-login/internal/errors"
	"github.com/jrsteele09/go-auth-login/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users       map[string]users.User
	identityIds map[string]string // identity key to user id
	lock        sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:       make(map[string]users.User),
		identityIds: make(map[string]string),
	}
}

func (ur *FakeUserRepo) Upsert(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	u := *user
	u.Identities = append([]users.LinkedIdentity(nil), user.Identities...)
	ur.users[user.ID] = u

	for _, id := range user.Identities {
		ur.identityIds[users.IdentityKey(id.Provider, id.UserID)] = user.ID
	}
	return nil
}

func (ur *FakeUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	return ur.get(id)
}

func (ur *FakeUserRepo) GetByIdentity(_ context.Context, provider, userID string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.identityIds[users.IdentityKey(provider, userID)]
	if !ok {
		return nil, autherrors.ErrUserNotFound
	}
	return ur.get(id)
}

func (ur *FakeUserRepo) SetBlocked(_ context.Context, id string, blocked bool) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	u, ok := ur.users[id]
	if !ok {
		return autherrors.ErrUserNotFound
	}
	u.Blocked = blocked
	ur.users[id] = u
	return nil
}

func (ur *FakeUserRepo) SetLoggedIn(_ context.Context, id string, loggedIn bool) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	u, ok := ur.users[id]
	if !ok {
		return autherrors.ErrUserNotFound
	}
	u.LoggedIn = loggedIn
	ur.users[id] = u
	return nil
}

// get must be called with the lock held
func (ur *FakeUserRepo) get(id string) (*users.User, error) {
	u, ok := ur.users[id]
	if !ok {
		return nil, autherrors.ErrUserNotFound
	}
	u.Identities = append([]users.LinkedIdentity(nil), u.Identities...)
	return &u, nil
}
