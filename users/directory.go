package users

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	autherrors "github.com/jrsteele09/go-auth-login/internal/errors"
	"github.com/jrsteele09/go-auth-login/provider"
)

// Directory maps verified provider identities onto local users.
type Directory struct {
	repo UserRepo
	now  func() time.Time
}

func NewDirectory(repo UserRepo) *Directory {
	return &Directory{repo: repo, now: time.Now}
}

// LoginOrRegister finds the user linked to identity or registers a new one.
// Users are matched only by (provider, user id); a provider-reported email
// never links an identity to an existing account. Blocked users are refused
// with ErrUserBlocked.
func (d *Directory) LoginOrRegister(ctx context.Context, identity *provider.Identity) (*User, error) {
	if identity == nil || identity.UserID == "" {
		return nil, autherrors.Wrapf(autherrors.ErrUserNotFound, "identity has no user id")
	}
	now := d.now()

	user, err := d.repo.GetByIdentity(ctx, identity.Provider, identity.UserID)
	switch {
	case errors.Is(err, autherrors.ErrUserNotFound):
		user, err = d.register(identity, now)
		if err != nil {
			return nil, err
		}
		log.Info().Str("user_id", user.ID).Str("provider", identity.Provider).Msg("registering user from provider identity")
	case err != nil:
		return nil, autherrors.Wrapf(err, "user lookup failed")
	}

	if user.Blocked {
		return nil, autherrors.Wrapf(autherrors.ErrUserBlocked, "user %s", user.ID)
	}

	user.LinkIdentity(identity.Provider, identity.UserID, now)
	if user.DisplayName == "" {
		user.DisplayName = identity.Name
	}
	if identity.Domain != "" {
		user.Domain = identity.Domain
	}
	user.LastLogin = now
	user.LoggedIn = true

	if err := d.repo.Upsert(ctx, user); err != nil {
		return nil, autherrors.Wrapf(err, "failed to store user")
	}
	return user, nil
}

// Logout marks the user as logged out.
func (d *Directory) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	return d.repo.SetLoggedIn(ctx, userID, false)
}

// Get returns the user with the given id.
func (d *Directory) Get(ctx context.Context, userID string) (*User, error) {
	return d.repo.GetByID(ctx, userID)
}

func (d *Directory) register(identity *provider.Identity, now time.Time) (*User, error) {
	password, err := RandomPassword()
	if err != nil {
		return nil, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, autherrors.Wrapf(err, "failed to hash password")
	}
	return &User{
		Email:        identity.Email,
		DisplayName:  identity.Name,
		Domain:       identity.Domain,
		PasswordHash: hash,
		DateJoined:   now,
	}, nil
}
