package users

import "context"

type UserRepo interface {
	Upsert(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByIdentity(ctx context.Context, provider, userID string) (*User, error)
	SetBlocked(ctx context.Context, id string, blocked bool) error
	SetLoggedIn(ctx context.Context, id string, loggedIn bool) error
}
