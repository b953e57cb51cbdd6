package userauth

import (
	"context"
	"errors"
)

var (
	ErrUserAlreadyExists = errors.New("user with such username already exists")
	ErrUserNotFound      = errors.New("user not found")
	ErrBadCredentials    = errors.New("invalid username or password")
	ErrUserBlocked       = errors.New("user is blocked")
	ErrReservedUsername  = errors.New("username is reserved")
)

type DB interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, userID string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdateUser(ctx context.Context, user User) error
}
