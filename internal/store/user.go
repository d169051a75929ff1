package store

import (
	"context"
	"strings"

	"github.com/inkpress/apiserver/internal/kv"
	"github.com/inkpress/apiserver/types"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	kv kv.Store
}

func NewUserRepository(store kv.Store) *UserRepository {
	return &UserRepository{kv: store}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	return getRecord[types.User](ctx, r.kv, UserPrefix+id)
}

// GetByEmail scans every user and returns the first whose email matches,
// ignoring case.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	users, err := r.List(ctx)
	if err != nil {
		return types.User{}, err
	}
	for _, user := range users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return types.User{}, ErrNotFound
}

func (r *UserRepository) List(ctx context.Context) ([]types.User, error) {
	return listRecords[types.User](ctx, r.kv, UserPrefix)
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	if err := putRecord(ctx, r.kv, UserPrefix+user.ID, user); err != nil {
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	if err := exists(ctx, r.kv, UserPrefix+user.ID); err != nil {
		return types.User{}, err
	}
	if err := putRecord(ctx, r.kv, UserPrefix+user.ID, user); err != nil {
		return types.User{}, err
	}
	return user, nil
}
