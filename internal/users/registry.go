// Package users はユーザー登録と資格情報の照合を提供します。
package users

import (
	"context"
	"errors"

	"github.com/yourusername/bookshelf/internal/storage"
)

var (
	// ErrMissingFields は username か password が空の場合に返されます。
	ErrMissingFields = errors.New("username and password are required")
	// ErrAlreadyExists は username が登録済みの場合に返されます。
	ErrAlreadyExists = errors.New("user already exists")
)

// Registry はユーザーの登録簿です。
type Registry struct {
	store storage.UserStore
}

// NewRegistry は Registry を作成します。
func NewRegistry(store storage.UserStore) *Registry {
	return &Registry{store: store}
}

// Register はユーザーを登録します。username は完全一致で一意です。
func (r *Registry) Register(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return ErrMissingFields
	}
	err := r.store.CreateUser(ctx, storage.User{Username: username, Password: password})
	if errors.Is(err, storage.ErrAlreadyExists) {
		return ErrAlreadyExists
	}
	return err
}

// Authenticate は username と password の組が登録済みかを返します。
// 大文字小文字を区別し、正規化は行いません。
func (r *Registry) Authenticate(ctx context.Context, username, password string) (bool, error) {
	user, err := r.store.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.Password == password, nil
}
