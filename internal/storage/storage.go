// Package storage はユーザー・レビュー・セッションの保存先を抽象化します。
//
// インメモリ実装（開発・テスト用）と Redis 実装を提供し、
// どちらも同じインターフェースを満たします。
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound は対象のレコードが存在しない場合に返されます。
	ErrNotFound = errors.New("storage: not found")
	// ErrAlreadyExists は一意キーが既に使われている場合に返されます。
	ErrAlreadyExists = errors.New("storage: already exists")
)

// User は登録済みユーザーです。パスワードは平文で保持します。
type User struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Session はセッションIDに紐づくログイン状態です。
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserStore はユーザーの保存先です。
type UserStore interface {
	// CreateUser は username が未使用の場合に限り保存します。
	// 同時に呼ばれても成功するのは一件のみで、残りは ErrAlreadyExists を返します。
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, username string) (*User, error)
}

// ReviewStore は (isbn, username) をキーとしたレビューの保存先です。
type ReviewStore interface {
	// PutReview はレビューを保存し、新規作成だった場合に true を返します。
	PutReview(ctx context.Context, isbn, username, text string) (created bool, err error)
	DeleteReview(ctx context.Context, isbn, username string) error
	ListReviews(ctx context.Context, isbn string) (map[string]string, error)
}

// SessionStore はセッションIDをキーとしたセッションの保存先です。
type SessionStore interface {
	GetSession(ctx context.Context, id string) (*Session, error)
	// PutSession は既存のセッションを上書きします。ttl が 0 以下なら期限なし。
	PutSession(ctx context.Context, id string, session Session, ttl time.Duration) error
	DeleteSession(ctx context.Context, id string) error
}

// Store は全ストアをまとめたものです。
type Store interface {
	UserStore
	ReviewStore
	SessionStore
	Close() error
}
