package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix        = "bookshelf:"
	usersKey         = keyPrefix + "users"
	reviewKeyPrefix  = keyPrefix + "reviews:"
	sessionKeyPrefix = keyPrefix + "session:"
)

// Redis は Redis に保存する Store 実装です。
//
// ユーザーは単一のハッシュ、レビューは書籍ごとのハッシュ、
// セッションは JSON 文字列（TTL付き）として保存します。
type Redis struct {
	rdb *redis.Client
}

// NewRedis は Redis を作成します。
func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

// OpenRedis は接続URLから Redis を作成し、疎通を確認します。
func OpenRedis(ctx context.Context, url string) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}
	return NewRedis(rdb), nil
}

// CreateUser は HSETNX で一意性を保証しながらユーザーを追加します。
func (s *Redis) CreateUser(ctx context.Context, user User) error {
	ok, err := s.rdb.HSetNX(ctx, usersKey, user.Username, user.Password).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyExists
	}
	return nil
}

// GetUser はユーザーを取得します。
func (s *Redis) GetUser(ctx context.Context, username string) (*User, error) {
	password, err := s.rdb.HGet(ctx, usersKey, username).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &User{Username: username, Password: password}, nil
}

// PutReview はレビューを作成または上書きします。
func (s *Redis) PutReview(ctx context.Context, isbn, username, text string) (bool, error) {
	added, err := s.rdb.HSet(ctx, reviewKey(isbn), username, text).Result()
	if err != nil {
		return false, err
	}
	return added == 1, nil
}

// DeleteReview はレビューを削除します。
func (s *Redis) DeleteReview(ctx context.Context, isbn, username string) error {
	removed, err := s.rdb.HDel(ctx, reviewKey(isbn), username).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return ErrNotFound
	}
	return nil
}

// ListReviews は書籍のレビューを返します。
func (s *Redis) ListReviews(ctx context.Context, isbn string) (map[string]string, error) {
	return s.rdb.HGetAll(ctx, reviewKey(isbn)).Result()
}

// GetSession はセッションを取得します。
func (s *Redis) GetSession(ctx context.Context, id string) (*Session, error) {
	data, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}
	return &session, nil
}

// PutSession はセッションを保存します。
func (s *Redis) PutSession(ctx context.Context, id string, session Session, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}
	return s.rdb.Set(ctx, sessionKey(id), payload, ttl).Err()
}

// DeleteSession はセッションを削除します。
func (s *Redis) DeleteSession(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, sessionKey(id)).Err()
}

// Close は接続を閉じます。
func (s *Redis) Close() error {
	return s.rdb.Close()
}

func reviewKey(isbn string) string {
	return reviewKeyPrefix + isbn
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}
