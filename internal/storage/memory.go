package storage

import (
	"context"
	"sync"
	"time"
)

type memorySession struct {
	session   Session
	expiresAt time.Time
}

// Memory はプロセス内メモリに保存する Store 実装です。再起動で内容は失われます。
type Memory struct {
	mu       sync.RWMutex
	users    map[string]User
	reviews  map[string]map[string]string
	sessions map[string]memorySession
	now      func() time.Time
}

// NewMemory は空の Memory を作成します。
func NewMemory() *Memory {
	return &Memory{
		users:    make(map[string]User),
		reviews:  make(map[string]map[string]string),
		sessions: make(map[string]memorySession),
		now:      time.Now,
	}
}

// CreateUser はユーザーを追加します。存在確認と追加は同一ロック内で行います。
func (m *Memory) CreateUser(ctx context.Context, user User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.Username]; ok {
		return ErrAlreadyExists
	}
	m.users[user.Username] = user
	return nil
}

// GetUser はユーザーを取得します。
func (m *Memory) GetUser(ctx context.Context, username string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[username]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

// PutReview はレビューを作成または上書きします。
func (m *Memory) PutReview(ctx context.Context, isbn, username, text string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	book, ok := m.reviews[isbn]
	if !ok {
		book = make(map[string]string)
		m.reviews[isbn] = book
	}
	_, exists := book[username]
	book[username] = text
	return !exists, nil
}

// DeleteReview はレビューを削除します。
func (m *Memory) DeleteReview(ctx context.Context, isbn, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	book, ok := m.reviews[isbn]
	if !ok {
		return ErrNotFound
	}
	if _, ok := book[username]; !ok {
		return ErrNotFound
	}
	delete(book, username)
	if len(book) == 0 {
		delete(m.reviews, isbn)
	}
	return nil
}

// ListReviews は書籍のレビューのコピーを返します。レビューがなければ空のマップです。
func (m *Memory) ListReviews(ctx context.Context, isbn string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(m.reviews[isbn]))
	for username, text := range m.reviews[isbn] {
		out[username] = text
	}
	return out, nil
}

// GetSession はセッションを取得します。期限切れのものは ErrNotFound です。
func (m *Memory) GetSession(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	entry, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	session := entry.session
	return &session, nil
}

// PutSession はセッションを保存します。
func (m *Memory) PutSession(ctx context.Context, id string, session Session, ttl time.Duration) error {
	entry := memorySession{session: session}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = entry
	return nil
}

// DeleteSession はセッションを削除します。存在しなくてもエラーにはしません。
func (m *Memory) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Close は何もしません。
func (m *Memory) Close() error {
	return nil
}
