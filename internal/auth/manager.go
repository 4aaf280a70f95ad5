// Package auth は認証・認可機能を提供します。
//
// ログインで署名トークンを発行してセッションに紐づけ、
// 保護されたルートの手前でセッションのトークンを検証します。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/bookshelf/internal/storage"
)

const (
	SessionCookieName = "bs_session"
	sessionKeyID      = "sid"
)

// ContextUserKey は、ハンドラー間でログイン済みユーザー名を共有するためのキーです。
const ContextUserKey = "auth.user"

// Authenticator は資格情報を照合します。
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (bool, error)
}

// Options は Manager の挙動を調整します。
type Options struct {
	// SessionTTL はセッションレコードの保持期間です（0以下なら期限なし）。
	SessionTTL time.Duration
	// RejectStatus は資格情報不一致時のHTTPステータスです。
	RejectStatus int
	Logger       *log.Logger
}

// Manager は認証処理と状態をまとめた構造体です。
type Manager struct {
	users        Authenticator
	sessions     storage.SessionStore
	tokens       TokenIssuer
	sessionTTL   time.Duration
	rejectStatus int
	logger       *log.Logger
	now          func() time.Time
}

// NewManager は認証マネージャーを作成します。
func NewManager(users Authenticator, sessions storage.SessionStore, tokens TokenIssuer, opts Options) *Manager {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusUnauthorized
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Manager{
		users:        users,
		sessions:     sessions,
		tokens:       tokens,
		sessionTTL:   opts.SessionTTL,
		rejectStatus: opts.RejectStatus,
		logger:       opts.Logger,
		now:          time.Now,
	}
}

// IssueSession は資格情報を照合し、トークンを発行して新しいセッションIDに紐づけます。
// prevSID に紐づいていた以前のセッションは破棄されます。
// 照合に失敗した場合、セッションは作成も変更もされません。
func (m *Manager) IssueSession(ctx context.Context, prevSID, username, password string) (sid, token string, err error) {
	if username == "" || password == "" {
		return "", "", ErrMissingCredentials
	}

	ok, err := m.users.Authenticate(ctx, username, password)
	if err != nil {
		return "", "", fmt.Errorf("failed to authenticate: %w", err)
	}
	if !ok {
		return "", "", ErrInvalidCredentials
	}

	now := m.now()
	token, _, err = m.tokens.Issue(username, now)
	if err != nil {
		return "", "", err
	}

	sid = uuid.NewString()
	if err := m.sessions.PutSession(ctx, sid, storage.Session{
		Token:     token,
		Username:  username,
		CreatedAt: now.UTC(),
	}, m.sessionTTL); err != nil {
		return "", "", fmt.Errorf("failed to save session: %w", err)
	}

	if prevSID != "" && prevSID != sid {
		if err := m.sessions.DeleteSession(ctx, prevSID); err != nil {
			m.logger.Printf("failed to drop previous session: %v", err)
		}
	}
	return sid, token, nil
}

// Authorize はセッションに紐づくトークンを検証し、埋め込まれたユーザー名を返します。
func (m *Manager) Authorize(ctx context.Context, sid string) (string, error) {
	if sid == "" {
		return "", ErrNotLoggedIn
	}
	sess, err := m.sessions.GetSession(ctx, sid)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", ErrNotLoggedIn
		}
		return "", fmt.Errorf("failed to load session: %w", err)
	}
	if sess.Token == "" {
		return "", ErrNotLoggedIn
	}

	claims, err := m.tokens.Verify(sess.Token, m.now())
	if err != nil {
		return "", err
	}
	return claims.Username, nil
}

// EndSession はセッションを破棄します。
func (m *Manager) EndSession(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	return m.sessions.DeleteSession(ctx, sid)
}
