package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/bookshelf/internal/storage"
	"github.com/yourusername/bookshelf/internal/users"
)

// tamperingStore は読み出したトークンの署名を壊します。
type tamperingStore struct {
	*storage.Memory
	enabled bool
}

func (s *tamperingStore) GetSession(ctx context.Context, id string) (*storage.Session, error) {
	sess, err := s.Memory.GetSession(ctx, id)
	if err != nil || !s.enabled {
		return sess, err
	}
	sess.Token += "x"
	return sess, nil
}

type fixture struct {
	manager  *Manager
	sessions *tamperingStore
	router   *gin.Engine
	now      time.Time
}

func newFixture(t *testing.T, rejectStatus int) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := storage.NewMemory()
	reg := users.NewRegistry(st)
	if err := reg.Register(context.Background(), "alice", "secret"); err != nil {
		t.Fatalf("Register alice: %v", err)
	}
	if err := reg.Register(context.Background(), "bob", "hunter2"); err != nil {
		t.Fatalf("Register bob: %v", err)
	}

	keys, err := DeriveKeys([]byte("test-secret"))
	if err != nil {
		t.Fatalf("DeriveKeys: %v", err)
	}
	issuer, err := NewJWTIssuer(keys.Token, time.Hour)
	if err != nil {
		t.Fatalf("NewJWTIssuer: %v", err)
	}

	f := &fixture{
		sessions: &tamperingStore{Memory: st},
		now:      time.Now(),
	}
	f.manager = NewManager(reg, f.sessions, issuer, Options{
		RejectStatus: rejectStatus,
		Logger:       log.New(io.Discard, "", 0),
	})
	f.manager.now = func() time.Time { return f.now }

	router := gin.New()
	router.Use(sessions.Sessions(SessionCookieName, cookie.NewStore(keys.Cookie)))
	customer := router.Group("/customer")
	customer.POST("/login", f.manager.Login)
	protected := customer.Group("/auth", f.manager.RequireLogin())
	protected.GET("/whoami", func(c *gin.Context) {
		user, _ := UserFromContext(c)
		c.JSON(http.StatusOK, gin.H{"user": user})
	})
	protected.POST("/logout", f.manager.Logout)
	f.router = router
	return f
}

func (f *fixture) login(t *testing.T, username, password string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/customer/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) do(method, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	t.Fatalf("session cookie not set; headers=%v", rec.Header())
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response %q: %v", rec.Body.String(), err)
	}
	return payload
}

func TestLoginIssuesTokenAndSession(t *testing.T) {
	f := newFixture(t, http.StatusUnauthorized)

	rec := f.login(t, "alice", "secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
	if decode(t, rec)["token"] == "" {
		t.Fatal("expected token in response")
	}
	sid := sessionCookie(t, rec)
	if sid.Value == "" {
		t.Fatalf("unexpected cookie: %#v", sid)
	}

	rec = f.do(http.MethodGet, "/customer/auth/whoami", sid)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
	if got := decode(t, rec)["user"]; got != "alice" {
		t.Fatalf("unexpected user: %s", got)
	}
}

func TestLoginRejected(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusAlreadyReported} {
		f := newFixture(t, status)

		rec := f.login(t, "alice", "wrong")
		if rec.Code != status {
			t.Fatalf("unexpected status: %d, want %d", rec.Code, status)
		}
		if code := decode(t, rec)["code"]; code != "INVALID_CREDENTIALS" {
			t.Fatalf("unexpected code: %s", code)
		}
		if len(rec.Result().Cookies()) != 0 {
			t.Fatalf("rejected login must not create a session: %v", rec.Result().Cookies())
		}
	}
}

func TestLoginMissingCredentials(t *testing.T) {
	f := newFixture(t, http.StatusUnauthorized)

	if rec := f.login(t, "alice", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if rec := f.login(t, "", "secret"); rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestRequireLoginWithoutSession(t *testing.T) {
	f := newFixture(t, http.StatusUnauthorized)

	rec := f.do(http.MethodGet, "/customer/auth/whoami")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	payload := decode(t, rec)
	if payload["code"] != "NOT_LOGGED_IN" || payload["message"] != "User not logged in" {
		t.Fatalf("unexpected payload: %#v", payload)
	}
}

func TestRequireLoginExpiredToken(t *testing.T) {
	f := newFixture(t, http.StatusUnauthorized)
	sid := sessionCookie(t, f.login(t, "alice", "secret"))

	f.now = f.now.Add(time.Hour + time.Minute)

	rec := f.do(http.MethodGet, "/customer/auth/whoami", sid)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if code := decode(t, rec)["code"]; code != "INVALID_TOKEN" {
		t.Fatalf("unexpected code: %s", code)
	}
}

func TestRequireLoginTamperedToken(t *testing.T) {
	f := newFixture(t, http.StatusUnauthorized)
	sid := sessionCookie(t, f.login(t, "alice", "secret"))

	f.sessions.enabled = true

	rec := f.do(http.MethodGet, "/customer/auth/whoami", sid)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	payload := decode(t, rec)
	if payload["code"] != "INVALID_TOKEN" || payload["message"] != "User not authenticated - Invalid token" {
		t.Fatalf("unexpected payload: %#v", payload)
	}
}

func TestReloginOverwritesSession(t *testing.T) {
	f := newFixture(t, http.StatusUnauthorized)
	first := sessionCookie(t, f.login(t, "alice", "secret"))

	rec := f.login(t, "bob", "hunter2", first)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	second := sessionCookie(t, rec)

	rec = f.do(http.MethodGet, "/customer/auth/whoami", second)
	if got := decode(t, rec)["user"]; got != "bob" {
		t.Fatalf("unexpected user after relogin: %s", got)
	}

	// 以前のセッションIDは破棄されている
	rec = f.do(http.MethodGet, "/customer/auth/whoami", first)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("unexpected status for replaced session: %d", rec.Code)
	}
}

func TestFailedReloginKeepsSession(t *testing.T) {
	f := newFixture(t, http.StatusUnauthorized)
	sid := sessionCookie(t, f.login(t, "alice", "secret"))

	if rec := f.login(t, "bob", "wrong", sid); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	rec := f.do(http.MethodGet, "/customer/auth/whoami", sid)
	if got := decode(t, rec)["user"]; got != "alice" {
		t.Fatalf("unexpected user: %s", got)
	}
}

func TestLogout(t *testing.T) {
	f := newFixture(t, http.StatusUnauthorized)
	sid := sessionCookie(t, f.login(t, "alice", "secret"))

	rec := f.do(http.MethodPost, "/customer/auth/logout", sid)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	rec = f.do(http.MethodGet, "/customer/auth/whoami", sid)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("unexpected status after logout: %d", rec.Code)
	}
}

type failingAuthenticator struct{}

func (failingAuthenticator) Authenticate(ctx context.Context, username, password string) (bool, error) {
	return false, errors.New("backend down")
}

func TestIssueSessionBackendError(t *testing.T) {
	issuer := newTestIssuer(t)
	m := NewManager(failingAuthenticator{}, storage.NewMemory(), issuer, Options{Logger: log.New(io.Discard, "", 0)})

	_, _, err := m.IssueSession(context.Background(), "", "alice", "secret")
	if err == nil || errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestAuthorizeUsesTokenUsername(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemory()
	issuer := newTestIssuer(t)
	m := NewManager(users.NewRegistry(st), st, issuer, Options{Logger: log.New(io.Discard, "", 0)})

	token, _, err := issuer.Issue("carol", time.Now())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	// セッション上のユーザー名ではなくトークンの埋め込み値が使われる
	if err := st.PutSession(ctx, "sid", storage.Session{Token: token, Username: "mallory"}, 0); err != nil {
		t.Fatalf("PutSession: %v", err)
	}
	user, err := m.Authorize(ctx, "sid")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if user != "carol" {
		t.Fatalf("unexpected user: %s", user)
	}

	if _, err := m.Authorize(ctx, ""); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
	if _, err := m.Authorize(ctx, "missing"); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
}
