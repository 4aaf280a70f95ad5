package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedis(rdb), mr
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	rs, _ := newRedisStore(t)
	return map[string]Store{
		"memory": NewMemory(),
		"redis":  rs,
	}
}

func TestCreateUserRejectsDuplicate(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := st.CreateUser(ctx, User{Username: "alice", Password: "pw1"}); err != nil {
				t.Fatalf("first CreateUser returned error: %v", err)
			}
			err := st.CreateUser(ctx, User{Username: "alice", Password: "pw2"})
			if !errors.Is(err, ErrAlreadyExists) {
				t.Fatalf("expected ErrAlreadyExists, got %v", err)
			}

			user, err := st.GetUser(ctx, "alice")
			if err != nil {
				t.Fatalf("GetUser returned error: %v", err)
			}
			if user.Password != "pw1" {
				t.Fatalf("password overwritten: %q", user.Password)
			}

			if _, err := st.GetUser(ctx, "Alice"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected case-sensitive lookup miss, got %v", err)
			}
		})
	}
}

func TestCreateUserConcurrentSingleWinner(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			const attempts = 32
			ctx := context.Background()

			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				wins    int
				dupes   int
				unknown []error
			)
			start := make(chan struct{})
			for i := 0; i < attempts; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					<-start
					err := st.CreateUser(ctx, User{Username: "bob", Password: fmt.Sprintf("pw%d", i)})
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						wins++
					case errors.Is(err, ErrAlreadyExists):
						dupes++
					default:
						unknown = append(unknown, err)
					}
				}(i)
			}
			close(start)
			wg.Wait()

			if len(unknown) > 0 {
				t.Fatalf("unexpected errors: %v", unknown)
			}
			if wins != 1 || dupes != attempts-1 {
				t.Fatalf("wins=%d dupes=%d, want 1 and %d", wins, dupes, attempts-1)
			}
		})
	}
}

func TestReviewLifecycle(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			created, err := st.PutReview(ctx, "1", "alice", "Good")
			if err != nil || !created {
				t.Fatalf("first PutReview: created=%v err=%v", created, err)
			}
			created, err = st.PutReview(ctx, "1", "alice", "Great")
			if err != nil || created {
				t.Fatalf("second PutReview: created=%v err=%v", created, err)
			}
			if _, err := st.PutReview(ctx, "1", "bob", "Meh"); err != nil {
				t.Fatalf("PutReview bob: %v", err)
			}

			reviews, err := st.ListReviews(ctx, "1")
			if err != nil {
				t.Fatalf("ListReviews: %v", err)
			}
			if len(reviews) != 2 || reviews["alice"] != "Great" || reviews["bob"] != "Meh" {
				t.Fatalf("unexpected reviews: %#v", reviews)
			}

			if err := st.DeleteReview(ctx, "1", "alice"); err != nil {
				t.Fatalf("DeleteReview: %v", err)
			}
			if err := st.DeleteReview(ctx, "1", "alice"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound on second delete, got %v", err)
			}
			if err := st.DeleteReview(ctx, "2", "alice"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound for book without reviews, got %v", err)
			}

			reviews, err = st.ListReviews(ctx, "1")
			if err != nil {
				t.Fatalf("ListReviews: %v", err)
			}
			if _, ok := reviews["alice"]; ok {
				t.Fatalf("alice review still present: %#v", reviews)
			}

			empty, err := st.ListReviews(ctx, "9")
			if err != nil {
				t.Fatalf("ListReviews empty: %v", err)
			}
			if len(empty) != 0 {
				t.Fatalf("expected no reviews, got %#v", empty)
			}
		})
	}
}

func TestSessionOverwriteAndDelete(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().UTC().Truncate(time.Second)

			if _, err := st.GetSession(ctx, "sid"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}

			if err := st.PutSession(ctx, "sid", Session{Token: "t1", Username: "alice", CreatedAt: now}, time.Hour); err != nil {
				t.Fatalf("PutSession: %v", err)
			}
			if err := st.PutSession(ctx, "sid", Session{Token: "t2", Username: "bob", CreatedAt: now}, time.Hour); err != nil {
				t.Fatalf("PutSession overwrite: %v", err)
			}

			sess, err := st.GetSession(ctx, "sid")
			if err != nil {
				t.Fatalf("GetSession: %v", err)
			}
			if sess.Token != "t2" || sess.Username != "bob" {
				t.Fatalf("unexpected session: %#v", sess)
			}

			if err := st.DeleteSession(ctx, "sid"); err != nil {
				t.Fatalf("DeleteSession: %v", err)
			}
			if _, err := st.GetSession(ctx, "sid"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
		})
	}
}

func TestMemorySessionExpiry(t *testing.T) {
	m := NewMemory()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	if err := m.PutSession(ctx, "sid", Session{Token: "t", Username: "alice"}, time.Minute); err != nil {
		t.Fatalf("PutSession: %v", err)
	}
	if _, err := m.GetSession(ctx, "sid"); err != nil {
		t.Fatalf("GetSession before expiry: %v", err)
	}

	now = now.Add(time.Minute)
	if _, err := m.GetSession(ctx, "sid"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestRedisSessionExpiry(t *testing.T) {
	st, mr := newRedisStore(t)
	ctx := context.Background()

	if err := st.PutSession(ctx, "sid", Session{Token: "t", Username: "alice"}, time.Minute); err != nil {
		t.Fatalf("PutSession: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := st.GetSession(ctx, "sid"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
}
