package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	historyKeyPrefix  = "bookshelf:history:"
	defaultMaxEntries = 100
)

// Store はレビュー履歴を Redis のリストに保存します。
type Store struct {
	rdb        *redis.Client
	ttl        time.Duration
	maxEntries int64
}

// NewStore は Store を作成します。書籍ごとに新しい順で maxEntries 件まで保持します。
func NewStore(rdb *redis.Client, ttl time.Duration, maxEntries int) *Store {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &Store{
		rdb:        rdb,
		ttl:        ttl,
		maxEntries: int64(maxEntries),
	}
}

// Append は履歴に一件追記します。
func (s *Store) Append(ctx context.Context, event Event) error {
	if event.ISBN == "" {
		return fmt.Errorf("event isbn is required")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	key := historyKey(event.ISBN)
	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.LTrim(ctx, key, -s.maxEntries, -1)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// List は書籍の履歴を古い順に返します。
func (s *Store) List(ctx context.Context, isbn string) ([]Event, error) {
	raw, err := s.rdb.LRange(ctx, historyKey(isbn), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	events := make([]Event, 0, len(raw))
	for _, item := range raw {
		var e Event
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("failed to parse history entry: %w", err)
		}
		events = append(events, e)
	}
	// リトライで順序が入れ替わることがあるため時刻で並べ直す
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].At.Before(events[j].At)
	})
	return events, nil
}

// Close は接続を閉じます。
func (s *Store) Close() error {
	return s.rdb.Close()
}

func historyKey(isbn string) string {
	return historyKeyPrefix + isbn
}
