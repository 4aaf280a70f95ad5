package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
)

const (
	taskTypeReviewChanged = "review:changed"
	queueName             = "history"
)

// Manager はレビュー履歴ジョブの投入とワーカーを管理します。
type Manager struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	store  *Store
	logger *log.Logger
}

// NewManager は Manager を初期化します。
func NewManager(redisURL string, store *Store, logger *log.Logger) (*Manager, error) {
	if store == nil {
		return nil, errors.New("store is nil")
	}
	if logger == nil {
		logger = log.Default()
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := asynq.NewClient(opt)
	server := asynq.NewServer(
		opt,
		asynq.Config{
			// 履歴の追記順を保つため直列に処理する
			Concurrency: 1,
			Queues: map[string]int{
				queueName: 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	manager := &Manager{
		client: client,
		server: server,
		mux:    mux,
		store:  store,
		logger: logger,
	}
	mux.HandleFunc(taskTypeReviewChanged, manager.handleReviewTask)
	return manager, nil
}

// StartWorkers は Asynq サーバーをバックグラウンドで起動します。
func (m *Manager) StartWorkers() {
	go func() {
		if err := m.server.Run(m.mux); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
			m.logger.Printf("asynq server stopped with error: %v", err)
		}
	}()
}

// Shutdown はサーバーとクライアントを閉じます。
func (m *Manager) Shutdown(ctx context.Context) error {
	m.server.Shutdown()
	if err := m.client.Close(); err != nil {
		return err
	}
	return m.store.Close()
}

// Enqueue は変更イベントをキューに投入します。
func (m *Manager) Enqueue(ctx context.Context, event Event) (string, error) {
	if event.ISBN == "" {
		return "", fmt.Errorf("event.ISBN is required")
	}
	body, err := json.Marshal(event)
	if err != nil {
		return "", err
	}

	task := asynq.NewTask(taskTypeReviewChanged, body, asynq.Queue(queueName))
	info, err := m.client.EnqueueContext(ctx, task, asynq.MaxRetry(3))
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

// History は書籍のレビュー履歴を返します。
func (m *Manager) History(ctx context.Context, isbn string) ([]Event, error) {
	return m.store.List(ctx, isbn)
}

func (m *Manager) handleReviewTask(ctx context.Context, task *asynq.Task) error {
	var event Event
	if err := json.Unmarshal(task.Payload(), &event); err != nil {
		// 壊れたペイロードは再試行しても直らない
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}
	if event.ISBN == "" {
		return fmt.Errorf("missing isbn in payload: %w", asynq.SkipRetry)
	}
	return m.store.Append(ctx, event)
}
