// Package reviews は書籍レビューの作成・更新・削除を提供します。
//
// レビューは (isbn, username) ごとに一件で、変更は認証済みユーザー本人のものに限られます。
package reviews

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/yourusername/bookshelf/internal/storage"
)

var (
	// ErrBookNotFound は ISBN がカタログに存在しない場合に返されます。
	ErrBookNotFound = errors.New("book not found")
	// ErrReviewNotFound は削除対象のレビューが存在しない場合に返されます。
	ErrReviewNotFound = errors.New("review not found")
	// ErrEmptyReview はレビュー本文が空の場合に返されます。
	ErrEmptyReview = errors.New("review content cannot be empty")
)

// Catalog はレビュー対象の書籍の存在確認に使います。
type Catalog interface {
	Exists(isbn string) bool
}

// Action はレビューに対する変更の種類です。
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Change はレビューに加えられた一件の変更です。
type Change struct {
	ISBN     string
	Username string
	Action   Action
	Text     string
	At       time.Time
}

// ChangeRecorder はレビュー変更の履歴を受け取ります。
type ChangeRecorder interface {
	RecordChange(ctx context.Context, change Change) error
}

// Service はレビューの状態遷移を管理します。
type Service struct {
	catalog  Catalog
	store    storage.ReviewStore
	recorder ChangeRecorder
	logger   *log.Logger
	now      func() time.Time
}

// NewService は Service を作成します。recorder は nil でも構いません。
func NewService(catalog Catalog, store storage.ReviewStore, recorder ChangeRecorder, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		catalog:  catalog,
		store:    store,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Upsert は username のレビューを作成または上書きします。新規作成なら true を返します。
func (s *Service) Upsert(ctx context.Context, isbn, username, text string) (bool, error) {
	if text == "" {
		return false, ErrEmptyReview
	}
	if !s.catalog.Exists(isbn) {
		return false, ErrBookNotFound
	}

	created, err := s.store.PutReview(ctx, isbn, username, text)
	if err != nil {
		return false, err
	}

	action := ActionUpdated
	if created {
		action = ActionCreated
	}
	s.record(ctx, Change{ISBN: isbn, Username: username, Action: action, Text: text})
	return created, nil
}

// Delete は username のレビューを削除します。
func (s *Service) Delete(ctx context.Context, isbn, username string) error {
	if !s.catalog.Exists(isbn) {
		return ErrBookNotFound
	}
	if err := s.store.DeleteReview(ctx, isbn, username); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrReviewNotFound
		}
		return err
	}
	s.record(ctx, Change{ISBN: isbn, Username: username, Action: ActionDeleted})
	return nil
}

// List は書籍の全レビューを username → 本文 で返します。
func (s *Service) List(ctx context.Context, isbn string) (map[string]string, error) {
	if !s.catalog.Exists(isbn) {
		return nil, ErrBookNotFound
	}
	return s.store.ListReviews(ctx, isbn)
}

// 履歴の記録に失敗してもレビューの変更自体は取り消さない。
func (s *Service) record(ctx context.Context, change Change) {
	if s.recorder == nil {
		return
	}
	change.At = s.now().UTC()
	if err := s.recorder.RecordChange(ctx, change); err != nil {
		s.logger.Printf("failed to record review change isbn=%s user=%s: %v", change.ISBN, change.Username, err)
	}
}
