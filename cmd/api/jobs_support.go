package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/bookshelf/internal/catalog"
	"github.com/yourusername/bookshelf/internal/config"
	"github.com/yourusername/bookshelf/internal/jobs"
	"github.com/yourusername/bookshelf/internal/reviews"
)

const historyMaxEntries = 100

// reviewHistoryRecorder はレビュー変更を履歴ジョブとしてキューに投入します。
type reviewHistoryRecorder struct {
	manager *jobs.Manager
}

func (r *reviewHistoryRecorder) RecordChange(ctx context.Context, change reviews.Change) error {
	_, err := r.manager.Enqueue(ctx, jobs.Event{
		ISBN:     change.ISBN,
		Username: change.Username,
		Action:   string(change.Action),
		Text:     change.Text,
		At:       change.At,
	})
	return err
}

func setupJobs(cfg *config.Config, logger *log.Logger) (*jobs.Manager, error) {
	opt, err := redis.ParseURL(cfg.QueueRedisURL)
	if err != nil {
		return nil, err
	}

	redisClient := redis.NewClient(opt)
	store := jobs.NewStore(redisClient, cfg.HistoryTTL, historyMaxEntries)
	manager, err := jobs.NewManager(cfg.QueueRedisURL, store, logger)
	if err != nil {
		redisClient.Close()
		return nil, err
	}
	return manager, nil
}

func reviewHistoryHandler(manager *jobs.Manager, books *catalog.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		if manager == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"code":    "HISTORY_DISABLED",
				"message": "Review history is not enabled.",
			})
			return
		}

		isbn := c.Param("isbn")
		if !books.Exists(isbn) {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    "BOOK_NOT_FOUND",
				"message": "Book not found.",
			})
			return
		}

		events, err := manager.History(c.Request.Context(), isbn)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to load review history.",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"isbn":    isbn,
			"history": events,
		})
	}
}
