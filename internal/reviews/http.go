package reviews

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/bookshelf/internal/auth"
)

// ListHandler は GET /review/:isbn のハンドラーを返します。
func ListHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		reviews, err := svc.List(c.Request.Context(), c.Param("isbn"))
		if err != nil {
			respondWithError(c, svc, err)
			return
		}
		c.JSON(http.StatusOK, reviews)
	}
}

// UpsertHandler は PUT /customer/auth/review/:isbn のハンドラーを返します。
// 本文はクエリ ?review= またはフォーム値 review で受け取ります。
func UpsertHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := auth.UserFromContext(c)
		if !ok {
			respondWithError(c, svc, auth.ErrNotLoggedIn)
			return
		}

		isbn := c.Param("isbn")
		text := c.Query("review")
		if text == "" {
			text = c.PostForm("review")
		}

		created, err := svc.Upsert(c.Request.Context(), isbn, username, text)
		if err != nil {
			respondWithError(c, svc, err)
			return
		}

		verb := "updated"
		if created {
			verb = "added"
		}
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("Review for ISBN %s by %s %s successfully.", isbn, username, verb),
		})
	}
}

// DeleteHandler は DELETE /customer/auth/review/:isbn のハンドラーを返します。
func DeleteHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := auth.UserFromContext(c)
		if !ok {
			respondWithError(c, svc, auth.ErrNotLoggedIn)
			return
		}

		isbn := c.Param("isbn")
		if err := svc.Delete(c.Request.Context(), isbn, username); err != nil {
			if errors.Is(err, ErrReviewNotFound) {
				c.JSON(http.StatusNotFound, gin.H{
					"code":    "REVIEW_NOT_FOUND",
					"message": fmt.Sprintf("No review found for ISBN %s by %s.", isbn, username),
				})
				return
			}
			respondWithError(c, svc, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("Review for ISBN %s by %s deleted successfully.", isbn, username),
		})
	}
}

func respondWithError(c *gin.Context, svc *Service, err error) {
	switch {
	case errors.Is(err, ErrEmptyReview):
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "EMPTY_REVIEW",
			"message": "Review content cannot be empty.",
		})
	case errors.Is(err, ErrBookNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "BOOK_NOT_FOUND",
			"message": "Book not found.",
		})
	case errors.Is(err, ErrReviewNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "REVIEW_NOT_FOUND",
			"message": "Review not found.",
		})
	case errors.Is(err, auth.ErrNotLoggedIn):
		c.JSON(http.StatusForbidden, gin.H{
			"code":    "NOT_LOGGED_IN",
			"message": "User not logged in",
		})
	default:
		svc.logger.Printf("review request failed path=%s: %v", c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "Internal server error.",
		})
	}
}
