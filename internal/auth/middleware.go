package auth

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// RequireLogin はセッションに紐づくトークンを検証するミドルウェアを返します。
// 成功すると、トークンに埋め込まれたユーザー名を ContextUserKey に格納します。
func (m *Manager) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, _ := sessions.Default(c).Get(sessionKeyID).(string)

		username, err := m.Authorize(c.Request.Context(), sid)
		switch {
		case errors.Is(err, ErrNotLoggedIn):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    "NOT_LOGGED_IN",
				"message": "User not logged in",
			})
			return
		case errors.Is(err, ErrInvalidToken):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    "INVALID_TOKEN",
				"message": "User not authenticated - Invalid token",
			})
			return
		case err != nil:
			m.logger.Printf("authorization failed: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Internal server error.",
			})
			return
		}

		c.Set(ContextUserKey, username)
		c.Next()
	}
}

// UserFromContext は RequireLogin が格納したユーザー名を返します。
func UserFromContext(c *gin.Context) (string, bool) {
	username := c.GetString(ContextUserKey)
	return username, username != ""
}
