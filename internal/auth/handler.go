package auth

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login は /customer/login のハンドラーです。
func (m *Manager) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_INPUT",
			"message": "Error logging in - Username and password required",
		})
		return
	}

	session := sessions.Default(c)
	prevSID, _ := session.Get(sessionKeyID).(string)

	sid, token, err := m.IssueSession(c.Request.Context(), prevSID, req.Username, req.Password)
	switch {
	case errors.Is(err, ErrMissingCredentials):
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_INPUT",
			"message": "Error logging in - Username and password required",
		})
		return
	case errors.Is(err, ErrInvalidCredentials):
		c.JSON(m.rejectStatus, gin.H{
			"code":    "INVALID_CREDENTIALS",
			"message": "Invalid Login. Check username and password",
		})
		return
	case err != nil:
		m.logger.Printf("login failed user=%s: %v", req.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "Internal server error.",
		})
		return
	}

	session.Set(sessionKeyID, sid)
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "SESSION_SAVE_FAILED",
			"message": "Failed to save session.",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User successfully logged in",
		"token":   token,
	})
}

// Logout は /customer/auth/logout のハンドラーです。
func (m *Manager) Logout(c *gin.Context) {
	session := sessions.Default(c)
	sid, _ := session.Get(sessionKeyID).(string)
	if err := m.EndSession(c.Request.Context(), sid); err != nil {
		m.logger.Printf("failed to delete session: %v", err)
	}

	session.Clear()
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "SESSION_SAVE_FAILED",
			"message": "Failed to clear session.",
		})
		return
	}
	c.Status(http.StatusNoContent)
}
