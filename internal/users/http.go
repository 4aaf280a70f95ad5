package users

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterHandler は POST /register のハンドラーを返します。
func RegisterHandler(reg *Registry, logger *log.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = log.Default()
	}
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "Unable to register user. Username and password are required.",
			})
			return
		}

		err := reg.Register(c.Request.Context(), req.Username, req.Password)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{
				"message": "User successfully registered. You can now login.",
			})
		case errors.Is(err, ErrMissingFields):
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "Unable to register user. Username and password are required.",
			})
		case errors.Is(err, ErrAlreadyExists):
			c.JSON(http.StatusConflict, gin.H{
				"code":    "USER_EXISTS",
				"message": "User already exists!",
			})
		default:
			logger.Printf("failed to register user=%s: %v", req.Username, err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Internal server error.",
			})
		}
	}
}
