package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/appdotbuilder/party-planner-bot/internal/auth"
)

const UserIDKey = "auth_user_id"

// AuthOptional attaches the guest user id from a Bearer token when one
// is presented. The planner has no accounts, so requests without a
// token proceed anonymously.
func AuthOptional(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			if uid, err := auth.ParseGuestToken(secret, strings.TrimPrefix(header, "Bearer ")); err == nil {
				c.Set(UserIDKey, uid)
			}
		}
		c.Next()
	}
}
