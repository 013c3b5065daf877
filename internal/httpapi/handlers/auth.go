package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/appdotbuilder/party-planner-bot/internal/auth"
	"github.com/appdotbuilder/party-planner-bot/internal/common"
)

const guestTokenTTL = 24 * time.Hour

// IssueGuestToken hands out an anonymous identity so a chat client can
// carry a stable user_id across conversations.
func (h *Handler) IssueGuestToken(c *gin.Context) {
	suffix, err := common.NewULID()
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	uid := "guest_" + suffix

	token, err := auth.IssueGuestToken(h.Cfg.JWTSecret, uid, guestTokenTTL)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	common.Ok(c, gin.H{
		"user_id":    uid,
		"token":      token,
		"expires_in": int(guestTokenTTL.Seconds()),
	})
}
