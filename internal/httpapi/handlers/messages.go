package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/appdotbuilder/party-planner-bot/internal/common"
	"github.com/appdotbuilder/party-planner-bot/internal/planner"
)

type sendMessageReq struct {
	Content     string `json:"content" binding:"required"`
	MessageType string `json:"message_type"`
}

func (h *Handler) SendMessage(c *gin.Context) {
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	mt := planner.MessageType(req.MessageType)
	switch mt {
	case "", planner.MessageUser, planner.MessageBot, planner.MessageSystem:
	default:
		common.Fail(c, http.StatusBadRequest, 10003, "invalid message_type")
		return
	}

	msg, err := h.Svc.SendMessage(c.Request.Context(), c.Param("conversation_id"), req.Content, mt)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			failNotFound(c, "conversation not found")
			return
		}
		h.Log.WithError(err).Error("send message failed")
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	common.Ok(c, msg)
}

func (h *Handler) GetConversationHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	msgs, err := h.Svc.GetConversationHistory(c.Request.Context(), c.Param("conversation_id"), limit)
	if err != nil {
		h.Log.WithError(err).Error("list messages failed")
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to list messages")
		return
	}
	common.Ok(c, gin.H{"messages": msgs})
}

type botResponseReq struct {
	Message string `json:"message" binding:"required"`
}

// ProcessBotResponse advances one turn. The client records the user
// message via SendMessage first, mirroring the two-call turn flow.
func (h *Handler) ProcessBotResponse(c *gin.Context) {
	var req botResponseReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	msg, err := h.Svc.ProcessBotResponse(c.Request.Context(), c.Param("conversation_id"), req.Message)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			failNotFound(c, "conversation not found")
			return
		}
		h.Log.WithError(err).Error("bot response failed")
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	common.Ok(c, msg)
}

// ProcessBotResponseAsync records the user message immediately, then
// queues the bot turn for the worker.
func (h *Handler) ProcessBotResponseAsync(c *gin.Context) {
	if h.Rabbit == nil {
		common.Fail(c, http.StatusServiceUnavailable, 50301, "async turns disabled")
		return
	}

	var req botResponseReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	conversationID := c.Param("conversation_id")

	idempoKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	if len(idempoKey) > 128 {
		common.Fail(c, http.StatusBadRequest, 10004, "idempotency key too long")
		return
	}
	var idempoKeyPtr *string
	if idempoKey != "" {
		idempoKeyPtr = &idempoKey
	}

	if _, err := h.Svc.SendMessage(c.Request.Context(), conversationID, req.Message, planner.MessageUser); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			failNotFound(c, "conversation not found")
			return
		}
		h.Log.WithError(err).Error("record user message failed")
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	jobID, err := common.NewULID()
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	job := &planner.TurnJob{
		ID:             jobID,
		ConversationID: conversationID,
		UserMessage:    req.Message,
		IdempotencyKey: idempoKeyPtr,
		Status:         planner.TurnJobQueued,
	}
	job, created, err := h.Svc.CreateTurnJobOrGetExisting(c.Request.Context(), job)
	if err != nil {
		h.Log.WithError(err).Error("create turn job failed")
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	if created {
		if err := h.Rabbit.PublishTurnJob(c.Request.Context(), job.ID); err != nil {
			h.Log.WithError(err).Error("enqueue turn job failed")
			common.Fail(c, http.StatusInternalServerError, 50002, "enqueue failed")
			return
		}
	}

	common.Ok(c, gin.H{"job_id": job.ID})
}

func (h *Handler) GetTurnJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if jobID == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "job_id required")
		return
	}

	j, err := h.Svc.GetTurnJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			failNotFound(c, "job not found")
			return
		}
		h.Log.WithError(err).Error("get turn job failed")
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	common.Ok(c, gin.H{"job": j})
}
