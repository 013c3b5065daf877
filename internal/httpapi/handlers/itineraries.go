package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/appdotbuilder/party-planner-bot/internal/common"
	"github.com/appdotbuilder/party-planner-bot/internal/planner"
)

type createItineraryReq struct {
	Title         string          `json:"title" binding:"required"`
	Description   string          `json:"description" binding:"required"`
	Activities    json.RawMessage `json:"activities" binding:"required"`
	EstimatedCost *float64        `json:"estimated_cost"`
	MediaURLs     json.RawMessage `json:"media_urls"`
}

func (h *Handler) CreateItinerary(c *gin.Context) {
	var req createItineraryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.EstimatedCost != nil && *req.EstimatedCost < 0 {
		common.Fail(c, http.StatusBadRequest, 10003, "estimated_cost must not be negative")
		return
	}

	it := &planner.Itinerary{
		ConversationID: c.Param("conversation_id"),
		Title:          req.Title,
		Description:    req.Description,
		Activities:     datatypes.JSON(req.Activities),
		EstimatedCost:  req.EstimatedCost,
	}
	if req.MediaURLs != nil {
		it.MediaURLs = datatypes.JSON(req.MediaURLs)
	}

	it, err := h.Svc.CreateItinerary(c.Request.Context(), it)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			failNotFound(c, "conversation not found")
			return
		}
		h.Log.WithError(err).Error("create itinerary failed")
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	common.Ok(c, it)
}

func (h *Handler) GetItineraries(c *gin.Context) {
	its, err := h.Svc.GetItineraries(c.Request.Context(), c.Param("conversation_id"))
	if err != nil {
		h.Log.WithError(err).Error("list itineraries failed")
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	common.Ok(c, gin.H{"itineraries": its})
}

type emailItineraryReq struct {
	To string `json:"to" binding:"required,email"`
}

func (h *Handler) EmailItinerary(c *gin.Context) {
	if h.Mailer == nil || !h.Mailer.Enabled() {
		common.Fail(c, http.StatusServiceUnavailable, 50302, "email delivery not configured")
		return
	}

	var req emailItineraryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	conversationID := c.Param("conversation_id")
	itineraryID, err := strconv.ParseUint(c.Param("itinerary_id"), 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10003, "invalid itinerary id")
		return
	}

	conv, err := h.Svc.GetConversation(c.Request.Context(), conversationID)
	if err != nil {
		h.Log.WithError(err).Error("get conversation failed")
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	if conv == nil {
		failNotFound(c, "conversation not found")
		return
	}

	it, err := h.Svc.GetItinerary(c.Request.Context(), conversationID, itineraryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			failNotFound(c, "itinerary not found")
			return
		}
		h.Log.WithError(err).Error("get itinerary failed")
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	if err := h.Mailer.SendItinerary(req.To, conv, it); err != nil {
		h.Log.WithError(err).Error("send itinerary email failed")
		common.Fail(c, http.StatusBadGateway, 50201, "email delivery failed")
		return
	}
	common.Ok(c, gin.H{"sent": true})
}
