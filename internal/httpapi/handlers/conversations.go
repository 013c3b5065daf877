package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/appdotbuilder/party-planner-bot/internal/common"
	"github.com/appdotbuilder/party-planner-bot/internal/planner"
)

type startConversationReq struct {
	UserID string `json:"user_id"`
}

func (h *Handler) StartConversation(c *gin.Context) {
	var req startConversationReq
	_ = c.ShouldBindJSON(&req) // allow empty {}

	uid := req.UserID
	if uid == "" {
		uid = userIDFromContext(c)
	}
	if uid == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "user_id required")
		return
	}

	conv, err := h.Svc.StartConversation(c.Request.Context(), uid)
	if err != nil {
		h.Log.WithError(err).Error("start conversation failed")
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to start conversation")
		return
	}
	common.Ok(c, conv)
}

func (h *Handler) GetConversation(c *gin.Context) {
	conv, err := h.Svc.GetConversation(c.Request.Context(), c.Param("conversation_id"))
	if err != nil {
		h.Log.WithError(err).Error("get conversation failed")
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	if conv == nil {
		failNotFound(c, "conversation not found")
		return
	}
	common.Ok(c, conv)
}

type updateConversationReq struct {
	PartyType          *string         `json:"party_type"`
	City               *string         `json:"city"`
	ActivityPreference *string         `json:"activity_preference"`
	PartyName          *string         `json:"party_name"`
	PartyDates         *string         `json:"party_dates"`
	GuestCount         *int            `json:"guest_count"`
	Budget             *float64        `json:"budget"`
	Theme              *string         `json:"theme"`
	DiningPreferences  *string         `json:"dining_preferences"`
	MusicPreferences   *string         `json:"music_preferences"`
	DayActivities      json.RawMessage `json:"day_activities"`
	NightActivities    json.RawMessage `json:"night_activities"`
	CurrentState       *string         `json:"current_state"`
}

var validStates = map[planner.ConversationState]bool{
	planner.StateInitial:             true,
	planner.StatePartyType:           true,
	planner.StateCity:                true,
	planner.StateActivityPreference:  true,
	planner.StatePartyDetails:        true,
	planner.StatePreferences:         true,
	planner.StateGeneratingItinerary: true,
	planner.StateCompleted:           true,
}

// fieldsFromUpdateReq maps only the supplied request fields onto
// columns; omitted fields stay untouched.
func fieldsFromUpdateReq(req updateConversationReq) (map[string]any, string) {
	fields := map[string]any{}

	if req.PartyType != nil {
		pt := planner.PartyType(*req.PartyType)
		if pt != planner.PartyBachelor && pt != planner.PartyBachelorette {
			return nil, "invalid party_type"
		}
		fields["party_type"] = pt
	}
	if req.City != nil {
		fields["city"] = *req.City
	}
	if req.ActivityPreference != nil {
		ap := planner.ActivityPreference(*req.ActivityPreference)
		if ap != planner.PrefActivities && ap != planner.PrefPackage && ap != planner.PrefNightlife {
			return nil, "invalid activity_preference"
		}
		fields["activity_preference"] = ap
	}
	if req.PartyName != nil {
		fields["party_name"] = *req.PartyName
	}
	if req.PartyDates != nil {
		fields["party_dates"] = *req.PartyDates
	}
	if req.GuestCount != nil {
		if *req.GuestCount <= 0 {
			return nil, "guest_count must be positive"
		}
		fields["guest_count"] = *req.GuestCount
	}
	if req.Budget != nil {
		if *req.Budget < 0 {
			return nil, "budget must not be negative"
		}
		fields["budget"] = *req.Budget
	}
	if req.Theme != nil {
		fields["theme"] = *req.Theme
	}
	if req.DiningPreferences != nil {
		fields["dining_preferences"] = *req.DiningPreferences
	}
	if req.MusicPreferences != nil {
		fields["music_preferences"] = *req.MusicPreferences
	}
	if req.DayActivities != nil {
		fields["day_activities"] = datatypes.JSON(req.DayActivities)
	}
	if req.NightActivities != nil {
		fields["night_activities"] = datatypes.JSON(req.NightActivities)
	}
	if req.CurrentState != nil {
		st := planner.ConversationState(*req.CurrentState)
		if !validStates[st] {
			return nil, "invalid current_state"
		}
		fields["current_state"] = st
	}
	return fields, ""
}

func (h *Handler) UpdateConversation(c *gin.Context) {
	var req updateConversationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	fields, msg := fieldsFromUpdateReq(req)
	if msg != "" {
		common.Fail(c, http.StatusBadRequest, 10003, msg)
		return
	}

	conv, err := h.Svc.UpdateConversation(c.Request.Context(), c.Param("conversation_id"), fields)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			failNotFound(c, "conversation not found")
			return
		}
		h.Log.WithError(err).Error("update conversation failed")
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	common.Ok(c, conv)
}
