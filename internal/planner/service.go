package planner

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/appdotbuilder/party-planner-bot/internal/common"
	"github.com/appdotbuilder/party-planner-bot/internal/store/redisstore"
)

type Service struct {
	repo     *Repo
	cache    *redisstore.Store // optional; nil disables snapshot caching
	log      *logrus.Logger
	cacheTTL time.Duration
}

func NewService(repo *Repo, cache *redisstore.Store, log *logrus.Logger, cacheTTL time.Duration) *Service {
	if log == nil {
		log = logrus.New()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &Service{repo: repo, cache: cache, log: log, cacheTTL: cacheTTL}
}

func cacheKey(conversationID string) string {
	return "conversation:" + conversationID
}

// StartConversation creates a conversation in the initial state and
// seeds the history with the bot's greeting.
func (s *Service) StartConversation(ctx context.Context, userID string) (*Conversation, error) {
	cid, err := common.NewULID()
	if err != nil {
		return nil, err
	}

	conv := &Conversation{
		ConversationID: cid,
		UserID:         userID,
		CurrentState:   StateInitial,
	}
	if err := s.repo.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}

	greeting := &Message{
		ConversationID: cid,
		MessageType:    MessageBot,
		Content:        replyGreeting,
		Metadata:       marshalMetadata(quickReplyMetadata(partyTypeQuickReplies)),
	}
	if err := s.repo.InsertMessage(ctx, greeting); err != nil {
		return nil, err
	}
	return conv, nil
}

// GetConversation reads through the snapshot cache. A miss on the
// backing store returns (nil, nil).
func (s *Service) GetConversation(ctx context.Context, conversationID string) (*Conversation, error) {
	if s.cache != nil {
		var cached Conversation
		hit, err := s.cache.GetJSON(ctx, cacheKey(conversationID), &cached)
		if err != nil {
			s.log.WithError(err).Warn("snapshot cache read failed")
		} else if hit {
			return &cached, nil
		}
	}

	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil || conv == nil {
		return conv, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cacheKey(conversationID), conv, s.cacheTTL); err != nil {
			s.log.WithError(err).Warn("snapshot cache write failed")
		}
	}
	return conv, nil
}

func (s *Service) UpdateConversation(ctx context.Context, conversationID string, fields map[string]any) (*Conversation, error) {
	conv, err := s.repo.UpdateConversation(ctx, conversationID, fields)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, conversationID)
	return conv, nil
}

// SendMessage appends one message to a conversation's log. An unknown
// conversation fails with gorm.ErrRecordNotFound.
func (s *Service) SendMessage(ctx context.Context, conversationID, content string, mt MessageType) (*Message, error) {
	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, gorm.ErrRecordNotFound
	}

	if mt == "" {
		mt = MessageUser
	}
	msg := &Message{
		ConversationID: conversationID,
		MessageType:    mt,
		Content:        content,
	}
	if err := s.repo.InsertMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *Service) GetConversationHistory(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListMessages(ctx, conversationID, limit)
}

// ProcessBotResponse runs one turn: load the snapshot, advance the state
// machine, persist the updated conversation and the bot reply. The
// caller has already recorded the user's own message.
func (s *Service) ProcessBotResponse(ctx context.Context, conversationID, userMessage string) (*Message, error) {
	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, gorm.ErrRecordNotFound
	}

	tr := Advance(conv, userMessage)
	md := tr.Metadata

	if tr.GenerateItinerary {
		gen, err := GenerateItinerary(conv)
		if err != nil {
			return nil, err
		}
		if err := s.repo.CreateItinerary(ctx, gen.Itinerary); err != nil {
			return nil, err
		}
		if tr.Updates == nil {
			tr.Updates = map[string]any{}
		}
		tr.Updates["day_activities"] = gen.DayActivities
		tr.Updates["night_activities"] = gen.NightActivities

		if md == nil {
			md = &MessageMetadata{Kind: MetadataFinalItinerary}
		}
		md.ItineraryID = gen.Itinerary.ID
		md.Title = gen.Itinerary.Title
		if len(md.MediaURLs) == 0 {
			md.MediaURLs = mediaFor(conv.PartyType)
		}
	}

	// A re-prompt leaves the row untouched; anything else persists the
	// collected fields together with the (possibly unchanged) state.
	if len(tr.Updates) > 0 || tr.Next != conv.CurrentState {
		if tr.Updates == nil {
			tr.Updates = map[string]any{}
		}
		tr.Updates["current_state"] = tr.Next
		if _, err := s.repo.UpdateConversation(ctx, conversationID, tr.Updates); err != nil {
			return nil, err
		}
		s.invalidate(ctx, conversationID)
	}

	botMsg := &Message{
		ConversationID: conversationID,
		MessageType:    MessageBot,
		Content:        tr.Reply,
		Metadata:       marshalMetadata(md),
	}
	if err := s.repo.InsertMessage(ctx, botMsg); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"conversation_id": conversationID,
		"from_state":      conv.CurrentState,
		"to_state":        tr.Next,
	}).Debug("turn advanced")

	return botMsg, nil
}

// CreateItinerary stores an externally supplied itinerary document for a
// conversation.
func (s *Service) CreateItinerary(ctx context.Context, it *Itinerary) (*Itinerary, error) {
	conv, err := s.repo.GetConversation(ctx, it.ConversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, gorm.ErrRecordNotFound
	}
	if err := s.repo.CreateItinerary(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

func (s *Service) GetItinerary(ctx context.Context, conversationID string, id uint64) (*Itinerary, error) {
	return s.repo.GetItinerary(ctx, conversationID, id)
}

func (s *Service) GetItineraries(ctx context.Context, conversationID string) ([]Itinerary, error) {
	return s.repo.ListItineraries(ctx, conversationID)
}

// Turn jobs (async pipeline)

func (s *Service) CreateTurnJobOrGetExisting(ctx context.Context, job *TurnJob) (*TurnJob, bool, error) {
	return s.repo.CreateTurnJobOrGetExisting(ctx, job)
}

func (s *Service) GetTurnJob(ctx context.Context, jobID string) (*TurnJob, error) {
	return s.repo.GetTurnJobByID(ctx, jobID)
}

// RunTurnJob is the worker entrypoint: it replays the queued utterance
// through the same synchronous turn logic.
func (s *Service) RunTurnJob(ctx context.Context, jobID string) error {
	_ = s.repo.UpdateTurnJobRunning(ctx, jobID)

	j, err := s.repo.GetTurnJobByID(ctx, jobID)
	if err != nil {
		return err
	}

	msg, err := s.ProcessBotResponse(ctx, j.ConversationID, j.UserMessage)
	if err != nil {
		_ = s.repo.MarkTurnJobFailed(ctx, jobID, err.Error())
		return err
	}
	return s.repo.MarkTurnJobSucceeded(ctx, jobID, msg.ID)
}

func (s *Service) invalidate(ctx context.Context, conversationID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cacheKey(conversationID)); err != nil {
		s.log.WithError(err).Warn("snapshot cache invalidation failed")
	}
}

func marshalMetadata(md *MessageMetadata) datatypes.JSON {
	if md == nil {
		return nil
	}
	b, err := json.Marshal(md)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
