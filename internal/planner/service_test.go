package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Conversation{}, &Message{}, &Itinerary{}, &TurnJob{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (*Service, *Repo) {
	t.Helper()
	db := openTestDB(t)
	repo := NewRepo(db)
	return NewService(repo, nil, nil, 0), repo
}

func TestStartConversation_SeedsGreeting(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	conv, err := svc.StartConversation(ctx, "user_1")
	if err != nil {
		t.Fatalf("start conversation: %v", err)
	}
	if conv.CurrentState != StateInitial {
		t.Fatalf("expected initial state, got %q", conv.CurrentState)
	}
	if conv.PartyType != nil || conv.City != nil || conv.Budget != nil {
		t.Fatalf("collected fields must start null")
	}

	msgs, err := repo.ListMessages(ctx, conv.ConversationID, 10)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].MessageType != MessageBot {
		t.Fatalf("expected one seeded bot message, got %d", len(msgs))
	}
	if !strings.Contains(msgs[0].Content, "bachelor or bachelorette") {
		t.Fatalf("greeting should ask the first question, got %q", msgs[0].Content)
	}
}

func TestProcessBotResponse_PersistsTransition(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	conv, err := svc.StartConversation(ctx, "user_1")
	if err != nil {
		t.Fatalf("start conversation: %v", err)
	}

	if _, err := svc.SendMessage(ctx, conv.ConversationID, "I want a bachelor party", MessageUser); err != nil {
		t.Fatalf("send message: %v", err)
	}

	botMsg, err := svc.ProcessBotResponse(ctx, conv.ConversationID, "I want a bachelor party")
	if err != nil {
		t.Fatalf("bot response: %v", err)
	}
	if botMsg.MessageType != MessageBot {
		t.Fatalf("expected a bot message, got %q", botMsg.MessageType)
	}
	if !strings.Contains(botMsg.Content, "bachelor party") {
		t.Fatalf("unexpected reply: %q", botMsg.Content)
	}

	got, err := repo.GetConversation(ctx, conv.ConversationID)
	if err != nil {
		t.Fatalf("reload conversation: %v", err)
	}
	if got.PartyType == nil || *got.PartyType != PartyBachelor {
		t.Fatalf("expected party_type bachelor, got %v", got.PartyType)
	}
	if got.CurrentState != StateCity {
		t.Fatalf("expected state city, got %q", got.CurrentState)
	}
}

func TestProcessBotResponse_RepromptWritesNothing(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	conv, err := svc.StartConversation(ctx, "user_1")
	if err != nil {
		t.Fatalf("start conversation: %v", err)
	}
	before, err := repo.GetConversation(ctx, conv.ConversationID)
	if err != nil {
		t.Fatalf("load conversation: %v", err)
	}

	botMsg, err := svc.ProcessBotResponse(ctx, conv.ConversationID, "hello there")
	if err != nil {
		t.Fatalf("bot response: %v", err)
	}
	if !strings.Contains(botMsg.Content, "bachelor or bachelorette") {
		t.Fatalf("expected a re-prompt, got %q", botMsg.Content)
	}

	got, err := repo.GetConversation(ctx, conv.ConversationID)
	if err != nil {
		t.Fatalf("reload conversation: %v", err)
	}
	if got.CurrentState != StateInitial || got.PartyType != nil {
		t.Fatalf("re-prompt must not mutate the conversation, got state=%q party_type=%v",
			got.CurrentState, got.PartyType)
	}
	if !got.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatalf("re-prompt must not bump updated_at")
	}
}

func TestProcessBotResponse_UnknownConversation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ProcessBotResponse(context.Background(), "01MISSING0000000000000000000", "hi")
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestProcessBotResponse_FullFlowGeneratesItinerary(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	conv, err := svc.StartConversation(ctx, "user_1")
	if err != nil {
		t.Fatalf("start conversation: %v", err)
	}
	cid := conv.ConversationID

	turns := []string{
		"bachelor party please", // -> city
		"Las Vegas",             // -> activity_preference
		"nightlife for sure",    // -> party_details
		"Mike",                  // party_name
		"June 5-7",              // party_dates
		"10",                    // guest_count
		"$5,000",                // budget -> preferences
		"neon",                  // theme
		"steakhouse",            // dining
		"house music",           // music -> generating_itinerary
		"sounds great",          // -> completed, itinerary generated
	}

	var lastBot *Message
	for _, utterance := range turns {
		if _, err := svc.SendMessage(ctx, cid, utterance, MessageUser); err != nil {
			t.Fatalf("send %q: %v", utterance, err)
		}
		lastBot, err = svc.ProcessBotResponse(ctx, cid, utterance)
		if err != nil {
			t.Fatalf("advance %q: %v", utterance, err)
		}
	}

	got, err := repo.GetConversation(ctx, cid)
	if err != nil {
		t.Fatalf("reload conversation: %v", err)
	}
	if got.CurrentState != StateCompleted {
		t.Fatalf("expected completed, got %q", got.CurrentState)
	}
	if got.Budget == nil || *got.Budget != 5000 {
		t.Fatalf("expected budget 5000, got %v", got.Budget)
	}
	if len(got.DayActivities) == 0 || len(got.NightActivities) == 0 {
		t.Fatalf("generation should fill day/night activities")
	}

	its, err := svc.GetItineraries(ctx, cid)
	if err != nil {
		t.Fatalf("list itineraries: %v", err)
	}
	if len(its) != 1 {
		t.Fatalf("expected one generated itinerary, got %d", len(its))
	}
	it := its[0]
	if !strings.Contains(it.Title, "Las Vegas") {
		t.Fatalf("unexpected title: %q", it.Title)
	}
	if it.EstimatedCost == nil || *it.EstimatedCost != 5000 {
		t.Fatalf("expected estimated cost 5000, got %v", it.EstimatedCost)
	}

	var md MessageMetadata
	if err := json.Unmarshal(lastBot.Metadata, &md); err != nil {
		t.Fatalf("unmarshal metadata: %v", err)
	}
	if md.Kind != MetadataFinalItinerary || md.ItineraryID != it.ID {
		t.Fatalf("final message should reference the itinerary, got %+v", md)
	}
}

func TestSendMessage_UnknownConversation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.SendMessage(context.Background(), "01MISSING0000000000000000000", "hi", MessageUser)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestGetConversationHistory_LimitKeepsEarliest(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	conv := &Conversation{ConversationID: "01HISTTEST000000000000000000", UserID: "u", CurrentState: StateInitial}
	if err := repo.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("create conversation: %v", err)
	}

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		m := &Message{
			ConversationID: conv.ConversationID,
			MessageType:    MessageUser,
			Content:        fmt.Sprintf("msg-%d", i),
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.InsertMessage(ctx, m); err != nil {
			t.Fatalf("seed message %d: %v", i, err)
		}
	}

	msgs, err := svc.GetConversationHistory(ctx, conv.ConversationID, 3)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i, m := range msgs {
		if want := fmt.Sprintf("msg-%d", i); m.Content != want {
			t.Fatalf("position %d: expected %q, got %q", i, want, m.Content)
		}
	}
}

func TestGetConversation_MissAndIdempotentReads(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	missing, err := svc.GetConversation(ctx, "01MISSING0000000000000000000")
	if err != nil {
		t.Fatalf("miss must not be an error, got %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for a miss, got %+v", missing)
	}

	conv, err := svc.StartConversation(ctx, "user_1")
	if err != nil {
		t.Fatalf("start conversation: %v", err)
	}

	a, err := svc.GetConversation(ctx, conv.ConversationID)
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	b, err := svc.GetConversation(ctx, conv.ConversationID)
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if a.CurrentState != b.CurrentState || !a.UpdatedAt.Equal(b.UpdatedAt) {
		t.Fatalf("reads without writes must return identical snapshots")
	}
}

func TestCreateItinerary_RoundTripPreservesCost(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	conv, err := svc.StartConversation(ctx, "user_1")
	if err != nil {
		t.Fatalf("start conversation: %v", err)
	}

	cost := 1250.50
	_, err = svc.CreateItinerary(ctx, &Itinerary{
		ConversationID: conv.ConversationID,
		Title:          "Weekend plan",
		Description:    "Two days in town",
		Activities:     []byte(`[{"time_of_day":"day","name":"Brunch","description":"Long table"}]`),
		EstimatedCost:  &cost,
	})
	if err != nil {
		t.Fatalf("create itinerary: %v", err)
	}

	its, err := svc.GetItineraries(ctx, conv.ConversationID)
	if err != nil {
		t.Fatalf("list itineraries: %v", err)
	}
	if len(its) != 1 {
		t.Fatalf("expected 1 itinerary, got %d", len(its))
	}
	if its[0].EstimatedCost == nil || *its[0].EstimatedCost != 1250.50 {
		t.Fatalf("expected cost 1250.50, got %v", its[0].EstimatedCost)
	}
}

func TestCreateItinerary_UnknownConversation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateItinerary(context.Background(), &Itinerary{
		ConversationID: "01MISSING0000000000000000000",
		Title:          "x",
		Description:    "y",
		Activities:     []byte(`[]`),
	})
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestRunTurnJob_MarksSucceeded(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	conv, err := svc.StartConversation(ctx, "user_1")
	if err != nil {
		t.Fatalf("start conversation: %v", err)
	}
	if _, err := svc.SendMessage(ctx, conv.ConversationID, "bachelor", MessageUser); err != nil {
		t.Fatalf("send message: %v", err)
	}

	job := &TurnJob{
		ID:             "01JOB00000000000000000000000",
		ConversationID: conv.ConversationID,
		UserMessage:    "bachelor",
		Status:         TurnJobQueued,
	}
	if err := repo.CreateTurnJob(ctx, job); err != nil {
		t.Fatalf("create job: %v", err)
	}

	if err := svc.RunTurnJob(ctx, job.ID); err != nil {
		t.Fatalf("run job: %v", err)
	}

	got, err := repo.GetTurnJobByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if got.Status != TurnJobSucceeded {
		t.Fatalf("expected succeeded, got %q", got.Status)
	}
	if got.ResultMessageID == nil {
		t.Fatalf("expected result message id")
	}

	conv2, err := repo.GetConversation(ctx, conv.ConversationID)
	if err != nil {
		t.Fatalf("reload conversation: %v", err)
	}
	if conv2.CurrentState != StateCity {
		t.Fatalf("job should have advanced the conversation, got %q", conv2.CurrentState)
	}
}

func TestRunTurnJob_MarksFailedOnMissingConversation(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	job := &TurnJob{
		ID:             "01JOB00000000000000000000001",
		ConversationID: "01MISSING0000000000000000000",
		UserMessage:    "hi",
		Status:         TurnJobQueued,
	}
	if err := repo.CreateTurnJob(ctx, job); err != nil {
		t.Fatalf("create job: %v", err)
	}

	if err := svc.RunTurnJob(ctx, job.ID); err == nil {
		t.Fatalf("expected error for missing conversation")
	}

	got, err := repo.GetTurnJobByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if got.Status != TurnJobFailed || got.Error == nil {
		t.Fatalf("expected failed with error, got %+v", got)
	}
}
