package planner

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"
)

func seedConversation(t *testing.T, repo *Repo, id string) *Conversation {
	t.Helper()
	c := &Conversation{ConversationID: id, UserID: "user_1", CurrentState: StateInitial}
	if err := repo.CreateConversation(context.Background(), c); err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	return c
}

func TestRepoUpdateConversation_PartialFieldsOnly(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	seedConversation(t, repo, "01REPOTEST000000000000000000")

	first, err := repo.UpdateConversation(ctx, "01REPOTEST000000000000000000", map[string]any{
		"city":  "Lisbon",
		"theme": "retro",
	})
	if err != nil {
		t.Fatalf("first update: %v", err)
	}
	if first.City == nil || *first.City != "Lisbon" {
		t.Fatalf("expected city Lisbon, got %v", first.City)
	}

	time.Sleep(10 * time.Millisecond)

	second, err := repo.UpdateConversation(ctx, "01REPOTEST000000000000000000", map[string]any{
		"guest_count": 8,
	})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if second.GuestCount == nil || *second.GuestCount != 8 {
		t.Fatalf("expected guest_count 8, got %v", second.GuestCount)
	}
	if second.City == nil || *second.City != "Lisbon" {
		t.Fatalf("untouched fields must survive, city became %v", second.City)
	}
	if second.Theme == nil || *second.Theme != "retro" {
		t.Fatalf("untouched fields must survive, theme became %v", second.Theme)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Fatalf("updated_at should move forward on every write")
	}
}

func TestRepoUpdateConversation_MissingIDIsFatal(t *testing.T) {
	repo := NewRepo(openTestDB(t))

	_, err := repo.UpdateConversation(context.Background(), "01MISSING0000000000000000000", map[string]any{
		"city": "Lisbon",
	})
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestRepoListMessages_TieBreakByInsertionID(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	seedConversation(t, repo, "01REPOTEST000000000000000001")

	// Same created_at for all three; insertion order must win.
	at := time.Now().Truncate(time.Second)
	for _, content := range []string{"first", "second", "third"} {
		m := &Message{
			ConversationID: "01REPOTEST000000000000000001",
			MessageType:    MessageUser,
			Content:        content,
			CreatedAt:      at,
		}
		if err := repo.InsertMessage(ctx, m); err != nil {
			t.Fatalf("insert %q: %v", content, err)
		}
	}

	msgs, err := repo.ListMessages(ctx, "01REPOTEST000000000000000001", 0)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i, want := range []string{"first", "second", "third"} {
		if msgs[i].Content != want {
			t.Fatalf("position %d: expected %q, got %q", i, want, msgs[i].Content)
		}
	}
}

func TestRepoCreateTurnJobOrGetExisting_Idempotent(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	seedConversation(t, repo, "01REPOTEST000000000000000002")

	key := "client-key-1"
	first := &TurnJob{
		ID:             "01JOBREPO0000000000000000000",
		ConversationID: "01REPOTEST000000000000000002",
		UserMessage:    "bachelor",
		IdempotencyKey: &key,
		Status:         TurnJobQueued,
	}
	got, created, err := repo.CreateTurnJobOrGetExisting(ctx, first)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if !created || got.ID != first.ID {
		t.Fatalf("expected a fresh job, created=%v id=%q", created, got.ID)
	}

	dup := &TurnJob{
		ID:             "01JOBREPO0000000000000000001",
		ConversationID: "01REPOTEST000000000000000002",
		UserMessage:    "bachelor",
		IdempotencyKey: &key,
		Status:         TurnJobQueued,
	}
	got, created, err = repo.CreateTurnJobOrGetExisting(ctx, dup)
	if err != nil {
		t.Fatalf("duplicate create: %v", err)
	}
	if created {
		t.Fatalf("duplicate key must not create a second job")
	}
	if got.ID != first.ID {
		t.Fatalf("expected the original job back, got %q", got.ID)
	}
}

func TestRepoCreateTurnJobOrGetExisting_EmptyKeyAlwaysCreates(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	seedConversation(t, repo, "01REPOTEST000000000000000003")

	for i, id := range []string{"01JOBREPO0000000000000000002", "01JOBREPO0000000000000000003"} {
		job := &TurnJob{
			ID:             id,
			ConversationID: "01REPOTEST000000000000000003",
			UserMessage:    "hi",
			Status:         TurnJobQueued,
		}
		_, created, err := repo.CreateTurnJobOrGetExisting(ctx, job)
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if !created {
			t.Fatalf("jobs without a key must always create, attempt %d", i)
		}
	}
}

func TestRepoFailStaleTurnJobs(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	seedConversation(t, repo, "01REPOTEST000000000000000004")

	stale := &TurnJob{
		ID:             "01JOBREPO0000000000000000004",
		ConversationID: "01REPOTEST000000000000000004",
		UserMessage:    "hi",
		Status:         TurnJobRunning,
	}
	if err := repo.CreateTurnJob(ctx, stale); err != nil {
		t.Fatalf("create stale job: %v", err)
	}
	fresh := &TurnJob{
		ID:             "01JOBREPO0000000000000000005",
		ConversationID: "01REPOTEST000000000000000004",
		UserMessage:    "hi",
		Status:         TurnJobRunning,
	}
	if err := repo.CreateTurnJob(ctx, fresh); err != nil {
		t.Fatalf("create fresh job: %v", err)
	}

	// Backdate the stale job past the cutoff without triggering gorm's
	// automatic updated_at bump.
	past := time.Now().Add(-time.Hour)
	if err := db.Model(&TurnJob{}).
		Where("id = ?", stale.ID).
		UpdateColumn("updated_at", past).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}

	n, err := repo.FailStaleTurnJobs(ctx, 10*time.Minute)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 stale job failed, got %d", n)
	}

	got, err := repo.GetTurnJobByID(ctx, stale.ID)
	if err != nil {
		t.Fatalf("reload stale: %v", err)
	}
	if got.Status != TurnJobFailed || got.Error == nil {
		t.Fatalf("stale job should be failed with a reason, got %+v", got)
	}

	got, err = repo.GetTurnJobByID(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("reload fresh: %v", err)
	}
	if got.Status != TurnJobRunning {
		t.Fatalf("fresh job must be untouched, got %q", got.Status)
	}
}
