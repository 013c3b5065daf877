package planner

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) CreateConversation(ctx context.Context, c *Conversation) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// GetConversation returns (nil, nil) on a lookup miss; a read miss is an
// explicit result, not an error.
func (r *Repo) GetConversation(ctx context.Context, conversationID string) (*Conversation, error) {
	var c Conversation
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateConversation applies only the supplied columns; gorm bumps
// updated_at on every write. A missing id is fatal here, unlike reads.
func (r *Repo) UpdateConversation(ctx context.Context, conversationID string, fields map[string]any) (*Conversation, error) {
	var c Conversation
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		First(&c).Error; err != nil {
		return nil, err
	}

	if len(fields) > 0 {
		if err := r.db.WithContext(ctx).
			Model(&c).
			Updates(fields).Error; err != nil {
			return nil, err
		}
	}

	var out Conversation
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Repo) InsertMessage(ctx context.Context, m *Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// ListMessages returns the chronologically earliest messages in ASC
// order, ties broken by insertion id.
func (r *Repo) ListMessages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	var msgs []Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *Repo) CreateItinerary(ctx context.Context, it *Itinerary) error {
	return r.db.WithContext(ctx).Create(it).Error
}

func (r *Repo) GetItinerary(ctx context.Context, conversationID string, id uint64) (*Itinerary, error) {
	var it Itinerary
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND id = ?", conversationID, id).
		First(&it).Error; err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *Repo) ListItineraries(ctx context.Context, conversationID string) ([]Itinerary, error) {
	var its []Itinerary
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id ASC").
		Find(&its).Error; err != nil {
		return nil, err
	}
	return its, nil
}

// Turn job CRUD

func (r *Repo) CreateTurnJob(ctx context.Context, job *TurnJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *Repo) GetTurnJobByID(ctx context.Context, id string) (*TurnJob, error) {
	var j TurnJob
	if err := r.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *Repo) UpdateTurnJobRunning(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&TurnJob{}).
		Where("id = ? AND status = ?", id, TurnJobQueued).
		Update("status", TurnJobRunning).Error
}

func (r *Repo) MarkTurnJobSucceeded(ctx context.Context, id string, botMsgID uint64) error {
	return r.db.WithContext(ctx).Model(&TurnJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":            TurnJobSucceeded,
			"result_message_id": botMsgID,
			"error":             nil,
		}).Error
}

func (r *Repo) MarkTurnJobFailed(ctx context.Context, id string, errMsg string) error {
	return r.db.WithContext(ctx).Model(&TurnJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":            TurnJobFailed,
			"error":             errMsg,
			"result_message_id": nil,
		}).Error
}

// FailStaleTurnJobs marks jobs stuck in running longer than maxAge as
// failed. Run periodically by the worker's reaper.
func (r *Repo) FailStaleTurnJobs(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	res := r.db.WithContext(ctx).Model(&TurnJob{}).
		Where("status = ? AND updated_at < ?", TurnJobRunning, cutoff).
		Updates(map[string]any{
			"status": TurnJobFailed,
			"error":  "worker timed out",
		})
	return res.RowsAffected, res.Error
}

func (r *Repo) GetTurnJobByIdempotencyKey(ctx context.Context, key string) (*TurnJob, error) {
	var job TurnJob
	if err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", key).
		First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// CreateTurnJobOrGetExisting tries to create a job; if the idempotency
// key already exists it returns the existing job instead.
func (r *Repo) CreateTurnJobOrGetExisting(ctx context.Context, job *TurnJob) (*TurnJob, bool, error) {
	if job.IdempotencyKey == nil || *job.IdempotencyKey == "" {
		job.IdempotencyKey = nil
		if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
			return nil, false, err
		}
		return job, true, nil
	}

	err := r.db.WithContext(ctx).Create(job).Error
	if err == nil {
		return job, true, nil
	}

	existing, getErr := r.GetTurnJobByIdempotencyKey(ctx, *job.IdempotencyKey)
	if getErr == nil {
		return existing, false, nil
	}
	if errors.Is(getErr, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	return nil, false, getErr
}
