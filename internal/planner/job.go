package planner

import "time"

type TurnJobStatus string

const (
	TurnJobQueued    TurnJobStatus = "queued"
	TurnJobRunning   TurnJobStatus = "running"
	TurnJobSucceeded TurnJobStatus = "succeeded"
	TurnJobFailed    TurnJobStatus = "failed"
)

// TurnJob tracks one asynchronous bot turn: the user message is already
// recorded when the job is enqueued; the worker computes and persists
// the bot reply.
type TurnJob struct {
	ID string `gorm:"primaryKey;size:26" json:"id"` // ULID length

	ConversationID string `gorm:"size:26;index;not null" json:"conversation_id"`
	UserMessage    string `gorm:"type:text;not null" json:"-"`

	IdempotencyKey *string `gorm:"type:varchar(128);index:uniq_turn_job_idempo,unique" json:"idempotency_key"`

	Status TurnJobStatus `gorm:"type:varchar(16);index;not null" json:"status"`

	// Filled when succeeded
	ResultMessageID *uint64 `gorm:"index" json:"result_message_id"`

	// Filled when failed
	Error *string `gorm:"type:text" json:"error"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TurnJob) TableName() string { return "turn_jobs" }
