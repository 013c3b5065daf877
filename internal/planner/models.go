package planner

import (
	"time"

	"gorm.io/datatypes"
)

type ConversationState string

const (
	StateInitial             ConversationState = "initial"
	StatePartyType           ConversationState = "party_type"
	StateCity                ConversationState = "city"
	StateActivityPreference  ConversationState = "activity_preference"
	StatePartyDetails        ConversationState = "party_details"
	StatePreferences         ConversationState = "preferences"
	StateGeneratingItinerary ConversationState = "generating_itinerary"
	StateCompleted           ConversationState = "completed"
)

type PartyType string

const (
	PartyBachelor     PartyType = "bachelor"
	PartyBachelorette PartyType = "bachelorette"
)

type ActivityPreference string

const (
	PrefActivities ActivityPreference = "activities"
	PrefPackage    ActivityPreference = "package"
	PrefNightlife  ActivityPreference = "nightlife"
)

type MessageType string

const (
	MessageUser   MessageType = "user"
	MessageBot    MessageType = "bot"
	MessageSystem MessageType = "system"
)

// Conversation is the root aggregate. Collected fields are filled
// progressively by the state machine and never cleared.
type Conversation struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement" json:"-"`
	ConversationID string `gorm:"type:varchar(26);uniqueIndex;not null" json:"conversation_id"`
	UserID         string `gorm:"type:varchar(64);index;not null" json:"user_id"`

	PartyType          *PartyType          `gorm:"type:varchar(16)" json:"party_type"`
	City               *string             `gorm:"type:varchar(128)" json:"city"`
	ActivityPreference *ActivityPreference `gorm:"type:varchar(16)" json:"activity_preference"`
	PartyName          *string             `gorm:"type:varchar(128)" json:"party_name"`
	PartyDates         *string             `gorm:"type:varchar(255)" json:"party_dates"`
	GuestCount         *int                `json:"guest_count"`
	Budget             *float64            `gorm:"type:decimal(10,2)" json:"budget"`
	Theme              *string             `gorm:"type:varchar(255)" json:"theme"`
	DiningPreferences  *string             `gorm:"type:text" json:"dining_preferences"`
	MusicPreferences   *string             `gorm:"type:text" json:"music_preferences"`
	DayActivities      datatypes.JSON      `json:"day_activities"`
	NightActivities    datatypes.JSON      `json:"night_activities"`

	CurrentState ConversationState `gorm:"type:varchar(32);index;not null" json:"current_state"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func (Conversation) TableName() string { return "conversations" }

// Message rows are append-only; replay order is created_at ASC with id
// as tie-breaker.
type Message struct {
	ID             uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID string         `gorm:"type:varchar(26);not null;index:idx_msg_conv_created,priority:1" json:"conversation_id"`
	MessageType    MessageType    `gorm:"type:varchar(16);not null" json:"message_type"`
	Content        string         `gorm:"type:text;not null" json:"content"`
	Metadata       datatypes.JSON `json:"metadata"`
	CreatedAt      time.Time      `gorm:"index:idx_msg_conv_created,priority:2" json:"created_at"`
}

func (Message) TableName() string { return "messages" }

type Itinerary struct {
	ID             uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID string         `gorm:"type:varchar(26);index;not null" json:"conversation_id"`
	Title          string         `gorm:"type:varchar(255);not null" json:"title"`
	Description    string         `gorm:"type:text;not null" json:"description"`
	Activities     datatypes.JSON `gorm:"not null" json:"activities"`
	EstimatedCost  *float64       `gorm:"type:decimal(10,2)" json:"estimated_cost"`
	MediaURLs      datatypes.JSON `json:"media_urls"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (Itinerary) TableName() string { return "itineraries" }

// MessageMetadata is the structured payload attached to bot messages:
// quick-reply suggestions for prompt states, media for the itinerary
// preview, and the generated itinerary reference on the final message.
type MessageMetadata struct {
	Kind         string   `json:"kind,omitempty"`
	QuickReplies []string `json:"quick_replies,omitempty"`
	MediaURLs    []string `json:"media_urls,omitempty"`
	ItineraryID  uint64   `json:"itinerary_id,omitempty"`
	Title        string   `json:"title,omitempty"`
}

const (
	MetadataQuickReplies     = "quick_replies"
	MetadataItineraryPreview = "itinerary_preview"
	MetadataFinalItinerary   = "final_itinerary"
)
