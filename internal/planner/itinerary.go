package planner

import (
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"
)

// ItineraryActivity is one entry of an itinerary's structured activity
// list.
type ItineraryActivity struct {
	TimeOfDay   string `json:"time_of_day"` // "day" or "night"
	Name        string `json:"name"`
	Description string `json:"description"`
}

// GeneratedItinerary carries the itinerary row plus the day/night
// activity columns written back onto the conversation.
type GeneratedItinerary struct {
	Itinerary       *Itinerary
	DayActivities   datatypes.JSON
	NightActivities datatypes.JSON
}

var dayActivityCatalog = map[ActivityPreference][]ItineraryActivity{
	PrefActivities: {
		{TimeOfDay: "day", Name: "Go-kart grand prix", Description: "Outdoor karting with a podium ceremony for the group"},
		{TimeOfDay: "day", Name: "Boat charter", Description: "Private afternoon charter with music and drinks on board"},
	},
	PrefPackage: {
		{TimeOfDay: "day", Name: "City highlights tour", Description: "Guided tour covering the must-see spots before the evening"},
		{TimeOfDay: "day", Name: "Group lunch tasting", Description: "Reserved long-table tasting menu at a local favorite"},
	},
	PrefNightlife: {
		{TimeOfDay: "day", Name: "Pool club cabana", Description: "Reserved cabana to recover and recharge before the night"},
	},
}

var nightActivityCatalog = map[ActivityPreference][]ItineraryActivity{
	PrefActivities: {
		{TimeOfDay: "night", Name: "Private chef dinner", Description: "In-suite dinner capping off the day's adventures"},
	},
	PrefPackage: {
		{TimeOfDay: "night", Name: "Dinner and show", Description: "Pre-booked dinner followed by headline entertainment"},
		{TimeOfDay: "night", Name: "VIP lounge reservation", Description: "Late-night table with bottle service"},
	},
	PrefNightlife: {
		{TimeOfDay: "night", Name: "Club crawl", Description: "Hosted crawl across three venues with skip-the-line entry"},
		{TimeOfDay: "night", Name: "Rooftop bar finale", Description: "Reserved rooftop tables for the final toast"},
	},
}

// GenerateItinerary renders the collected conversation fields into a
// structured itinerary document. It is deterministic templating; the
// caller persists the result.
func GenerateItinerary(c *Conversation) (*GeneratedItinerary, error) {
	city := "your city"
	if c.City != nil {
		city = *c.City
	}
	honoree := "the guest of honor"
	if c.PartyName != nil {
		honoree = *c.PartyName
	}

	label := "Bachelor"
	if c.PartyType != nil && *c.PartyType == PartyBachelorette {
		label = "Bachelorette"
	}
	title := fmt.Sprintf("Ultimate %s Party in %s", label, city)

	pref := PrefPackage
	if c.ActivityPreference != nil {
		pref = *c.ActivityPreference
	}
	dayActs := dayActivityCatalog[pref]
	nightActs := nightActivityCatalog[pref]

	var parts []string
	parts = append(parts, fmt.Sprintf("A %s celebration for %s in %s.", strings.ToLower(label), honoree, city))
	if c.PartyDates != nil {
		parts = append(parts, fmt.Sprintf("Planned for %s.", *c.PartyDates))
	}
	if c.GuestCount != nil {
		parts = append(parts, fmt.Sprintf("Sized for a group of %d.", *c.GuestCount))
	}
	if c.Theme != nil {
		parts = append(parts, fmt.Sprintf("Theme: %s.", *c.Theme))
	}
	description := strings.Join(parts, " ")

	activities := append(append([]ItineraryActivity{}, dayActs...), nightActs...)
	activitiesJSON, err := json.Marshal(activities)
	if err != nil {
		return nil, err
	}
	dayJSON, err := json.Marshal(dayActs)
	if err != nil {
		return nil, err
	}
	nightJSON, err := json.Marshal(nightActs)
	if err != nil {
		return nil, err
	}
	mediaJSON, err := json.Marshal(mediaFor(c.PartyType))
	if err != nil {
		return nil, err
	}

	cost := estimateCost(c)

	return &GeneratedItinerary{
		Itinerary: &Itinerary{
			ConversationID: c.ConversationID,
			Title:          title,
			Description:    description,
			Activities:     datatypes.JSON(activitiesJSON),
			EstimatedCost:  cost,
			MediaURLs:      datatypes.JSON(mediaJSON),
		},
		DayActivities:   datatypes.JSON(dayJSON),
		NightActivities: datatypes.JSON(nightJSON),
	}, nil
}

// estimateCost prefers the collected budget; without one it falls back
// to a flat per-guest figure.
func estimateCost(c *Conversation) *float64 {
	if c.Budget != nil && *c.Budget > 0 {
		v := *c.Budget
		return &v
	}
	if c.GuestCount != nil && *c.GuestCount > 0 {
		v := float64(*c.GuestCount) * 200
		return &v
	}
	return nil
}
