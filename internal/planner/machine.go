package planner

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Transition is the result of advancing a conversation by one user
// utterance. Updates holds only the columns the turn actually changed;
// an empty Updates with Next == current state is a re-prompt.
type Transition struct {
	Next              ConversationState
	Updates           map[string]any
	Reply             string
	Metadata          *MessageMetadata
	GenerateItinerary bool
}

// Advance computes the next turn from a conversation snapshot and the
// latest user utterance. It is pure: persistence of the updated row and
// the bot message is the caller's job, and the caller must have already
// recorded the user's own message.
func Advance(c *Conversation, utterance string) Transition {
	text := strings.TrimSpace(utterance)
	lower := strings.ToLower(text)

	switch c.CurrentState {
	case StateInitial, StatePartyType:
		// "bachelor" alone wins only when "bachelorette" is absent.
		if strings.Contains(lower, "bachelor") && !strings.Contains(lower, "bachelorette") {
			return Transition{
				Next:     StateCity,
				Updates:  map[string]any{"party_type": PartyBachelor},
				Reply:    replyBachelorChosen,
				Metadata: quickReplyMetadata(cityQuickReplies),
			}
		}
		if strings.Contains(lower, "bachelorette") {
			return Transition{
				Next:     StateCity,
				Updates:  map[string]any{"party_type": PartyBachelorette},
				Reply:    replyBacheloretteChosen,
				Metadata: quickReplyMetadata(cityQuickReplies),
			}
		}
		return reprompt(c, replyPartyTypeReprompt, quickReplyMetadata(partyTypeQuickReplies))

	case StateCity:
		if text == "" {
			return reprompt(c, replyCityReprompt, quickReplyMetadata(cityQuickReplies))
		}
		return Transition{
			Next:     StateActivityPreference,
			Updates:  map[string]any{"city": text},
			Reply:    fmt.Sprintf(replyCityChosen, text),
			Metadata: quickReplyMetadata(activityQuickReplies),
		}

	case StateActivityPreference:
		switch {
		case strings.Contains(lower, "activities") || strings.Contains(lower, "adventure"):
			return Transition{
				Next:    StatePartyDetails,
				Updates: map[string]any{"activity_preference": PrefActivities},
				Reply:   replyActivitiesChosen,
			}
		case strings.Contains(lower, "package") || strings.Contains(lower, "complete"):
			return Transition{
				Next:    StatePartyDetails,
				Updates: map[string]any{"activity_preference": PrefPackage},
				Reply:   replyPackageChosen,
			}
		case strings.Contains(lower, "nightlife") || strings.Contains(lower, "night"):
			return Transition{
				Next:    StatePartyDetails,
				Updates: map[string]any{"activity_preference": PrefNightlife},
				Reply:   replyNightlifeChosen,
			}
		}
		return reprompt(c, replyActivityReprompt, quickReplyMetadata(activityQuickReplies))

	case StatePartyDetails:
		return advancePartyDetails(c, text)

	case StatePreferences:
		return advancePreferences(c, text)

	case StateGeneratingItinerary:
		return Transition{
			Next:              StateCompleted,
			Reply:             replyFinal,
			Metadata:          &MessageMetadata{Kind: MetadataFinalItinerary, MediaURLs: mediaFor(c.PartyType)},
			GenerateItinerary: true,
		}

	default: // StateCompleted
		return Transition{Next: StateCompleted, Reply: replyCompleted}
	}
}

// advancePartyDetails fills the party_name -> party_dates -> guest_count
// -> budget slots in order. Guest count is the only validated slot; a
// non-numeric value re-prompts without touching the conversation.
func advancePartyDetails(c *Conversation, text string) Transition {
	switch {
	case c.PartyName == nil:
		if text == "" {
			return reprompt(c, replyPartyNameReprompt, nil)
		}
		return Transition{
			Next:    StatePartyDetails,
			Updates: map[string]any{"party_name": text},
			Reply:   fmt.Sprintf(replyAskDates, text),
		}

	case c.PartyDates == nil:
		if text == "" {
			return reprompt(c, replyDatesReprompt, nil)
		}
		return Transition{
			Next:    StatePartyDetails,
			Updates: map[string]any{"party_dates": text},
			Reply:   replyAskGuestCount,
		}

	case c.GuestCount == nil:
		n, err := strconv.Atoi(text)
		if err != nil || n <= 0 {
			return reprompt(c, replyGuestCountReprompt, nil)
		}
		return Transition{
			Next:    StatePartyDetails,
			Updates: map[string]any{"guest_count": n},
			Reply:   fmt.Sprintf(replyAskBudget, n),
		}

	default:
		// Budget closes out the details; it accepts any input.
		return Transition{
			Next:    StatePreferences,
			Updates: map[string]any{"budget": parseMoney(text)},
			Reply:   replyAskTheme,
		}
	}
}

// advancePreferences fills theme -> dining -> music; completing the last
// slot attaches the itinerary preview and hands off to generation.
func advancePreferences(c *Conversation, text string) Transition {
	switch {
	case c.Theme == nil:
		if text == "" {
			return reprompt(c, replyThemeReprompt, nil)
		}
		return Transition{
			Next:    StatePreferences,
			Updates: map[string]any{"theme": text},
			Reply:   replyAskDining,
		}

	case c.DiningPreferences == nil:
		if text == "" {
			return reprompt(c, replyDiningReprompt, nil)
		}
		return Transition{
			Next:    StatePreferences,
			Updates: map[string]any{"dining_preferences": text},
			Reply:   replyAskMusic,
		}

	default:
		if text == "" {
			return reprompt(c, replyMusicReprompt, nil)
		}
		return Transition{
			Next:     StateGeneratingItinerary,
			Updates:  map[string]any{"music_preferences": text},
			Reply:    replyPreview,
			Metadata: &MessageMetadata{Kind: MetadataItineraryPreview, MediaURLs: mediaFor(c.PartyType)},
		}
	}
}

func reprompt(c *Conversation, reply string, md *MessageMetadata) Transition {
	return Transition{Next: c.CurrentState, Reply: reply, Metadata: md}
}

// parseMoney pulls the first numeric token out of free text, tolerating
// currency symbols and thousands separators. No numeric token yields 0.
func parseMoney(s string) float64 {
	for _, field := range strings.Fields(s) {
		field = strings.Trim(field, "$€£")
		field = strings.ReplaceAll(field, ",", "")
		v, err := strconv.ParseFloat(field, 64)
		if err != nil || v < 0 {
			continue
		}
		return math.Round(v*100) / 100
	}
	return 0
}
