package planner

// Reply catalog. Re-prompts repeat the key phrase of the question they
// clarify so a stalled conversation always restates what is needed.
const (
	replyGreeting = "Hi there! I'm excited to help you plan the perfect party! First, are you planning a bachelor or bachelorette party?"

	replyPartyTypeReprompt = "I'd love to help you plan! Could you let me know if this is for a bachelor or bachelorette party?"

	replyBachelorChosen     = "Great choice for a bachelor party! Now, which city are you thinking of for this celebration?"
	replyBacheloretteChosen = "Perfect for a bachelorette party! Now, which city are you thinking of for this celebration?"
	replyCityReprompt       = "Which city are you thinking of for this celebration?"

	replyCityChosen = "%s sounds like an amazing place to celebrate! What type of experience are you looking for? Activities, a complete package, or nightlife focused?"

	replyActivityReprompt = "I'd love to help you choose! Are you interested in activities, a complete package, or nightlife focused experiences?"

	replyActivitiesChosen  = "Perfect! Activity-focused celebrations are so much fun. Now let's get some details - what's the name of the person you're celebrating?"
	replyPackageChosen     = "Excellent choice! A complete package takes all the stress out of planning. What's the name of the person you're celebrating?"
	replyNightlifeChosen   = "Great! Nightlife celebrations are always memorable. What's the name of the person you're celebrating?"
	replyPartyNameReprompt = "What's the name of the person you're celebrating?"

	replyAskDates      = "%s is going to have an unforgettable time! What dates are you thinking for the celebration?"
	replyDatesReprompt = "What dates are you thinking for the celebration?"

	replyAskGuestCount      = "Got those dates down! How many guests are you expecting?"
	replyGuestCountReprompt = "I need a number for that one - how many guests are you expecting?"

	replyAskBudget = "Planning for %d guests - this is going to be great! What's your budget for the celebration?"

	replyAskTheme      = "Thanks for those details! Now let's talk about your preferences. Any specific themes or special requests?"
	replyThemeReprompt = "Any specific themes or special requests?"

	replyAskDining      = "Love it! What are your dining preferences for the group?"
	replyDiningReprompt = "What are your dining preferences for the group?"

	replyAskMusic      = "Great taste! And what kind of music gets this crew going?"
	replyMusicReprompt = "What kind of music gets this crew going?"

	replyPreview = "This is going to be amazing! I'm gathering all your preferences to create the perfect itinerary. Here's a preview of what I'm putting together!"

	replyFinal = "Your itinerary is ready! I hope you have an absolutely amazing celebration. Is there anything else you'd like to adjust?"

	replyCompleted = "Happy to make adjustments! Tell me what you'd like to change and I'll rework the plan."
)

// Quick-reply suggestions surfaced by the chat client per prompt.
var (
	partyTypeQuickReplies = []string{"Bachelor Party", "Bachelorette Party"}
	cityQuickReplies      = []string{"Las Vegas", "Miami", "Nashville", "New York", "Austin"}
	activityQuickReplies  = []string{"Activities & Adventures", "Complete Package", "Nightlife Focus"}
)

// Media references are a static lookup keyed by party type; the URL
// values are an external asset-catalog concern.
var (
	bachelorMedia = []string{
		"https://cdn.partyplanner.app/media/bachelor/rooftop-toast.jpg",
		"https://cdn.partyplanner.app/media/bachelor/casino-night.jpg",
		"https://cdn.partyplanner.app/media/bachelor/steakhouse.jpg",
	}
	bacheloretteMedia = []string{
		"https://cdn.partyplanner.app/media/bachelorette/champagne-brunch.jpg",
		"https://cdn.partyplanner.app/media/bachelorette/spa-day.jpg",
		"https://cdn.partyplanner.app/media/bachelorette/dance-floor.jpg",
	}
)

func mediaFor(pt *PartyType) []string {
	if pt != nil && *pt == PartyBachelorette {
		return bacheloretteMedia
	}
	return bachelorMedia
}

func quickReplyMetadata(choices []string) *MessageMetadata {
	return &MessageMetadata{Kind: MetadataQuickReplies, QuickReplies: choices}
}
