package email

import (
	"encoding/json"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"

	"github.com/appdotbuilder/party-planner-bot/internal/planner"
)

type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

type Sender struct {
	cfg SMTPConfig
}

func NewSender(cfg SMTPConfig) *Sender {
	return &Sender{cfg: cfg}
}

func (s *Sender) Enabled() bool {
	return s.cfg.Host != "" && s.cfg.From != ""
}

// SendItinerary mails a plain-text rendering of an itinerary.
func (s *Sender) SendItinerary(to string, conv *planner.Conversation, it *planner.Itinerary) error {
	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = []string{to}
	e.Subject = it.Title
	e.Text = []byte(renderItinerary(conv, it))

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	return e.Send(addr, smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host))
}

func renderItinerary(conv *planner.Conversation, it *planner.Itinerary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n%s\n", it.Title, it.Description)

	var activities []planner.ItineraryActivity
	if err := json.Unmarshal(it.Activities, &activities); err == nil && len(activities) > 0 {
		b.WriteString("\nActivities:\n")
		for _, a := range activities {
			fmt.Fprintf(&b, "  [%s] %s - %s\n", a.TimeOfDay, a.Name, a.Description)
		}
	}

	if it.EstimatedCost != nil {
		fmt.Fprintf(&b, "\nEstimated cost: $%.2f\n", *it.EstimatedCost)
	}
	if conv.PartyDates != nil {
		fmt.Fprintf(&b, "Dates: %s\n", *conv.PartyDates)
	}
	return b.String()
}
