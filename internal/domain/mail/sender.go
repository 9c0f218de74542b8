package mail

import (
	"context"

	"strengths_manager/internal/domain/content"
)

// Message is a single rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers rendered email through a provider.
// The returned id is the provider's message identifier, if it reports one.
type Sender interface {
	Send(ctx context.Context, msg Message) (id string, err error)
}

// WelcomeView is the data behind a welcome email body.
// A nil Content selects the static welcome copy.
type WelcomeView struct {
	UserID     string
	FirstName  string
	Strength1  string
	Strength2  string
	NextMonday string
	Content    *content.WelcomeEmail
}
