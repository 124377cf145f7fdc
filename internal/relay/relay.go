// Package relay delivers contact-form payloads to a hosted e-mail service.
package relay

import (
	"fmt"
)

// Payload is the fixed template shape every relay driver receives.
type Payload struct {
	FromName  string `json:"from_name"`
	FromEmail string `json:"from_email"`
	Message   string `json:"message"`
	ToName    string `json:"to_name"`
	ReplyTo   string `json:"reply_to"`
}

// Error is returned when the relay answered but refused the message.
type Error struct {
	Status int
	Body   string
}

func (e *Error) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("relay rejected message: status %d", e.Status)
	}
	return fmt.Sprintf("relay rejected message: status %d: %s", e.Status, e.Body)
}
