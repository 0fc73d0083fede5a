// Package mailer composes the account e-mails of the server and hands them
// to a delivery transport. Delivery is best-effort: the Dispatcher logs
// failures and never reports them to its caller.
package mailer

import (
	"context"
	"fmt"
)

// Message kinds.
const (
	KindActivation        = "activation"
	KindResetLink         = "reset_link"
	KindResetConfirmation = "reset_confirmation"
)

// Message is one outbound e-mail.
type Message struct {
	Kind    string `json:"kind"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Link    string `json:"link,omitempty"`
}

// Transport delivers a composed message.
type Transport interface {
	Deliver(ctx context.Context, msg Message) error
}

func activationMessage(to, link string) Message {
	return Message{
		Kind:    KindActivation,
		To:      to,
		Subject: "Activate your account",
		Body:    fmt.Sprintf("Follow the link to activate your account:\n\n%s\n", link),
		Link:    link,
	}
}

func resetLinkMessage(to, link string) Message {
	return Message{
		Kind:    KindResetLink,
		To:      to,
		Subject: "Password reset",
		Body: fmt.Sprintf("Someone asked to reset the password of this account. "+
			"Follow the link to choose a new one:\n\n%s\n\nIgnore this e-mail if it was not you.\n", link),
		Link: link,
	}
}

func resetConfirmationMessage(to string) Message {
	return Message{
		Kind:    KindResetConfirmation,
		To:      to,
		Subject: "Your password was changed",
		Body:    "The password of your account has just been changed.\n",
	}
}
