// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
// Messages are immutable once built.
package domain

import (
	"time"
)

// BotName authors every system notice (welcome, joined, left).
const BotName = "ChatBot"

const WelcomeText = "Welcome to the chat!"

// displayLayout renders a 12-hour clock, e.g. "3:04 pm".
const displayLayout = "3:04 pm"

// Message represents an immutable chat event.
type Message struct {
	Sender      string
	Text        string
	CreatedAt   time.Time
	DisplayTime string
}

func NewMessage(sender, text string, at time.Time) Message {
	return Message{
		Sender:      sender,
		Text:        text,
		CreatedAt:   at,
		DisplayTime: at.Format(displayLayout),
	}
}

func JoinedNotice(username string, at time.Time) Message {
	return NewMessage(BotName, username+" has joined the chat", at)
}

func LeftNotice(username string, at time.Time) Message {
	return NewMessage(BotName, username+" has left the chat", at)
}

func WelcomeNotice(at time.Time) Message {
	return NewMessage(BotName, WelcomeText, at)
}
