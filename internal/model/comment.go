package model

import (
	"strings"
	"time"
)

// Comment is a free-text note attached to a task.
type Comment struct {
	ID          int
	TaskKey     int
	AuthorEmail string
	Timestamp   time.Time
	Text        string
}

// MessageDelimiter separates the header and body of a notification message.
const MessageDelimiter = " |:| "

// Notification is a per-recipient read flag tied to a comment event.
type Notification struct {
	ID             int
	RecipientEmail string
	Message        string
	IsRead         bool
	Timestamp      time.Time
}

// JoinMessage builds a notification message from its two parts.
func JoinMessage(header, body string) string {
	return header + MessageDelimiter + body
}

// Header returns the part of the message before the delimiter.
func (n Notification) Header() string {
	header, _, _ := strings.Cut(n.Message, MessageDelimiter)
	return header
}

// Body returns the part of the message after the delimiter, or "" when absent.
func (n Notification) Body() string {
	_, body, _ := strings.Cut(n.Message, MessageDelimiter)
	return body
}
