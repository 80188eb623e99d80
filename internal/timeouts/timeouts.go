// Package timeouts defines shared timeout constants for network calls made
// by the tracker. Every outbound call on a save or comment path is bounded by
// one of these so a slow collaborator delays but never wedges the caller.
package timeouts

import "time"

// MailSend caps one SMTP delivery attempt to a single recipient.
const MailSend = 10 * time.Second

// CalendarPublish caps publishing the rendered calendar after a save.
const CalendarPublish = 10 * time.Second

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second
