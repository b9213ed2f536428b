// Package queue defines message payloads exchanged over the message broker
// and the consumer that drains them.
package queue

// NotificationsQueue is the durable queue notification events are routed to.
const NotificationsQueue = "studentconnect.notifications"

// NotificationEvent is published for every toast shown to a browser
// session.  It carries enough to audit what a user was told without
// querying the session store.
type NotificationEvent struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id,omitempty"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	At        string `json:"at"`
}
