// Package notify carries the transient, user-facing notifications ("toasts")
// that every auth and feedback action produces.
package notify

import (
	"context"
	"sync"
	"time"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

type Notification struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

func Success(msg string) Notification {
	return Notification{Level: LevelSuccess, Message: msg, At: time.Now().UTC()}
}

func Error(msg string) Notification {
	return Notification{Level: LevelError, Message: msg, At: time.Now().UTC()}
}

// Notifier delivers a notification.  Delivery failures are the notifier's
// problem; callers never see them.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

type multi []Notifier

// Multi fans a notification out to every non-nil notifier in order.
func Multi(ns ...Notifier) Notifier {
	out := make(multi, 0, len(ns))
	for _, n := range ns {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

func (m multi) Notify(ctx context.Context, n Notification) {
	for _, x := range m {
		x.Notify(ctx, n)
	}
}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu   sync.Mutex
	list []Notification
}

func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.list = append(r.list, n)
}

// All returns a copy of everything recorded so far.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.list...)
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.list) == 0 {
		return Notification{}, false
	}
	return r.list[len(r.list)-1], true
}
