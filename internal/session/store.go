// Package session holds the per-browser-session authentication state: the
// current user snapshot and whether an auth operation is in flight.
package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/Trandsoulz/student-connect-client/internal/apiclient"
	"github.com/Trandsoulz/student-connect-client/internal/auth"
	"github.com/Trandsoulz/student-connect-client/internal/model"
	"github.com/Trandsoulz/student-connect-client/internal/notify"
)

const (
	MsgLoginOK        = "Login successful!"
	MsgLoginFailed    = "Login failed"
	MsgLoginError     = "Login failed. Please try again."
	MsgRegisterOK     = "Registration successful!"
	MsgRegisterFailed = "Registration failed"
	MsgRegisterError  = "Registration failed. Please try again."
	MsgLoggedOut      = "Logged out successfully"
)

// State is a snapshot handed to subscribers.
type State struct {
	User          model.User
	Authenticated bool
	Loading       bool
}

type subscriber struct {
	id int
	fn func(State)
}

// Store is the session state for one browser session.  Reads are safe from
// any goroutine; Signin, Signup and Logout are expected one at a time.
type Store struct {
	auth     *auth.Service
	notifier notify.Notifier
	log      *zap.Logger

	mu      sync.Mutex
	user    *model.User
	loading bool
	subs    []subscriber
	nextSub int
}

type Option func(*Store)

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// New rehydrates the store from durable storage.  It makes no network call;
// the stored snapshot is trusted until a backend request says otherwise.
func New(ctx context.Context, a *auth.Service, n notify.Notifier, opts ...Option) *Store {
	if n == nil {
		n = notify.Multi()
	}
	s := &Store{auth: a, notifier: n, log: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	if u, ok := a.Rehydrate(ctx); ok {
		s.user = &u
	}
	return s
}

// User returns the current snapshot.
func (s *Store) User() (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return model.User{}, false
	}
	return *s.user, true
}

func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil
}

func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Role is the current user's role, or empty when signed out.
func (s *Store) Role() model.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return ""
	}
	return s.user.Role
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Store) stateLocked() State {
	st := State{Loading: s.loading}
	if s.user != nil {
		st.User = *s.user
		st.Authenticated = true
	}
	return st
}

// Subscribe registers fn to run after every state change, synchronously and
// in subscription order.  The returned func removes it.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// update applies fn under the lock and then notifies subscribers outside it.
func (s *Store) update(fn func()) {
	s.mu.Lock()
	fn()
	st := s.stateLocked()
	subs := append([]subscriber(nil), s.subs...)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(st)
	}
}

func (s *Store) setLoading(v bool) {
	s.update(func() { s.loading = v })
}

type messages struct {
	ok, failed, errored string
}

var (
	signinMessages = messages{MsgLoginOK, MsgLoginFailed, MsgLoginError}
	signupMessages = messages{MsgRegisterOK, MsgRegisterFailed, MsgRegisterError}
)

// Signin authenticates and, on success, adopts the returned user.  Every
// outcome produces exactly one notification unless ctx was cancelled.
func (s *Store) Signin(ctx context.Context, email, password string) bool {
	s.setLoading(true)
	defer s.setLoading(false)

	res, err := s.auth.Signin(ctx, auth.SigninInput{Email: email, Password: password})
	return s.settle(ctx, res, err, signinMessages)
}

// Signup registers a new account; an empty role registers a student.
func (s *Store) Signup(ctx context.Context, fullname, email, password string, role model.Role) bool {
	s.setLoading(true)
	defer s.setLoading(false)

	res, err := s.auth.Signup(ctx, auth.SignupInput{
		Fullname: fullname,
		Email:    email,
		Password: password,
		Role:     role,
	})
	return s.settle(ctx, res, err, signupMessages)
}

func (s *Store) settle(ctx context.Context, res auth.Result, err error, m messages) bool {
	switch {
	case err != nil:
		if ctx.Err() != nil {
			s.log.Debug("auth result discarded after cancellation", zap.Error(err))
			return false
		}
		s.log.Info("auth request failed", zap.Error(err))
		s.notifier.Notify(ctx, notify.Error(apiclient.Message(err, m.errored)))
		return false
	case !res.Success:
		msg := res.Message
		if msg == "" {
			msg = m.failed
		}
		s.notifier.Notify(ctx, notify.Error(msg))
		return false
	}

	u := res.User
	s.update(func() { s.user = &u })
	s.notifier.Notify(ctx, notify.Success(m.ok))
	return true
}

// Logout clears the stored pair and the in-memory user.  Storage errors are
// logged; the caller always ends up signed out in memory.
func (s *Store) Logout(ctx context.Context) {
	if err := s.auth.Logout(ctx); err != nil {
		s.log.Warn("logout: clear storage", zap.Error(err))
	}
	s.update(func() { s.user = nil })
	s.notifier.Notify(ctx, notify.Success(MsgLoggedOut))
}
