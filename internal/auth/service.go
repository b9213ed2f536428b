// Package auth wraps the backend auth endpoints and owns the durable pairing
// of the session token and user snapshot.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Trandsoulz/student-connect-client/internal/apiclient"
	"github.com/Trandsoulz/student-connect-client/internal/model"
	"github.com/Trandsoulz/student-connect-client/internal/storage"
)

// ErrIncompleteSession is returned when the backend reports success but
// omits the token or user, which would break the token/user pairing.
var ErrIncompleteSession = errors.New("auth response missing token or user")

type SignupInput struct {
	Fullname string     `json:"fullname"`
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Role     model.Role `json:"role,omitempty"`
}

type SigninInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Result is the decoded outcome of signin/signup.  Success mirrors the
// backend's success flag; Message is the backend's message either way.
type Result struct {
	Success bool
	Message string
	User    model.User
	Token   string
}

type sessionData struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// Service is stateless apart from the storage scope it is bound to.
type Service struct {
	api   *apiclient.Client
	store storage.Storage
	log   *zap.Logger
}

// NewService binds api to the token held in store, so every request made
// through this service (and through API()) carries the stored bearer token.
func NewService(api *apiclient.Client, store storage.Storage, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{store: store, log: log}
	s.api = api.WithTokens(s)
	return s
}

// API is the token-bound client, shared with the feedback service.
func (s *Service) API() *apiclient.Client { return s.api }

func (s *Service) Signup(ctx context.Context, in SignupInput) (Result, error) {
	if in.Role == "" {
		in.Role = model.RoleStudent
	}
	return s.authenticate(ctx, "/api/auth/signup", in)
}

func (s *Service) Signin(ctx context.Context, in SigninInput) (Result, error) {
	return s.authenticate(ctx, "/api/auth/signin", in)
}

func (s *Service) authenticate(ctx context.Context, path string, body any) (Result, error) {
	var data sessionData
	env, err := s.api.Post(ctx, path, body, &data)
	if err != nil {
		return Result{}, err
	}
	res := Result{Success: env.Success, Message: env.Message}
	if !env.Success {
		return res, nil
	}
	if data.Token == "" || data.User == nil {
		return Result{}, ErrIncompleteSession
	}
	if err := s.persist(ctx, data.Token, *data.User); err != nil {
		return Result{}, err
	}
	res.User = *data.User
	res.Token = data.Token
	return res, nil
}

func (s *Service) persist(ctx context.Context, token string, u model.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.store.Set(ctx, map[string]string{
		storage.KeyToken: token,
		storage.KeyUser:  string(raw),
	}); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// Me asks the backend who the stored token belongs to.  It is not called on
// startup; the stored snapshot is trusted until a request fails.
func (s *Service) Me(ctx context.Context) (model.User, error) {
	var data struct {
		User model.User `json:"user"`
	}
	if _, err := s.api.Get(ctx, "/api/auth/me", &data); err != nil {
		return model.User{}, err
	}
	return data.User, nil
}

// Logout clears the token and user together.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.store.Delete(ctx, storage.KeyToken, storage.KeyUser); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// StoredToken returns the durable token, if any.
func (s *Service) StoredToken(ctx context.Context) (string, bool) {
	tok, ok, err := s.store.Get(ctx, storage.KeyToken)
	if err != nil {
		s.log.Warn("read stored token", zap.Error(err))
		return "", false
	}
	return tok, ok && tok != ""
}

// Token implements apiclient.TokenSource.
func (s *Service) Token(ctx context.Context) (string, bool) { return s.StoredToken(ctx) }

// StoredUser returns the durable user snapshot, if any and decodable.
func (s *Service) StoredUser(ctx context.Context) (model.User, bool) {
	raw, ok, err := s.store.Get(ctx, storage.KeyUser)
	if err != nil {
		s.log.Warn("read stored user", zap.Error(err))
		return model.User{}, false
	}
	if !ok || raw == "" {
		return model.User{}, false
	}
	var u model.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		s.log.Warn("decode stored user", zap.Error(err))
		return model.User{}, false
	}
	return u, true
}

// IsAuthenticated reports whether a token is stored.
func (s *Service) IsAuthenticated(ctx context.Context) bool {
	_, ok := s.StoredToken(ctx)
	return ok
}

// Rehydrate returns the stored user only when the stored pair is consistent.
// A half pair is cleared so storage never keeps a token without a user or
// a user without a token.
func (s *Service) Rehydrate(ctx context.Context) (model.User, bool) {
	u, hasUser := s.StoredUser(ctx)
	_, hasToken := s.StoredToken(ctx)
	if hasUser && hasToken {
		return u, true
	}
	if hasUser || hasToken {
		s.log.Info("clearing inconsistent stored session",
			zap.Bool("has_user", hasUser), zap.Bool("has_token", hasToken))
		if err := s.Logout(ctx); err != nil {
			s.log.Warn("clear inconsistent session", zap.Error(err))
		}
	}
	return model.User{}, false
}
