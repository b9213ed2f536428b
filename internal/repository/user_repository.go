package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Trandsoulz/student-connect-client/internal/model"
	"github.com/Trandsoulz/student-connect-client/internal/utils"
)

// User is a stored account.  PasswordHash never leaves the repository
// through the API; Public strips it.
type User struct {
	ID           string
	Fullname     string
	Email        string
	PasswordHash string
	Role         model.Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Public is the wire view of the user.
func (u User) Public() model.User {
	return model.User{
		ID:        u.ID,
		Fullname:  u.Fullname,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// Ref is the populated reference embedded in feedback documents.
func (u User) Ref() model.UserRef {
	return model.UserRef{ID: u.ID, Fullname: u.Fullname, Email: u.Email}
}

// UserRepo keeps accounts in memory, indexed by id and normalized email.
type UserRepo struct {
	mu      sync.RWMutex
	byID    map[string]User
	byEmail map[string]string
}

func NewUserRepo() *UserRepo {
	return &UserRepo{byID: map[string]User{}, byEmail: map[string]string{}}
}

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Create hashes the password and stores a new active user.
func (r *UserRepo) Create(ctx context.Context, fullname, email, password string, role model.Role, cost int) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	email = normalizeEmail(email)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return User{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[email]; ok {
		return User{}, ErrEmailExists
	}
	now := time.Now().UTC()
	u := User{
		ID:           uuid.NewString(),
		Fullname:     strings.TrimSpace(fullname),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.byID[u.ID] = u
	r.byEmail[email] = u.ID
	return u, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[normalizeEmail(email)]
	if !ok {
		return User{}, ErrNotFound
	}
	return r.byID[id], nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

// ref resolves a user reference, tolerating deleted users.
func (r *UserRepo) ref(id string) model.UserRef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.byID[id]; ok {
		return u.Ref()
	}
	return model.UserRef{ID: id}
}
