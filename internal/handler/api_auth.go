package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Trandsoulz/student-connect-client/internal/config"
	"github.com/Trandsoulz/student-connect-client/internal/middleware"
	"github.com/Trandsoulz/student-connect-client/internal/model"
	"github.com/Trandsoulz/student-connect-client/internal/repository"
	"github.com/Trandsoulz/student-connect-client/internal/utils"
)

// AuthHandler serves the dev API's /api/auth endpoints.
type AuthHandler struct {
	Cfg   config.DevAPIConfig
	Users *repository.UserRepo
	Log   *zap.Logger
}

func NewAuthHandler(cfg config.DevAPIConfig, u *repository.UserRepo, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{Cfg: cfg, Users: u, Log: log}
}

// ----- DTOs -----

type signupReq struct {
	Fullname string `json:"fullname" validate:"required,notblank"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=student admin"`
}

type signinReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type sessionData struct {
	User  model.User `json:"user"`
	Token string     `json:"token"`
}

// Signup creates a user and returns a token immediately.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := bindValid(c, &req); err != nil {
		switch firstInvalid(err) {
		case "email":
			return jsonFail(c, http.StatusBadRequest, "Please provide a valid email")
		case "password":
			return jsonFail(c, http.StatusBadRequest, "Password must be at least 6 characters")
		case "role":
			return jsonFail(c, http.StatusBadRequest, "Invalid role")
		}
		return jsonFail(c, http.StatusBadRequest, "Please provide all required fields")
	}
	role := model.RoleStudent
	if req.Role != "" {
		role = model.Role(req.Role)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.Create(ctx, req.Fullname, req.Email, req.Password, role, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return jsonFail(c, http.StatusConflict, "User already exists with this email")
		}
		h.Log.Error("create user", zap.Error(err))
		return jsonFail(c, http.StatusInternalServerError, "Server error during registration")
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, string(u.Role), h.Cfg.AccessTTLMin)
	if err != nil {
		h.Log.Error("issue token", zap.Error(err))
		return jsonFail(c, http.StatusInternalServerError, "Server error during registration")
	}
	return jsonOK(c, http.StatusCreated, "User registered successfully", sessionData{User: u.Public(), Token: access.Token})
}

// Signin verifies credentials and returns a fresh token.
func (h *AuthHandler) Signin(c echo.Context) error {
	var req signinReq
	if err := bindValid(c, &req); err != nil {
		return jsonFail(c, http.StatusBadRequest, "Please provide email and password")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return jsonFail(c, http.StatusUnauthorized, "Invalid credentials")
		}
		h.Log.Error("load user", zap.Error(err))
		return jsonFail(c, http.StatusInternalServerError, "Server error during login")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return jsonFail(c, http.StatusUnauthorized, "Invalid credentials")
	}
	if !u.IsActive {
		return jsonFail(c, http.StatusForbidden, "Account is deactivated")
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, string(u.Role), h.Cfg.AccessTTLMin)
	if err != nil {
		h.Log.Error("issue token", zap.Error(err))
		return jsonFail(c, http.StatusInternalServerError, "Server error during login")
	}
	return jsonOK(c, http.StatusOK, "Login successful", sessionData{User: u.Public(), Token: access.Token})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	id, _ := c.Get(middleware.CtxUserID).(string)
	u, err := h.Users.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return jsonFail(c, http.StatusNotFound, "User not found")
		}
		return jsonFail(c, http.StatusInternalServerError, "Server error")
	}
	return jsonOK(c, http.StatusOK, "", echo.Map{"user": u.Public()})
}

// SeedAdmin creates an admin account when email is set and unused.
func (h *AuthHandler) SeedAdmin(ctx context.Context, email, password string) error {
	if email == "" {
		return nil
	}
	if _, err := h.Users.GetByEmail(ctx, email); err == nil {
		return nil
	}
	_, err := h.Users.Create(ctx, "Administrator", email, password, model.RoleAdmin, h.Cfg.BcryptCost)
	if errors.Is(err, repository.ErrEmailExists) {
		return nil
	}
	return err
}
