package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Trandsoulz/student-connect-client/internal/middleware"
	"github.com/Trandsoulz/student-connect-client/internal/model"
	"github.com/Trandsoulz/student-connect-client/internal/repository"
)

// FeedbackHandler serves the dev API's /api/feedback endpoints.  Role
// checks happen in the router; handlers only scope by owner.
type FeedbackHandler struct {
	Repo *repository.FeedbackRepo
	Log  *zap.Logger
}

func NewFeedbackHandler(repo *repository.FeedbackRepo, log *zap.Logger) *FeedbackHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &FeedbackHandler{Repo: repo, Log: log}
}

type submitReq struct {
	Title       string `json:"title" validate:"required,notblank"`
	Category    string `json:"category" validate:"required"`
	Description string `json:"description" validate:"required,notblank"`
}

type updateReq struct {
	Status        *string `json:"status"`
	AdminResponse *string `json:"adminResponse"`
}

type feedbackList struct {
	Count     int              `json:"count"`
	Feedbacks []model.Feedback `json:"feedbacks"`
}

func caller(c echo.Context) (string, model.Role) {
	id, _ := c.Get(middleware.CtxUserID).(string)
	role, _ := c.Get(middleware.CtxRole).(string)
	return id, model.Role(role)
}

// Submit stores a new Pending item for the calling student.
func (h *FeedbackHandler) Submit(c echo.Context) error {
	var req submitReq
	if err := bindValid(c, &req); err != nil {
		return jsonFail(c, http.StatusBadRequest, "Please provide all required fields")
	}
	cat := model.Category(req.Category)
	if !cat.Valid() {
		return jsonFail(c, http.StatusBadRequest, "Invalid category")
	}
	uid, _ := caller(c)
	f, err := h.Repo.Create(c.Request().Context(), uid, req.Title, cat, req.Description)
	if err != nil {
		h.Log.Error("create feedback", zap.Error(err))
		return jsonFail(c, http.StatusInternalServerError, "Server error while submitting feedback")
	}
	return jsonOK(c, http.StatusCreated, "Feedback submitted successfully", echo.Map{"feedback": f})
}

// Mine lists the calling student's items.
func (h *FeedbackHandler) Mine(c echo.Context) error {
	uid, _ := caller(c)
	list, err := h.Repo.ListByStudent(c.Request().Context(), uid)
	if err != nil {
		h.Log.Error("list feedback", zap.Error(err))
		return jsonFail(c, http.StatusInternalServerError, "Server error while fetching feedbacks")
	}
	return jsonOK(c, http.StatusOK, "Feedbacks retrieved successfully", feedbackList{Count: len(list), Feedbacks: list})
}

// All lists every item.
func (h *FeedbackHandler) All(c echo.Context) error {
	list, err := h.Repo.ListAll(c.Request().Context())
	if err != nil {
		h.Log.Error("list feedback", zap.Error(err))
		return jsonFail(c, http.StatusInternalServerError, "Server error while fetching feedbacks")
	}
	return jsonOK(c, http.StatusOK, "Feedbacks retrieved successfully", feedbackList{Count: len(list), Feedbacks: list})
}

// Get returns one item to its owner or to any admin.  Other students get
// 404 so that ids of foreign items are not confirmed.
func (h *FeedbackHandler) Get(c echo.Context) error {
	uid, role := caller(c)
	var (
		f   model.Feedback
		err error
	)
	if role.IsAdmin() {
		f, err = h.Repo.Get(c.Request().Context(), c.Param("id"))
	} else {
		f, err = h.Repo.GetOwned(c.Request().Context(), c.Param("id"), uid)
	}
	if err != nil {
		return h.lookupFailed(c, err)
	}
	return jsonOK(c, http.StatusOK, "Feedback retrieved successfully", echo.Map{"feedback": f})
}

// Update changes status and/or the admin response.
func (h *FeedbackHandler) Update(c echo.Context) error {
	var req updateReq
	if err := c.Bind(&req); err != nil {
		return jsonFail(c, http.StatusBadRequest, "Invalid request body")
	}
	var upd repository.FeedbackUpdate
	if req.Status != nil {
		st := model.Status(*req.Status)
		if !st.Valid() {
			return jsonFail(c, http.StatusBadRequest, "Invalid status")
		}
		upd.Status = &st
	}
	upd.AdminResponse = req.AdminResponse

	uid, _ := caller(c)
	f, err := h.Repo.Update(c.Request().Context(), c.Param("id"), uid, upd)
	if err != nil {
		return h.lookupFailed(c, err)
	}
	return jsonOK(c, http.StatusOK, "Feedback updated successfully", echo.Map{"feedback": f})
}

// Delete removes one item.
func (h *FeedbackHandler) Delete(c echo.Context) error {
	if err := h.Repo.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return h.lookupFailed(c, err)
	}
	return jsonOK(c, http.StatusOK, "Feedback deleted successfully", nil)
}

func (h *FeedbackHandler) lookupFailed(c echo.Context, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return jsonFail(c, http.StatusNotFound, "Feedback not found")
	}
	h.Log.Error("feedback lookup", zap.Error(err))
	return jsonFail(c, http.StatusInternalServerError, "Server error")
}
