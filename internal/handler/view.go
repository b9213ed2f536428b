package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/Trandsoulz/student-connect-client/internal/guard"
	"github.com/Trandsoulz/student-connect-client/internal/middleware"
	"github.com/Trandsoulz/student-connect-client/internal/model"
	"github.com/Trandsoulz/student-connect-client/internal/notify"
)

// view is the data every page template receives.
type view struct {
	Title         string
	Page          guard.Page
	Path          string
	Authenticated bool
	User          model.User
	Nav           []guard.NavItem
	Active        guard.Tab
	Toasts        []notify.Notification
	Data          any
}

type credentialsForm struct {
	Email string
}

type registerForm struct {
	Fullname string
	Email    string
	Role     string
}

type submitForm struct {
	Title       string
	Category    model.Category
	Description string
	Categories  []model.Category
}

type listData struct {
	Filter   string
	Statuses []model.Status
	Items    []model.Feedback
}

type detailData struct {
	Feedback model.Feedback
	Admin    bool
	Back     string
	Statuses []model.Status
}

var titles = map[guard.Page]string{
	guard.PageLanding:          "",
	guard.PageLogin:            "Login",
	guard.PageRegister:         "Register",
	guard.PageStudentDashboard: "Dashboard",
	guard.PageAdminDashboard:   "Admin Dashboard",
	guard.PageSubmit:           "Submit Feedback",
	guard.PageMyFeedbacks:      "My Feedbacks",
	guard.PageManageFeedback:   "Manage Feedback",
	guard.PageStudentDetail:    "Feedback Details",
	guard.PageAdminDetail:      "Feedback Details",
}

// render drains pending toasts into the page and writes it.  The session's
// current state decides the navigation shown.
func render(c echo.Context, status int, page guard.Page, data any) error {
	b := middleware.CurrentBrowser(c)
	path := guard.Normalize(c.Request().URL.Path)
	v := view{
		Title: titles[page],
		Page:  page,
		Path:  path,
		Data:  data,
	}
	if b != nil {
		if u, ok := b.Store.User(); ok {
			v.Authenticated = true
			v.User = u
			v.Nav = guard.NavItems(u.Role)
			v.Active = guard.ActiveTab(path, u.Role)
		}
		v.Toasts = b.Flash.Drain(c.Request().Context())
	}
	return c.Render(status, templateFor(page), v)
}
