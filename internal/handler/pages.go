package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Trandsoulz/student-connect-client/internal/apiclient"
	"github.com/Trandsoulz/student-connect-client/internal/feedback"
	"github.com/Trandsoulz/student-connect-client/internal/guard"
	"github.com/Trandsoulz/student-connect-client/internal/middleware"
	"github.com/Trandsoulz/student-connect-client/internal/model"
	"github.com/Trandsoulz/student-connect-client/internal/notify"
)

// Page-level notification texts.
const (
	MsgFillAllFields    = feedback.MsgMissingFields
	MsgPasswordMismatch = "Passwords do not match"
	MsgPasswordTooShort = "Password must be at least 6 characters"
	MsgDashboardFailed  = "Failed to load dashboard data"
	MsgListMineFailed   = "Failed to load feedbacks"
	MsgListAllFailed    = "Failed to fetch feedbacks"
	MsgDetailFailed     = "Failed to load feedback details"
	MsgSubmitFailed     = "Failed to submit feedback. Please try again."
	MsgSubmitted        = "Your feedback has been submitted successfully!"
	MsgResponseRequired = "Please add a response before updating"
	MsgUpdateFailed     = "Failed to update feedback"
	MsgDeleteFailed     = "Failed to delete feedback"
	MsgDeleted          = "Feedback deleted successfully"
	minPasswordLen      = 6
)

// Pages serves the browser-facing routes.  Every handler runs behind the
// session and guard middleware, so the Browser and the guard decision are
// always present.
type Pages struct {
	Log *zap.Logger
}

func NewPages(log *zap.Logger) *Pages {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pages{Log: log}
}

// gone reports whether the browser abandoned the request, in which case
// a late backend result is dropped without rendering or notifying.
func gone(c echo.Context) bool {
	return errors.Is(c.Request().Context().Err(), context.Canceled)
}

func decision(c echo.Context) guard.Decision {
	d, _ := middleware.CurrentDecision(c)
	return d
}

func notifyErr(c echo.Context, b *middleware.Browser, err error, fallback string) {
	b.Notifier.Notify(c.Request().Context(), notify.Error(apiclient.Message(err, fallback)))
}

// seeOther redirects a form post.
func seeOther(c echo.Context, to string) error { return c.Redirect(http.StatusSeeOther, to) }

// Landing renders "/".
func (p *Pages) Landing(c echo.Context) error {
	return render(c, http.StatusOK, guard.PageLanding, nil)
}

// LoginForm renders the login form.
func (p *Pages) LoginForm(c echo.Context) error {
	return render(c, http.StatusOK, guard.PageLogin, credentialsForm{})
}

// Login signs in and moves to the dashboard, or re-renders the form with
// the notification the session store emitted.
func (p *Pages) Login(c echo.Context) error {
	b := middleware.CurrentBrowser(c)
	email := strings.TrimSpace(c.FormValue("email"))
	password := c.FormValue("password")
	if email == "" || password == "" {
		return render(c, http.StatusUnprocessableEntity, guard.PageLogin, credentialsForm{Email: email})
	}
	if b.Store.Signin(c.Request().Context(), email, password) {
		return seeOther(c, guard.PathDashboard)
	}
	if gone(c) {
		return nil
	}
	return render(c, http.StatusOK, guard.PageLogin, credentialsForm{Email: email})
}

// LoginLimited is the rate limiter's response for login posts.
func (p *Pages) LoginLimited(c echo.Context, _ int) error {
	return p.limited(c, guard.PageLogin, credentialsForm{Email: c.FormValue("email")})
}

// RegisterLimited is the rate limiter's response for register posts.
func (p *Pages) RegisterLimited(c echo.Context, _ int) error {
	return p.limited(c, guard.PageRegister, registerForm{
		Fullname: c.FormValue("fullname"),
		Email:    c.FormValue("email"),
		Role:     c.FormValue("role"),
	})
}

func (p *Pages) limited(c echo.Context, page guard.Page, data any) error {
	if b := middleware.CurrentBrowser(c); b != nil {
		b.Notifier.Notify(c.Request().Context(), notify.Error(middleware.MsgRateLimited))
	}
	return render(c, http.StatusTooManyRequests, page, data)
}

// RegisterForm renders the registration form.
func (p *Pages) RegisterForm(c echo.Context) error {
	return render(c, http.StatusOK, guard.PageRegister, registerForm{Role: string(model.RoleStudent)})
}

// Register checks the form locally, then signs up.
func (p *Pages) Register(c echo.Context) error {
	b := middleware.CurrentBrowser(c)
	ctx := c.Request().Context()
	form := registerForm{
		Fullname: strings.TrimSpace(c.FormValue("fullname")),
		Email:    strings.TrimSpace(c.FormValue("email")),
		Role:     c.FormValue("role"),
	}
	password := c.FormValue("password")
	confirm := c.FormValue("confirmPassword")

	var problem string
	switch {
	case form.Fullname == "" || form.Email == "" || password == "" || confirm == "":
		problem = MsgFillAllFields
	case password != confirm:
		problem = MsgPasswordMismatch
	case len(password) < minPasswordLen:
		problem = MsgPasswordTooShort
	}
	if problem != "" {
		b.Notifier.Notify(ctx, notify.Error(problem))
		return render(c, http.StatusUnprocessableEntity, guard.PageRegister, form)
	}

	if b.Store.Signup(ctx, form.Fullname, form.Email, password, model.ParseRole(form.Role)) {
		return seeOther(c, guard.PathDashboard)
	}
	if gone(c) {
		return nil
	}
	return render(c, http.StatusOK, guard.PageRegister, form)
}

// Logout clears the session and sends the browser back where it was; the
// guard then routes it onward.
func (p *Pages) Logout(c echo.Context) error {
	b := middleware.CurrentBrowser(c)
	b.Store.Logout(c.Request().Context())
	return seeOther(c, localPath(c.FormValue("from")))
}

// localPath accepts only same-origin absolute paths free of control
// characters and backslashes.
func localPath(s string) string {
	if !strings.HasPrefix(s, "/") || strings.HasPrefix(s, "//") || strings.HasPrefix(s, "/\\") {
		return guard.PathLanding
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] == 0x7f || s[i] == '\\' {
			return guard.PathLanding
		}
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return guard.PathLanding
	}
	return s
}

// Dashboard renders the role's dashboard.
func (p *Pages) Dashboard(c echo.Context) error {
	b := middleware.CurrentBrowser(c)
	ctx := c.Request().Context()
	d := decision(c)

	if d.Page == guard.PageAdminDashboard {
		list, err := b.Feedback.ListAll(ctx)
		if gone(c) {
			return nil
		}
		if err != nil {
			p.Log.Info("dashboard fetch failed", zap.Error(err))
			notifyErr(c, b, err, MsgDashboardFailed)
		}
		return render(c, http.StatusOK, d.Page, feedback.Admin(list))
	}

	list, err := b.Feedback.ListMine(ctx)
	if gone(c) {
		return nil
	}
	if err != nil {
		p.Log.Info("dashboard fetch failed", zap.Error(err))
		notifyErr(c, b, err, MsgDashboardFailed)
	}
	return render(c, http.StatusOK, d.Page, feedback.Student(list))
}

func newSubmitForm() submitForm { return submitForm{Categories: model.Categories} }

// SubmitForm renders the empty feedback form.
func (p *Pages) SubmitForm(c echo.Context) error {
	return render(c, http.StatusOK, guard.PageSubmit, newSubmitForm())
}

// Submit posts new feedback and moves to the student's list on success.
func (p *Pages) Submit(c echo.Context) error {
	b := middleware.CurrentBrowser(c)
	form := newSubmitForm()
	form.Title = c.FormValue("title")
	form.Category = model.Category(c.FormValue("category"))
	form.Description = c.FormValue("description")

	_, err := b.Feedback.Submit(c.Request().Context(), feedback.SubmitInput{
		Title:       form.Title,
		Category:    form.Category,
		Description: form.Description,
	})
	if gone(c) {
		return nil
	}
	if err != nil {
		notifyErr(c, b, err, MsgSubmitFailed)
		status := http.StatusOK
		var ve *apiclient.ValidationError
		if errors.As(err, &ve) {
			status = http.StatusUnprocessableEntity
		}
		return render(c, status, guard.PageSubmit, form)
	}
	b.Notifier.Notify(c.Request().Context(), notify.Success(MsgSubmitted))
	return seeOther(c, guard.PathMyFeedbacks)
}

// MyFeedbacks lists the student's items, optionally filtered by ?status=.
func (p *Pages) MyFeedbacks(c echo.Context) error {
	b := middleware.CurrentBrowser(c)
	list, err := b.Feedback.ListMine(c.Request().Context())
	return p.list(c, b, list, err, MsgListMineFailed)
}

// ManageFeedback lists every item for admins, optionally filtered.
func (p *Pages) ManageFeedback(c echo.Context) error {
	b := middleware.CurrentBrowser(c)
	list, err := b.Feedback.ListAll(c.Request().Context())
	return p.list(c, b, list, err, MsgListAllFailed)
}

func (p *Pages) list(c echo.Context, b *middleware.Browser, list []model.Feedback, err error, fallback string) error {
	if gone(c) {
		return nil
	}
	if err != nil {
		p.Log.Info("list fetch failed", zap.Error(err))
		notifyErr(c, b, err, fallback)
	}
	filter := c.QueryParam("status")
	if filter == "" {
		filter = feedback.FilterAll
	}
	return render(c, http.StatusOK, decision(c).Page, listData{
		Filter:   filter,
		Statuses: model.Statuses,
		Items:    feedback.FilterByStatus(list, filter),
	})
}

func listFor(admin bool) string {
	if admin {
		return guard.PathManageFeedback
	}
	return guard.PathMyFeedbacks
}

// FeedbackDetail renders one item.  A failed fetch notifies and returns the
// browser to the role's list.
func (p *Pages) FeedbackDetail(c echo.Context) error {
	b := middleware.CurrentBrowser(c)
	d := decision(c)
	admin := d.Page == guard.PageAdminDetail

	f, err := b.Feedback.Get(c.Request().Context(), d.FeedbackID)
	if gone(c) {
		return nil
	}
	if err != nil {
		p.Log.Info("detail fetch failed", zap.String("id", d.FeedbackID), zap.Error(err))
		notifyErr(c, b, err, MsgDetailFailed)
		return c.Redirect(http.StatusFound, listFor(admin))
	}
	return render(c, http.StatusOK, d.Page, detailData{
		Feedback: f,
		Admin:    admin,
		Back:     listFor(admin),
		Statuses: model.Statuses,
	})
}

// FeedbackAction handles the admin update and delete forms posted to
// /feedback/:id.
func (p *Pages) FeedbackAction(c echo.Context) error {
	b := middleware.CurrentBrowser(c)
	d := decision(c)
	self := guard.PathFeedbackPrefix + d.FeedbackID
	if d.Page != guard.PageAdminDetail {
		return seeOther(c, self)
	}

	switch c.FormValue("action") {
	case "delete":
		return p.deleteFeedback(c, b, d.FeedbackID)
	case "update", "":
		return p.updateFeedback(c, b, d.FeedbackID)
	}
	return echo.NewHTTPError(http.StatusBadRequest, "unknown action")
}

func (p *Pages) updateFeedback(c echo.Context, b *middleware.Browser, id string) error {
	ctx := c.Request().Context()
	self := guard.PathFeedbackPrefix + id
	status := model.Status(c.FormValue("status"))
	response := strings.TrimSpace(c.FormValue("adminResponse"))
	if response == "" {
		b.Notifier.Notify(ctx, notify.Error(MsgResponseRequired))
		return seeOther(c, self)
	}

	upd := feedback.UpdateInput{AdminResponse: &response}
	if status != "" {
		upd.Status = &status
	}
	f, err := b.Feedback.Update(ctx, id, upd)
	if gone(c) {
		return nil
	}
	if err != nil {
		p.Log.Info("update failed", zap.String("id", id), zap.Error(err))
		notifyErr(c, b, err, MsgUpdateFailed)
		return seeOther(c, self)
	}
	b.Notifier.Notify(ctx, notify.Success(fmt.Sprintf("Feedback status updated to %s", f.Status)))
	return seeOther(c, guard.PathManageFeedback)
}

func (p *Pages) deleteFeedback(c echo.Context, b *middleware.Browser, id string) error {
	err := b.Feedback.Delete(c.Request().Context(), id)
	if gone(c) {
		return nil
	}
	if err != nil {
		p.Log.Info("delete failed", zap.String("id", id), zap.Error(err))
		notifyErr(c, b, err, MsgDeleteFailed)
		return seeOther(c, guard.PathFeedbackPrefix+id)
	}
	b.Notifier.Notify(c.Request().Context(), notify.Success(MsgDeleted))
	return seeOther(c, guard.PathManageFeedback)
}

// NotFound is registered on the catch-all route.  The guard redirects
// every unknown path before this runs, so reaching it means a method the
// page does not support.
func (p *Pages) NotFound(c echo.Context) error {
	return echo.NewHTTPError(http.StatusMethodNotAllowed)
}
