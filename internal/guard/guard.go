// Package guard decides, from the path and the session's auth state, whether
// a page renders or the browser is sent elsewhere.  Decide is a pure
// function; the echo middleware and the Navigator are thin shells over it.
package guard

import (
	"strings"

	"github.com/Trandsoulz/student-connect-client/internal/model"
)

type Kind int

const (
	Render Kind = iota
	Redirect
)

func (k Kind) String() string {
	if k == Redirect {
		return "redirect"
	}
	return "render"
}

type Page string

const (
	PageLanding          Page = "landing"
	PageLogin            Page = "login"
	PageRegister         Page = "register"
	PageStudentDashboard Page = "student-dashboard"
	PageAdminDashboard   Page = "admin-dashboard"
	PageSubmit           Page = "submit"
	PageMyFeedbacks      Page = "my-feedbacks"
	PageManageFeedback   Page = "manage-feedback"
	PageStudentDetail    Page = "student-feedback-detail"
	PageAdminDetail      Page = "admin-feedback-detail"
)

const (
	PathLanding        = "/"
	PathLogin          = "/login"
	PathRegister       = "/register"
	PathDashboard      = "/dashboard"
	PathSubmit         = "/submit"
	PathMyFeedbacks    = "/my-feedbacks"
	PathManageFeedback = "/manage-feedback"
	PathFeedbackPrefix = "/feedback/"
)

// Decision is the outcome of Decide.  Page is set for Render, Target for
// Redirect.  FeedbackID carries the :id segment of a detail page.
type Decision struct {
	Kind       Kind
	Page       Page
	Target     string
	FeedbackID string
}

func render(p Page) Decision      { return Decision{Kind: Render, Page: p} }
func redirect(to string) Decision { return Decision{Kind: Redirect, Target: to} }

// Normalize trims a single trailing slash, leaving "/" alone.
func Normalize(path string) string {
	if path == "" {
		return PathLanding
	}
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		return path[:len(path)-1]
	}
	return path
}

// FeedbackID extracts :id from /feedback/:id.  Exactly one non-empty segment
// must follow the prefix.
func FeedbackID(path string) (string, bool) {
	path = Normalize(path)
	if !strings.HasPrefix(path, PathFeedbackPrefix) {
		return "", false
	}
	id := path[len(PathFeedbackPrefix):]
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// Decide maps (path, auth state) onto a decision.  role is ignored when
// authenticated is false.
func Decide(path string, authenticated bool, role model.Role) Decision {
	path = Normalize(path)
	admin := authenticated && role.IsAdmin()
	student := authenticated && !role.IsAdmin()

	switch path {
	case PathLanding, PathLogin, PathRegister:
		if authenticated {
			return redirect(PathDashboard)
		}
		switch path {
		case PathLogin:
			return render(PageLogin)
		case PathRegister:
			return render(PageRegister)
		}
		return render(PageLanding)

	case PathDashboard:
		switch {
		case admin:
			return render(PageAdminDashboard)
		case student:
			return render(PageStudentDashboard)
		}
		return redirect(PathLogin)

	case PathSubmit:
		if student {
			return render(PageSubmit)
		}
		return redirect(PathLogin)

	case PathMyFeedbacks:
		if student {
			return render(PageMyFeedbacks)
		}
		return redirect(PathLogin)

	case PathManageFeedback:
		if admin {
			return render(PageManageFeedback)
		}
		return redirect(PathLogin)
	}

	if id, ok := FeedbackID(path); ok {
		if !authenticated {
			return redirect(PathLogin)
		}
		d := render(PageStudentDetail)
		if admin {
			d = render(PageAdminDetail)
		}
		d.FeedbackID = id
		return d
	}
	return redirect(PathLanding)
}
