package guard

import "github.com/Trandsoulz/student-connect-client/internal/model"

type Tab string

const (
	TabNone           Tab = ""
	TabLanding        Tab = "landing"
	TabLogin          Tab = "login"
	TabRegister       Tab = "register"
	TabDashboard      Tab = "dashboard"
	TabSubmit         Tab = "submit"
	TabMyFeedbacks    Tab = "my-feedbacks"
	TabManageFeedback Tab = "manage-feedback"
)

// ActiveTab picks the highlighted navigation entry for path.
func ActiveTab(path string, role model.Role) Tab {
	switch Normalize(path) {
	case PathLanding:
		return TabLanding
	case PathLogin:
		return TabLogin
	case PathRegister:
		return TabRegister
	case PathDashboard:
		return TabDashboard
	case PathSubmit:
		return TabSubmit
	case PathMyFeedbacks:
		return TabMyFeedbacks
	case PathManageFeedback:
		return TabManageFeedback
	}
	if _, ok := FeedbackID(path); ok {
		if role.IsAdmin() {
			return TabManageFeedback
		}
		return TabMyFeedbacks
	}
	return TabNone
}

type NavItem struct {
	Tab   Tab
	Label string
	Path  string
}

var (
	studentNav = []NavItem{
		{TabDashboard, "Dashboard", PathDashboard},
		{TabSubmit, "Submit Feedback", PathSubmit},
		{TabMyFeedbacks, "My Feedbacks", PathMyFeedbacks},
	}
	adminNav = []NavItem{
		{TabDashboard, "Dashboard", PathDashboard},
		{TabManageFeedback, "Manage Feedback", PathManageFeedback},
	}
)

// NavItems returns the sidebar entries for role.  The slice is a copy.
func NavItems(role model.Role) []NavItem {
	src := studentNav
	if role.IsAdmin() {
		src = adminNav
	}
	return append([]NavItem(nil), src...)
}
