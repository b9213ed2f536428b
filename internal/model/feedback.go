package model

import "time"

// Category classifies a feedback item.
type Category string

const (
	CategoryAcademic       Category = "Academic"
	CategoryFacility       Category = "Facility"
	CategoryWelfare        Category = "Welfare"
	CategoryTechnology     Category = "Technology"
	CategoryAdministration Category = "Administration"
	CategoryOther          Category = "Other"
)

// Categories lists every category in form order.
var Categories = []Category{
	CategoryAcademic,
	CategoryFacility,
	CategoryWelfare,
	CategoryTechnology,
	CategoryAdministration,
	CategoryOther,
}

// Valid reports whether c is one of the enumerated categories.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

// Status is the resolution state of a feedback item.  Transitions are owned
// by the backend; the client only proposes a new value.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusResolved   Status = "Resolved"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusResolved}

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusInProgress || s == StatusResolved
}

// UserRef is the populated user reference embedded in a feedback item.
type UserRef struct {
	ID       string `json:"_id"`
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
}

// Feedback mirrors the backend feedback document.  Optional fields are
// pointers so that "never responded" and "empty response" stay distinct.
type Feedback struct {
	ID            string     `json:"_id"`
	Title         string     `json:"title"`
	Category      Category   `json:"category"`
	Description   string     `json:"description"`
	Status        Status     `json:"status"`
	Student       UserRef    `json:"studentId"`
	AdminResponse string     `json:"adminResponse,omitempty"`
	RespondedBy   *UserRef   `json:"respondedBy,omitempty"`
	RespondedAt   *time.Time `json:"respondedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// ShortID is the last six characters of the id, used as a display number.
func (f Feedback) ShortID() string {
	if len(f.ID) <= 6 {
		return f.ID
	}
	return f.ID[len(f.ID)-6:]
}
