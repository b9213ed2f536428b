package feedback

import "github.com/Trandsoulz/student-connect-client/internal/model"

// FilterAll is the status filter value that keeps every item.
const FilterAll = "all"

// FilterByStatus keeps the items whose status equals filter.  An empty filter
// or FilterAll returns the list unchanged.
func FilterByStatus(list []model.Feedback, filter string) []model.Feedback {
	if filter == "" || filter == FilterAll {
		return list
	}
	out := make([]model.Feedback, 0, len(list))
	for _, f := range list {
		if string(f.Status) == filter {
			out = append(out, f)
		}
	}
	return out
}

// StudentStats summarises a student's own submissions.
type StudentStats struct {
	Total    int
	Pending  int
	Resolved int
	Recent   []model.Feedback
}

// recentCount is how many items the student dashboard previews.
const recentCount = 3

// Student computes the student dashboard numbers.  Recent keeps the backend
// order, which is newest first.
func Student(list []model.Feedback) StudentStats {
	st := StudentStats{Total: len(list)}
	for _, f := range list {
		switch f.Status {
		case model.StatusPending:
			st.Pending++
		case model.StatusResolved:
			st.Resolved++
		}
	}
	n := min(recentCount, len(list))
	st.Recent = list[:n]
	return st
}

// CategoryCount is one row of the admin category distribution.
type CategoryCount struct {
	Name  string
	Count int
}

// AdminStats summarises every submission for the admin dashboard.
type AdminStats struct {
	Total      int
	Pending    int
	InProgress int
	Resolved   int
	Categories []CategoryCount
}

// Admin computes the admin dashboard numbers.  Administration and Other share
// the "Admin/Other" bucket.
func Admin(list []model.Feedback) AdminStats {
	st := AdminStats{Total: len(list)}
	buckets := map[string]int{}
	for _, f := range list {
		switch f.Status {
		case model.StatusPending:
			st.Pending++
		case model.StatusInProgress:
			st.InProgress++
		case model.StatusResolved:
			st.Resolved++
		}
		switch f.Category {
		case model.CategoryAdministration, model.CategoryOther:
			buckets["Admin/Other"]++
		default:
			buckets[string(f.Category)]++
		}
	}
	for _, name := range []string{"Academic", "Facility", "Welfare", "Technology", "Admin/Other"} {
		st.Categories = append(st.Categories, CategoryCount{Name: name, Count: buckets[name]})
	}
	return st
}
